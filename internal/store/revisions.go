package store

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"artdiff/internal/model"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// revisionKey is the identity index key for a pass, version key and bounds.
// Unset bounds form their own bucket.
func revisionKey(passID, versionKey string, bounds opt.Value[geometry.Bounds]) string {
	b := "-"
	if v, ok := bounds.Get(); ok {
		b = v.String()
	}
	return prefixRevisionKey + passID + sep + versionKey + sep + b
}

func revisionPassKey(passID, id string) string {
	return prefixRevisionPass + passID + sep + id
}

// Revision loads a revision by id.
func (tx *Tx) Revision(id string) (*model.ArtRevision, error) {
	var rev model.ArtRevision
	if err := tx.getJSON(prefixRevision+id, &rev); err != nil {
		return nil, fmt.Errorf("revision %s: %w", id, err)
	}
	return &rev, nil
}

// PutRevision creates or updates a revision and keeps its indexes current.
func (tx *Tx) PutRevision(rev *model.ArtRevision) error {
	if rev.ID == "" || rev.PassID == "" {
		return fmt.Errorf("%w: revision requires id and pass", model.ErrValidation)
	}

	newKey := revisionKey(rev.PassID, rev.VersionKey, rev.Bounds)
	old, err := tx.Revision(rev.ID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		if rev.CreatedAt.IsZero() {
			rev.CreatedAt = tx.Now()
		}
	case err != nil:
		return err
	default:
		oldKey := revisionKey(old.PassID, old.VersionKey, old.Bounds)
		if oldKey != newKey {
			if err := tx.removeID(oldKey, rev.ID); err != nil {
				return err
			}
		}
		if old.PassID != rev.PassID {
			if err := tx.delete(revisionPassKey(old.PassID, rev.ID)); err != nil {
				return err
			}
		}
	}

	if err := tx.addID(newKey, rev.ID); err != nil {
		return err
	}
	if err := tx.txn.Set([]byte(revisionPassKey(rev.PassID, rev.ID)), []byte{}); err != nil {
		return fmt.Errorf("index revision %s: %w", rev.ID, err)
	}
	return tx.putJSON(prefixRevision+rev.ID, rev)
}

// RevisionsByIdentity returns the revisions sharing a pass, version key and
// bounds, oldest first. Reading the identity index makes a concurrent
// create on the same identity conflict with this transaction.
func (tx *Tx) RevisionsByIdentity(passID, versionKey string, bounds opt.Value[geometry.Bounds]) ([]*model.ArtRevision, error) {
	ids, err := tx.getIDs(revisionKey(passID, versionKey, bounds))
	if err != nil {
		return nil, err
	}
	revs := make([]*model.ArtRevision, 0, len(ids))
	for _, id := range ids {
		rev, err := tx.Revision(id)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, nil
}

// RevisionsForPass returns every revision of a pass, newest first.
func (tx *Tx) RevisionsForPass(passID string) ([]*model.ArtRevision, error) {
	prefix := prefixRevisionPass + passID + sep
	var revs []*model.ArtRevision
	for _, key := range tx.keysWithPrefix(prefix) {
		rev, err := tx.Revision(strings.TrimPrefix(key, prefix))
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	sort.SliceStable(revs, func(i, j int) bool {
		if revs[i].CreatedAt.Equal(revs[j].CreatedAt) {
			return revs[i].ID > revs[j].ID
		}
		return revs[i].CreatedAt.After(revs[j].CreatedAt)
	})
	return revs, nil
}

func (tx *Tx) addID(key, id string) error {
	ids, err := tx.getIDs(key)
	if err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return tx.putJSON(key, append(ids, id))
}

func (tx *Tx) removeID(key, id string) error {
	ids, err := tx.getIDs(key)
	if err != nil {
		return err
	}
	ids = slices.DeleteFunc(ids, func(s string) bool { return s == id })
	if len(ids) == 0 {
		return tx.delete(key)
	}
	return tx.putJSON(key, ids)
}
