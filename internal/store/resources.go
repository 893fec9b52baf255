package store

import (
	"fmt"

	"artdiff/internal/model"
)

// Resource loads stored resource metadata by id.
func (tx *Tx) Resource(id string) (*model.StoredResource, error) {
	var r model.StoredResource
	if err := tx.getJSON(prefixResource+id, &r); err != nil {
		return nil, fmt.Errorf("resource %s: %w", id, err)
	}
	return &r, nil
}

// PutResource stores resource metadata.
func (tx *Tx) PutResource(r *model.StoredResource) error {
	if r.ID == "" {
		return fmt.Errorf("%w: resource requires id", model.ErrValidation)
	}
	r.UpdatedAt = tx.Now()
	return tx.putJSON(prefixResource+r.ID, r)
}

// DeleteResource removes resource metadata. Deleting a missing resource is not
// an error.
func (tx *Tx) DeleteResource(id string) error {
	return tx.delete(prefixResource + id)
}
