// Package revision resolves requests for art revisions to stored entities,
// either filling a pre-designated revision or finding or creating one by
// identity.
package revision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"artdiff/internal/metrics"
	"artdiff/internal/model"
	"artdiff/internal/store"
	"artdiff/pkg/geometry"
	"artdiff/pkg/opt"
)

// Request describes the revision a caller needs. Unset fields are either
// derived from Context or left for a later request to fill.
type Request struct {
	// TargetID selects targeted mode: the named revision must accept the
	// request or the call fails with a *model.ConflictError.
	TargetID string

	PassID      opt.Value[string]
	VersionKey  opt.Value[string]
	ServiceTags opt.Value[model.TagSet]
	Bounds      opt.Value[geometry.Bounds]
	Resolution  opt.Value[int]
	Preview     opt.Value[string]

	// Context is the processing step that produced the revision, if any.
	Context *model.ProcessingContext
}

// Outcome reports what Resolve did.
type Outcome int

const (
	// Matched means an existing revision already held every requested value.
	Matched Outcome = iota
	// Filled means previously unset fields of an existing revision were set.
	Filled
	// Created means a new revision was stored.
	Created
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case Filled:
		return "filled"
	case Created:
		return "created"
	}
	return "unknown"
}

// Result is a resolved revision.
type Result struct {
	Revision *model.ArtRevision
	Outcome  Outcome
}

// Resolver resolves revision requests against the store.
type Resolver struct {
	db     *store.Store
	logger *slog.Logger
	newID  func() string
}

// NewResolver creates a Resolver.
func NewResolver(db *store.Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{db: db, logger: logger, newID: uuid.NewString}
}

// Resolve resolves req in its own transaction. On error nothing is written.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	var res *Result
	err := r.db.Update(ctx, func(tx *store.Tx) error {
		var err error
		res, err = r.ResolveTx(tx, req)
		return err
	})
	if err != nil {
		if isConflict(err) {
			metrics.RevisionsResolved.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}
	r.Record(res)
	return res, nil
}

// Record logs and counts a committed resolution. Callers of ResolveTx invoke
// it once their transaction commits.
func (r *Resolver) Record(res *Result) {
	metrics.RevisionsResolved.WithLabelValues(res.Outcome.String()).Inc()
	r.logger.Debug("resolved revision",
		"id", res.Revision.ID,
		"pass", res.Revision.PassID,
		"version", res.Revision.VersionKey,
		"outcome", res.Outcome.String())
}

// ResolveTx resolves req inside tx, for callers composing several
// resolutions into one transaction.
func (r *Resolver) ResolveTx(tx *store.Tx, req Request) (*Result, error) {
	req = DeriveFromContext(req)
	if req.TargetID != "" {
		return r.resolveTarget(tx, req)
	}
	return r.resolveOpen(tx, req)
}

// DeriveFromContext fills unset pass, service tags, version key from the
// request's processing context: the process set's pass, its service offering
// keys, and the step type key. Values already present are kept.
func DeriveFromContext(req Request) Request {
	pc := req.Context
	if pc == nil {
		return req
	}
	if !req.PassID.IsSet() && pc.PassID != "" {
		req.PassID = opt.Some(pc.PassID)
	}
	if !req.ServiceTags.IsSet() && len(pc.ServiceOfferingKeys) > 0 {
		req.ServiceTags = opt.Some(model.NewTagSet(pc.ServiceOfferingKeys...))
	}
	if !req.VersionKey.IsSet() && pc.StepTypeKey != "" {
		req.VersionKey = opt.Some(pc.StepTypeKey)
	}
	return req
}

func (r *Resolver) resolveTarget(tx *store.Tx, req Request) (*Result, error) {
	rev, err := tx.Revision(req.TargetID)
	if err != nil {
		return nil, err
	}

	conflict := func(field string, existing, requested any) error {
		return &model.ConflictError{RevisionID: rev.ID, Field: field, Existing: existing, Requested: requested}
	}
	if p, ok := rev.Preview.Get(); ok {
		return nil, conflict("preview", p, req.Preview.Or(""))
	}
	if v, ok := req.PassID.Get(); ok && v != rev.PassID {
		return nil, conflict("pass", rev.PassID, v)
	}
	if v, ok := req.VersionKey.Get(); ok && v != rev.VersionKey {
		return nil, conflict("version_key", rev.VersionKey, v)
	}
	if !compatible(rev.Bounds, req.Bounds) {
		return nil, conflict("bounds", rev.Bounds.MustGet(), req.Bounds.MustGet())
	}
	if !compatible(rev.Resolution, req.Resolution) {
		return nil, conflict("resolution", rev.Resolution.MustGet(), req.Resolution.MustGet())
	}
	if tags, ok := req.ServiceTags.Get(); ok && !rev.ServiceTags.Contains(tags) {
		return nil, conflict("service_tags", rev.ServiceTags, tags)
	}

	if !fill(rev, req) {
		return &Result{Revision: rev, Outcome: Matched}, nil
	}
	if err := tx.PutRevision(rev); err != nil {
		return nil, err
	}
	return &Result{Revision: rev, Outcome: Filled}, nil
}

// resolveOpen finds a revision with the request's identity whose set fields
// agree with the request, filling it forward, or creates a new one. A
// revision holding a different value is never overwritten.
func (r *Resolver) resolveOpen(tx *store.Tx, req Request) (*Result, error) {
	passID, ok := req.PassID.Get()
	if !ok || passID == "" {
		return nil, fmt.Errorf("%w: revision request has no pass", model.ErrValidation)
	}
	version, ok := req.VersionKey.Get()
	if !ok || version == "" {
		return nil, fmt.Errorf("%w: revision request for pass %s has no version key", model.ErrValidation, passID)
	}
	tags := req.ServiceTags.Or(nil)

	candidates, err := tx.RevisionsByIdentity(passID, version, req.Bounds)
	if err != nil {
		return nil, err
	}

	var fillable *model.ArtRevision
	for _, rev := range candidates {
		if !tagsMatch(rev.ServiceTags, tags) {
			continue
		}
		if !compatible(rev.Resolution, req.Resolution) || !compatible(rev.Preview, req.Preview) {
			continue
		}
		probe := *rev
		if !fill(&probe, req) {
			return &Result{Revision: rev, Outcome: Matched}, nil
		}
		if fillable == nil {
			fillable = rev
		}
	}

	if fillable != nil {
		fill(fillable, req)
		if err := tx.PutRevision(fillable); err != nil {
			return nil, err
		}
		return &Result{Revision: fillable, Outcome: Filled}, nil
	}

	rev := &model.ArtRevision{
		ID:          r.newID(),
		PassID:      passID,
		VersionKey:  version,
		ServiceTags: tags,
		Bounds:      req.Bounds,
		Resolution:  req.Resolution,
		Preview:     req.Preview,
	}
	if req.Context != nil && req.Context.StepID != "" {
		rev.StepID = opt.Some(req.Context.StepID)
	}
	if err := tx.PutRevision(rev); err != nil {
		return nil, err
	}
	return &Result{Revision: rev, Outcome: Created}, nil
}

// fill sets every unset field of rev that req provides and reports whether
// anything changed.
func fill(rev *model.ArtRevision, req Request) bool {
	changed := false
	if !rev.Bounds.IsSet() && req.Bounds.IsSet() {
		rev.Bounds = req.Bounds
		changed = true
	}
	if !rev.Resolution.IsSet() && req.Resolution.IsSet() {
		rev.Resolution = req.Resolution
		changed = true
	}
	if !rev.Preview.IsSet() && req.Preview.IsSet() {
		rev.Preview = req.Preview
		changed = true
	}
	if !rev.StepID.IsSet() && req.Context != nil && req.Context.StepID != "" {
		rev.StepID = opt.Some(req.Context.StepID)
		changed = true
	}
	return changed
}

// compatible reports whether a stored value accepts a requested one: either
// side unset, or both equal.
func compatible[T comparable](stored, requested opt.Value[T]) bool {
	s, sok := stored.Get()
	q, qok := requested.Get()
	return !sok || !qok || s == q
}

// tagsMatch reports whether a stored tag set overlaps the requested one.
// An empty request matches only untagged revisions.
func tagsMatch(stored, requested model.TagSet) bool {
	if requested.Empty() {
		return stored.Empty()
	}
	return stored.Overlaps(requested)
}

func isConflict(err error) bool {
	return errors.Is(err, model.ErrConflict)
}
