package app

import (
	"fmt"
	"sync"

	"artdiff/internal/model"
	"artdiff/internal/project"
)

// State holds the loaded pass manifest and answers topology queries against
// it. A reload swaps the manifest atomically for readers.
type State struct {
	mu sync.RWMutex

	path     string
	manifest *project.File
	pipeline *project.Pipeline

	events *Events
}

// NewState creates an empty state that emits on events, which may be nil.
func NewState(events *Events) *State {
	return &State{events: events}
}

// LoadManifest loads the manifest at path and emits EventManifestLoaded.
// On error the previous manifest stays in place.
func (s *State) LoadManifest(path string) error {
	f, err := project.Load(path)
	if err != nil {
		return err
	}
	p, err := f.Pipeline()
	if err != nil {
		return fmt.Errorf("manifest %s: %w", path, err)
	}

	s.mu.Lock()
	s.path = path
	s.manifest = f
	s.pipeline = p
	s.mu.Unlock()

	if s.events != nil {
		s.events.Emit(EventManifestLoaded, path)
	}
	return nil
}

// Manifest returns the loaded manifest and its path, or nil before one is
// loaded.
func (s *State) Manifest() (*project.File, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manifest, s.path
}

// Pipeline returns the current pass graph, or nil before a manifest is loaded.
func (s *State) Pipeline() *project.Pipeline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pipeline
}

// Passes returns the manifest's passes in order.
func (s *State) Passes() []*model.ArtPass {
	if p := s.Pipeline(); p != nil {
		return p.Passes()
	}
	return nil
}

// Pass looks a pass up in the current manifest.
func (s *State) Pass(id string) (*model.ArtPass, error) {
	p := s.Pipeline()
	if p == nil {
		return nil, fmt.Errorf("%w: no manifest loaded", model.ErrMissingPrecondition)
	}
	return p.Pass(id)
}

// PreviousCompleted implements comparison.Topology.
func (s *State) PreviousCompleted(passID, tag string) (*model.ArtPass, bool) {
	if p := s.Pipeline(); p != nil {
		return p.PreviousCompleted(passID, tag)
	}
	return nil, false
}

// NextCompleted implements comparison.Topology.
func (s *State) NextCompleted(passID, tag string) []*model.ArtPass {
	if p := s.Pipeline(); p != nil {
		return p.NextCompleted(passID, tag)
	}
	return nil
}
