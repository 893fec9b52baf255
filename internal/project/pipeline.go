package project

import (
	"fmt"
	"slices"

	"artdiff/internal/model"
)

// Pipeline is the pass graph of a manifest. It answers the nearest-related
// pass queries used to pair passes for comparison.
type Pipeline struct {
	passes []*model.ArtPass
	index  map[string]int
	prev   map[string][]string
	next   map[string][]string
}

// Pipeline builds the pass graph, checking that ids are unique and every
// predecessor exists.
func (f *File) Pipeline() (*Pipeline, error) {
	p := &Pipeline{
		index: make(map[string]int, len(f.Passes)),
		prev:  make(map[string][]string),
		next:  make(map[string][]string),
	}
	for i := range f.Passes {
		e := &f.Passes[i]
		if e.ID == "" {
			return nil, fmt.Errorf("%w: pass %d has no id", model.ErrValidation, i)
		}
		if _, dup := p.index[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate pass %s", model.ErrValidation, e.ID)
		}
		pass := e.ArtPass
		pass.VisibilityTags = model.NewTagSet(pass.VisibilityTags...)
		p.index[e.ID] = len(p.passes)
		p.passes = append(p.passes, &pass)
	}
	for i, e := range f.Passes {
		follows := e.Follows
		if len(follows) == 0 && i > 0 {
			follows = []string{f.Passes[i-1].ID}
		}
		for _, before := range follows {
			j, ok := p.index[before]
			if !ok {
				return nil, fmt.Errorf("%w: pass %s follows unknown pass %s", model.ErrValidation, e.ID, before)
			}
			if j >= i {
				return nil, fmt.Errorf("%w: pass %s follows later pass %s", model.ErrValidation, e.ID, before)
			}
			p.prev[e.ID] = append(p.prev[e.ID], before)
			p.next[before] = append(p.next[before], e.ID)
		}
	}
	return p, nil
}

// Passes returns the passes in manifest order.
func (p *Pipeline) Passes() []*model.ArtPass {
	return slices.Clone(p.passes)
}

// Pass looks a pass up by id.
func (p *Pipeline) Pass(id string) (*model.ArtPass, error) {
	i, ok := p.index[id]
	if !ok {
		return nil, fmt.Errorf("pass %s: %w", id, model.ErrNotFound)
	}
	return p.passes[i], nil
}

// Position returns the pass's index in manifest order, or -1.
func (p *Pipeline) Position(id string) int {
	if i, ok := p.index[id]; ok {
		return i
	}
	return -1
}

// PreviousCompleted returns the nearest earlier pass carrying tag, searching
// predecessors breadth first, if that pass has completed processing.
func (p *Pipeline) PreviousCompleted(passID, tag string) (*model.ArtPass, bool) {
	seen := map[string]bool{passID: true}
	queue := slices.Clone(p.prev[passID])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		pass := p.passes[p.index[id]]
		if pass.VisibilityTags.Has(tag) {
			if pass.ProcessingComplete {
				return pass, true
			}
			return nil, false
		}
		queue = append(queue, p.prev[id]...)
	}
	return nil, false
}

// NextCompleted returns, for every branch after the pass, the nearest later
// pass carrying tag, keeping only completed ones.
func (p *Pipeline) NextCompleted(passID, tag string) []*model.ArtPass {
	var out []*model.ArtPass
	seen := map[string]bool{passID: true}
	queue := slices.Clone(p.next[passID])
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		pass := p.passes[p.index[id]]
		if pass.VisibilityTags.Has(tag) {
			if pass.ProcessingComplete {
				out = append(out, pass)
			}
			continue
		}
		queue = append(queue, p.next[id]...)
	}
	return out
}
