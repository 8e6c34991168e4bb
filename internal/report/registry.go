package report

import (
	"fmt"
	"sync"

	"github.com/akave-ai/newsreport/internal/config"
)

// Registry holds report generators in registration order.
type Registry struct {
	mu         sync.RWMutex
	generators []Generator
	byName     map[string]Generator
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Generator)}
}

// DefaultRegistry registers the three built-in reports, parameterized from cfg.
func DefaultRegistry(cfg config.ReportConfig) *Registry {
	r := NewRegistry()
	r.Register(PopularArticles{Limit: cfg.ArticleLimit})
	r.Register(PopularAuthors{})
	r.Register(ErrorDays{Threshold: cfg.ErrorThreshold})
	return r
}

// Register adds g, replacing an earlier generator of the same name in place.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[g.Name()]; ok {
		for i, existing := range r.generators {
			if existing.Name() == g.Name() {
				r.generators[i] = g
			}
		}
	} else {
		r.generators = append(r.generators, g)
	}
	r.byName[g.Name()] = g
}

// Get returns the generator registered under name.
func (r *Registry) Get(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.byName[name]
	return g, ok
}

// ListRegistered returns the registered names in run order.
func (r *Registry) ListRegistered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for _, g := range r.generators {
		names = append(names, g.Name())
	}
	return names
}

// Select returns the generators named in names, keeping registration order.
// An empty names selects everything.
func (r *Registry) Select(names []string) ([]Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(names) == 0 {
		return append([]Generator(nil), r.generators...), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("unknown report: %s", n)
		}
		want[n] = true
	}
	out := make([]Generator, 0, len(want))
	for _, g := range r.generators {
		if want[g.Name()] {
			out = append(out, g)
		}
	}
	return out, nil
}

// AllInfo returns the description of every registered report in run order.
func (r *Registry) AllInfo() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.generators))
	for _, g := range r.generators {
		out = append(out, g.Info())
	}
	return out
}
