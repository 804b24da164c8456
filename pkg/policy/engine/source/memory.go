package source

import (
	"context"
	"sync"

	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
	"astraguard/aegis/pkg/policy/engine"
)

// MemorySource is an in-memory policy source. It serves a fixed document and
// is primarily useful for tests and for embedding the built-in defaults.
type MemorySource struct {
	mu  sync.RWMutex
	doc policy.Document
}

// NewMemorySource creates a source serving the given document.
func NewMemorySource(doc policy.Document) *MemorySource {
	return &MemorySource{doc: doc}
}

// NewDefaultSource creates a source serving the built-in phase policies.
func NewDefaultSource() *MemorySource {
	return NewMemorySource(policy.DefaultDocument())
}

// Load returns the stored document. The phase map is copied so callers cannot
// mutate the source's copy.
func (s *MemorySource) Load(ctx context.Context) (policy.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := s.doc
	doc.Phases = make(map[mission.Phase]policy.PhasePolicy, len(s.doc.Phases))
	for phase, pol := range s.doc.Phases {
		doc.Phases[phase] = pol
	}
	return doc, nil
}

// Watch returns a channel that never emits and closes when the context is
// cancelled. In-memory documents change through Set, which callers pair with
// an explicit engine reload.
func (s *MemorySource) Watch(ctx context.Context) (<-chan engine.SourceEvent, error) {
	events := make(chan engine.SourceEvent)
	go func() {
		<-ctx.Done()
		close(events)
	}()
	return events, nil
}

// Set replaces the stored document.
func (s *MemorySource) Set(doc policy.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
}
