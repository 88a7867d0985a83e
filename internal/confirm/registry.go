package confirm

import (
	"errors"
	"sync"
)

// Registry keeps one gate per owner, usually a signed-in user.
type Registry struct {
	mu    sync.Mutex
	gates map[string]*Gate
}

func NewRegistry() *Registry {
	return &Registry{gates: make(map[string]*Gate)}
}

// Gate returns the owner's gate, creating it on first use.
func (r *Registry) Gate(owner string) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.gates[owner]
	if !ok {
		g = NewGate()
		r.gates[owner] = g
	}
	return g
}

// Discard drops the owner's open prompt and forgets the gate. A gate whose
// action is still running is kept and ErrBusy returned.
func (r *Registry) Discard(owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gates[owner]
	if !ok {
		return nil
	}
	err := g.Discard()
	if g.State() == Closed {
		delete(r.gates, owner)
	}
	if errors.Is(err, ErrNotOpen) {
		return nil
	}
	return err
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.gates)
}
