package engine

// Handle identifies an engine in a Registry. The zero handle is absent.
type Handle uint32

// Registry owns engine instances by handle. It belongs to the render
// goroutine and is not safe for concurrent use.
type Registry struct {
	next    Handle
	engines map[Handle]Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[Handle]Engine)}
}

// Register stores e and returns its handle. A nil engine yields the zero handle.
func (r *Registry) Register(e Engine) Handle {
	if e == nil {
		return 0
	}
	r.next++
	r.engines[r.next] = e
	return r.next
}

// Lookup returns the engine for h.
func (r *Registry) Lookup(h Handle) (Engine, bool) {
	if r == nil || h == 0 {
		return nil, false
	}
	e, ok := r.engines[h]
	return e, ok
}

// Release removes h, releasing the engine's resources when it supports it.
func (r *Registry) Release(h Handle) {
	e, ok := r.Lookup(h)
	if !ok {
		return
	}
	delete(r.engines, h)
	if rel, ok := e.(Releaser); ok {
		rel.Release()
	}
}

// Len returns the number of live engines.
func (r *Registry) Len() int {
	return len(r.engines)
}
