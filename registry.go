package stateserver

import "sync"

// registry is the process-local name registry. Names are claimed at
// start (duplicate claims fail the start) and released when the
// instance terminates.
type registry struct {
	mu     sync.RWMutex
	byName map[string]*Server
}

var names = &registry{byName: make(map[string]*Server)}

// Lookup returns the live registered instance under name, if any.
func Lookup(name string) (*Server, bool) {
	names.mu.RLock()
	defer names.mu.RUnlock()
	s, ok := names.byName[name]
	return s, ok
}

func (r *registry) claim(name string, s *Server) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byName[name]; taken {
		return ErrNameTaken
	}
	r.byName[name] = s
	return nil
}

// release drops the claim, but only if it still belongs to s: a name
// may have been re-registered by a successor instance.
func (r *registry) release(name string, s *Server) {
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byName[name] == s {
		delete(r.byName, name)
	}
}
