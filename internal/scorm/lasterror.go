package scorm

import "sync"

// lastErrorRegister keeps the most recent non-success error code per
// attempt, cleared on any successful call. Process-local: a player talks to
// one gateway instance for the life of a session, and the register is a
// diagnostic aid, not durable state.
type lastErrorRegister struct {
	mu    sync.Mutex
	codes map[string]string
}

func newLastErrorRegister() *lastErrorRegister {
	return &lastErrorRegister{codes: map[string]string{}}
}

func (r *lastErrorRegister) record(attemptID, code string) {
	if attemptID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if code == ErrCodeNoError {
		delete(r.codes, attemptID)
		return
	}
	r.codes[attemptID] = code
}

func (r *lastErrorRegister) last(attemptID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.codes[attemptID]; ok {
		return c
	}
	return ErrCodeNoError
}
