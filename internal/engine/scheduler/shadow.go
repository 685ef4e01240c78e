package scheduler

import (
	"sync"

	"go.trai.ch/kiln/internal/core/domain"
)

// shadowRegistry remembers the verdicts of executed shadowing tasks by kind and shadow key.
type shadowRegistry struct {
	mu       sync.Mutex
	verdicts map[domain.TaskKind]map[domain.Fingerprint]domain.Verdict
}

func newShadowRegistry() *shadowRegistry {
	return &shadowRegistry{verdicts: make(map[domain.TaskKind]map[domain.Fingerprint]domain.Verdict)}
}

func (r *shadowRegistry) lookup(kind domain.TaskKind, key domain.Fingerprint) (domain.Verdict, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.verdicts[kind][key]
	return v, ok
}

func (r *shadowRegistry) record(kind domain.TaskKind, key domain.Fingerprint, v domain.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verdicts[kind] == nil {
		r.verdicts[kind] = make(map[domain.Fingerprint]domain.Verdict)
	}
	if _, exists := r.verdicts[kind][key]; !exists {
		r.verdicts[kind][key] = v
	}
}
