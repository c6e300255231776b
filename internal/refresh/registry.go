package refresh

import (
	"sync"

	"github.com/google/uuid"
)

// Registry hands out ids for live schedulers so follow-up requests can reach the scheduler
// a stream owns. Lookups are scoped to an owner, typically the entity being viewed.
type Registry struct {
	mu   sync.Mutex
	byID map[string]registered
}

type registered struct {
	owner string
	sched *Scheduler
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]registered)}
}

func (r *Registry) Add(owner string, s *Scheduler) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = registered{owner: owner, sched: s}
	return id
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

func (r *Registry) Get(owner, id string) (*Scheduler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byID[id]
	if !ok || entry.owner != owner {
		return nil, false
	}
	return entry.sched, true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
