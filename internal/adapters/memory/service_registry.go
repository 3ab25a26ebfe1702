package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/charon-sso/charon/internal/core"
	"github.com/charon-sso/charon/internal/domain/services"
)

// ServiceRegistry keeps registered services in process memory.
type ServiceRegistry struct {
	mu     sync.RWMutex
	byID   map[int64]*services.RegisteredService
	nextID int64
	clock  core.Clock
}

var _ core.ServiceRegistry = (*ServiceRegistry)(nil)

// NewServiceRegistry builds a registry pre-loaded with the given services.
// Zero ids are assigned sequentially.
func NewServiceRegistry(clock core.Clock, seed ...*services.RegisteredService) *ServiceRegistry {
	if clock == nil {
		clock = core.SystemClock{}
	}
	r := &ServiceRegistry{
		byID:   make(map[int64]*services.RegisteredService),
		nextID: 1,
		clock:  clock,
	}
	for _, rs := range seed {
		_, _ = r.Save(context.Background(), rs)
	}
	return r
}

// FindServiceBy implements core.ServiceRegistry. Candidates are checked in
// ascending id order; the first registration matching the presented service
// wins. Absence is (nil, nil).
func (r *ServiceRegistry) FindServiceBy(ctx context.Context, svc services.Service) (*services.RegisteredService, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rs := range r.sortedLocked() {
		if rs.MatchesService(svc.ID) {
			cp := *rs
			return &cp, nil
		}
	}
	return nil, nil
}

// Save implements core.ServiceRegistry.
func (r *ServiceRegistry) Save(ctx context.Context, rs *services.RegisteredService) (*services.RegisteredService, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rs.Release.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rs
	now := r.clock.Now()
	if cp.ID == 0 {
		cp.ID = r.nextID
		r.nextID++
		cp.CreatedAt = now
	} else if existing, ok := r.byID[cp.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
	} else if cp.ID >= r.nextID {
		r.nextID = cp.ID + 1
	}
	cp.UpdatedAt = now
	r.byID[cp.ID] = &cp

	out := cp
	return &out, nil
}

// Delete implements core.ServiceRegistry.
func (r *ServiceRegistry) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	return true, nil
}

// List implements core.ServiceRegistry.
func (r *ServiceRegistry) List(ctx context.Context) ([]*services.RegisteredService, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*services.RegisteredService, 0, len(r.byID))
	for _, rs := range r.sortedLocked() {
		cp := *rs
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ServiceRegistry) sortedLocked() []*services.RegisteredService {
	out := make([]*services.RegisteredService, 0, len(r.byID))
	for _, rs := range r.byID {
		out = append(out, rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
