package queuesync

import (
	"context"
	"sync"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// ScheduleAPI is the request/acknowledge transport for recurring job
// CRUD. The HTTP client implements it; tests substitute a fake.
type ScheduleAPI interface {
	List(ctx context.Context) ([]common.Schedule, error)
	Add(ctx context.Context, p common.ScheduleAddParams) (*common.Schedule, error)
	Update(ctx context.Context, ids []int64, cron string) error
	Remove(ctx context.Context, ids []int64) error
}

// ScheduleStore is a request/acknowledge cache of recurring job
// definitions. Local mutation happens only after the server has
// acknowledged a call, so a failed call leaves the cache exactly as it
// was. Cron expressions are accepted at face value; the server is the
// sole validator.
type ScheduleStore struct {
	mu        sync.Mutex
	api       ScheduleAPI
	schedules []common.Schedule
	log       logger.Logger
}

// NewScheduleStore returns an empty store backed by api.
func NewScheduleStore(api ScheduleAPI, l logger.Logger) *ScheduleStore {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &ScheduleStore{api: api, log: l}
}

// Load replaces the local cache wholesale with the server's list.
func (st *ScheduleStore) Load(ctx context.Context) error {
	list, err := st.api.List(ctx)
	if err != nil {
		st.log.Error("schedule list failed: %v", err)
		return err
	}
	st.mu.Lock()
	st.schedules = list
	st.mu.Unlock()
	return nil
}

// Schedules returns a copy of the cached list.
func (st *ScheduleStore) Schedules() []common.Schedule {
	st.mu.Lock()
	out := make([]common.Schedule, len(st.schedules))
	copy(out, st.schedules)
	st.mu.Unlock()
	return out
}

// Len returns the number of cached schedules.
func (st *ScheduleStore) Len() int {
	st.mu.Lock()
	n := len(st.schedules)
	st.mu.Unlock()
	return n
}

// Add submits a new schedule. The server assigns the id and computes
// next_run; the returned record is appended to the cache. The append is
// safe because the id exists before any local mutation happens.
func (st *ScheduleStore) Add(ctx context.Context, p common.ScheduleAddParams) (*common.Schedule, error) {
	created, err := st.api.Add(ctx, p)
	if err != nil {
		st.log.Error("schedule add failed: %v", err)
		return nil, err
	}
	st.mu.Lock()
	st.schedules = append(st.schedules, *created)
	st.mu.Unlock()
	return created, nil
}

// Update changes the cron expression of the given schedules. The server
// may recompute last_run/next_run, and those fields cannot be derived
// locally, so after acknowledgment the cache is reloaded wholesale
// instead of patched.
//
// Two near-simultaneous updates for the same id race: the later
// acknowledgment's reload wins. There is no version stamp on the wire to
// resolve it; see DESIGN.md.
func (st *ScheduleStore) Update(ctx context.Context, ids []int64, cron string) error {
	if err := st.api.Update(ctx, ids, cron); err != nil {
		st.log.Error("schedule update failed: %v", err)
		return err
	}
	return st.Load(ctx)
}

// Remove deletes the given schedules. On acknowledgment the ids are
// filtered out of the cache.
func (st *ScheduleStore) Remove(ctx context.Context, ids []int64) error {
	if err := st.api.Remove(ctx, ids); err != nil {
		st.log.Error("schedule remove failed: %v", err)
		return err
	}
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	st.mu.Lock()
	kept := st.schedules[:0]
	for _, s := range st.schedules {
		if _, ok := drop[s.ID]; !ok {
			kept = append(kept, s)
		}
	}
	st.schedules = kept
	st.mu.Unlock()
	return nil
}

// Get returns the cached schedule with the given id.
func (st *ScheduleStore) Get(id int64) (common.Schedule, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, s := range st.schedules {
		if s.ID == id {
			return s, true
		}
	}
	return common.Schedule{}, false
}
