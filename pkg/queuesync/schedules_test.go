package queuesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// fakeScheduleAPI plays the server side of the schedule CRUD exchange.
type fakeScheduleAPI struct {
	server  []common.Schedule
	nextID  int64
	failAll bool

	listCalls int
}

func (f *fakeScheduleAPI) List(context.Context) ([]common.Schedule, error) {
	f.listCalls++
	if f.failAll {
		return nil, errors.New("server unavailable")
	}
	out := make([]common.Schedule, len(f.server))
	copy(out, f.server)
	return out, nil
}

func (f *fakeScheduleAPI) Add(_ context.Context, p common.ScheduleAddParams) (*common.Schedule, error) {
	if f.failAll {
		return nil, errors.New("server unavailable")
	}
	f.nextID++
	next := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := common.Schedule{ID: f.nextID, URL: p.URL, Cron: p.Cron, Folder: p.Folder, NextRun: &next}
	f.server = append(f.server, s)
	return &s, nil
}

func (f *fakeScheduleAPI) Update(_ context.Context, ids []int64, cron string) error {
	if f.failAll {
		return errors.New("server unavailable")
	}
	for i := range f.server {
		for _, id := range ids {
			if f.server[i].ID == id {
				f.server[i].Cron = cron
				recomputed := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
				f.server[i].NextRun = &recomputed
			}
		}
	}
	return nil
}

func (f *fakeScheduleAPI) Remove(_ context.Context, ids []int64) error {
	if f.failAll {
		return errors.New("server unavailable")
	}
	kept := f.server[:0]
	for _, s := range f.server {
		drop := false
		for _, id := range ids {
			if s.ID == id {
				drop = true
			}
		}
		if !drop {
			kept = append(kept, s)
		}
	}
	f.server = kept
	return nil
}

// TestScheduleStore_Add verifies the server-assigned record is appended
// last with the server's next_run.
func TestScheduleStore_Add(t *testing.T) {
	api := &fakeScheduleAPI{}
	st := NewScheduleStore(api, logger.NewNopLogger())

	before := st.Len()
	created, err := st.Add(context.Background(), common.ScheduleAddParams{URL: "https://example.com/feed", Cron: "0 * * * *"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if st.Len() != before+1 {
		t.Fatalf("expected length %d, got %d", before+1, st.Len())
	}
	list := st.Schedules()
	last := list[len(list)-1]
	if last.ID != created.ID || last.Cron != "0 * * * *" {
		t.Fatalf("new entry not appended last: %+v", last)
	}
	if last.NextRun == nil || !last.NextRun.Equal(*created.NextRun) {
		t.Fatalf("next_run must come from the server, got %v", last.NextRun)
	}
}

// TestScheduleStore_UpdateReloads verifies update performs a full reload
// after acknowledgment instead of patching fields locally.
func TestScheduleStore_UpdateReloads(t *testing.T) {
	api := &fakeScheduleAPI{}
	st := NewScheduleStore(api, logger.NewNopLogger())
	created, _ := st.Add(context.Background(), common.ScheduleAddParams{URL: "u", Cron: "0 * * * *"})

	api.listCalls = 0
	if err := st.Update(context.Background(), []int64{created.ID}, "0 0 * * *"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if api.listCalls != 1 {
		t.Fatalf("expected exactly one reload, got %d", api.listCalls)
	}
	got, _ := st.Get(created.ID)
	if got.Cron != "0 0 * * *" {
		t.Fatalf("expected reloaded cron, got %q", got.Cron)
	}
	if got.NextRun == nil || got.NextRun.Equal(*created.NextRun) {
		t.Fatal("expected server-recomputed next_run after reload")
	}
}

// TestScheduleStore_Remove verifies acknowledged removals are filtered
// out of the cache without a reload.
func TestScheduleStore_Remove(t *testing.T) {
	api := &fakeScheduleAPI{}
	st := NewScheduleStore(api, logger.NewNopLogger())
	a, _ := st.Add(context.Background(), common.ScheduleAddParams{URL: "a", Cron: "0 * * * *"})
	b, _ := st.Add(context.Background(), common.ScheduleAddParams{URL: "b", Cron: "0 0 * * *"})

	api.listCalls = 0
	if err := st.Remove(context.Background(), []int64{a.ID}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if api.listCalls != 0 {
		t.Fatal("remove must not reload")
	}
	if _, ok := st.Get(a.ID); ok {
		t.Fatal("removed schedule still cached")
	}
	if _, ok := st.Get(b.ID); !ok {
		t.Fatal("unrelated schedule evicted")
	}
}

// TestScheduleStore_FailedCallLeavesCache verifies a failed call leaves
// the cache exactly as it was.
func TestScheduleStore_FailedCallLeavesCache(t *testing.T) {
	api := &fakeScheduleAPI{}
	st := NewScheduleStore(api, logger.NewNopLogger())
	a, _ := st.Add(context.Background(), common.ScheduleAddParams{URL: "a", Cron: "0 * * * *"})

	api.failAll = true
	if err := st.Update(context.Background(), []int64{a.ID}, "bad"); err == nil {
		t.Fatal("expected update failure")
	}
	if err := st.Remove(context.Background(), []int64{a.ID}); err == nil {
		t.Fatal("expected remove failure")
	}
	if _, err := st.Add(context.Background(), common.ScheduleAddParams{URL: "b"}); err == nil {
		t.Fatal("expected add failure")
	}

	if st.Len() != 1 {
		t.Fatalf("failed calls corrupted the cache: %d entries", st.Len())
	}
	got, _ := st.Get(a.ID)
	if got.Cron != "0 * * * *" {
		t.Fatalf("failed update patched the cache: %q", got.Cron)
	}
}
