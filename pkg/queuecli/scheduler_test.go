package queuecli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tubequeue/tubequeue/common"
)

// newSchedulerTestServer serves a minimal scheduler API backed by an
// in-memory slice.
func newSchedulerTestServer(t *testing.T) (*httptest.Server, *[]common.Schedule) {
	t.Helper()
	var schedules []common.Schedule
	var nextID int64

	mux := http.NewServeMux()
	mux.HandleFunc("/scheduler/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(schedules)
	})
	mux.HandleFunc("/scheduler/add", func(w http.ResponseWriter, r *http.Request) {
		var p common.ScheduleAddParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		nextID++
		next := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
		s := common.Schedule{ID: nextID, URL: p.URL, Cron: p.Cron, Folder: p.Folder, NextRun: &next}
		schedules = append(schedules, s)
		json.NewEncoder(w).Encode(s)
	})
	mux.HandleFunc("/scheduler/update", func(w http.ResponseWriter, r *http.Request) {
		var p common.ScheduleUpdateParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for i := range schedules {
			for _, id := range p.IDs {
				if schedules[i].ID == id {
					schedules[i].Cron = p.Cron
				}
			}
		}
		json.NewEncoder(w).Encode(common.Ack{Status: "ok"})
	})
	mux.HandleFunc("/scheduler/remove", func(w http.ResponseWriter, r *http.Request) {
		var p common.ScheduleRemoveParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		kept := schedules[:0]
		for _, s := range schedules {
			drop := false
			for _, id := range p.IDs {
				if s.ID == id {
					drop = true
				}
			}
			if !drop {
				kept = append(kept, s)
			}
		}
		schedules = kept
		json.NewEncoder(w).Encode(common.Ack{Status: "ok"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &schedules
}

// TestSchedulerClient_CRUD exercises the full request/acknowledge cycle
// over real HTTP.
func TestSchedulerClient_CRUD(t *testing.T) {
	srv, state := newSchedulerTestServer(t)
	sc := NewSchedulerClient(srv.URL, "", nil)
	ctx := context.Background()

	created, err := sc.Add(ctx, common.ScheduleAddParams{URL: "https://example.com/feed", Cron: "0 * * * *", Folder: "feeds"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("server must assign an id")
	}
	if created.NextRun == nil {
		t.Fatal("server must compute next_run")
	}

	list, err := sc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Cron != "0 * * * *" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if err := sc.Update(ctx, []int64{created.ID}, "0 0 * * *"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if (*state)[0].Cron != "0 0 * * *" {
		t.Fatalf("update not applied server-side: %+v", *state)
	}

	if err := sc.Remove(ctx, []int64{created.ID}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(*state) != 0 {
		t.Fatalf("remove not applied server-side: %+v", *state)
	}
}

// TestSchedulerClient_ServerError verifies non-200 responses surface as
// errors with the body attached.
func TestSchedulerClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid cron expression", http.StatusBadRequest)
	}))
	defer srv.Close()

	sc := NewSchedulerClient(srv.URL, "", nil)
	if err := sc.Update(context.Background(), []int64{1}, "nonsense"); err == nil {
		t.Fatal("expected error from 400 response")
	}
}
