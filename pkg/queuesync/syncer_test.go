package queuesync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// fakeCommander records issued commands and replies with canned results.
type fakeCommander struct {
	adds    []common.AddParams
	starts  [][]string
	deletes []common.DeleteParams
	addRes  common.AddResult
}

func (f *fakeCommander) Add(_ context.Context, p common.AddParams) (*common.AddResult, error) {
	f.adds = append(f.adds, p)
	res := f.addRes
	if res.Status == "" {
		res.Status = "ok"
	}
	return &res, nil
}

func (f *fakeCommander) Start(_ context.Context, ids []string) error {
	f.starts = append(f.starts, ids)
	return nil
}

func (f *fakeCommander) Delete(_ context.Context, where string, ids []string) error {
	f.deletes = append(f.deletes, common.DeleteParams{Where: where, IDs: ids})
	return nil
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func apply(t *testing.T, s *Syncer, kind common.EventType, v any) {
	t.Helper()
	if err := s.HandleEvent(kind, mustRaw(t, v)); err != nil {
		t.Fatalf("%s: %v", kind, err)
	}
}

// assertMutualExclusion checks that no id lives in both stores.
func assertMutualExclusion(t *testing.T, s *Syncer) {
	t.Helper()
	for _, id := range s.Queue.Keys() {
		if s.Done.Has(id) {
			t.Fatalf("id %s present in both queue and done", id)
		}
	}
}

// TestSyncer_AddedUpdatedRouting verifies added/updated events build the
// queue and that a late update for a completed id merges into done
// instead of resurrecting a queue row.
func TestSyncer_AddedUpdatedRouting(t *testing.T) {
	s := NewSyncer(&fakeCommander{}, logger.NewNopLogger())

	apply(t, s, common.EventAdded, dl("a", common.StatusPending))
	apply(t, s, common.EventAdded, dl("a", common.StatusPending)) // duplicate delivery
	apply(t, s, common.EventUpdated, &common.Download{ID: "a", Status: common.StatusDownloading, Percent: 10})

	if s.Queue.Len() != 1 {
		t.Fatalf("expected 1 queue row, got %d", s.Queue.Len())
	}

	apply(t, s, common.EventCompleted, dl("a", common.StatusFinished))
	apply(t, s, common.EventUpdated, &common.Download{ID: "a", Percent: 100})

	if s.Queue.Len() != 0 {
		t.Fatal("late update resurrected a queue row")
	}
	got, _ := s.Done.Get("a")
	if got.Percent != 100 {
		t.Fatalf("late update not merged into done: %+v", got)
	}
	assertMutualExclusion(t, s)
}

// TestSyncer_CompletedTwice verifies the transfer is exactly-once under
// duplicate completion delivery.
func TestSyncer_CompletedTwice(t *testing.T) {
	s := NewSyncer(&fakeCommander{}, logger.NewNopLogger())
	apply(t, s, common.EventAdded, dl("a", common.StatusDownloading))

	fin := dl("a", common.StatusFinished)
	apply(t, s, common.EventCompleted, fin)
	apply(t, s, common.EventCompleted, fin)

	if s.Done.Len() != 1 || s.Queue.Len() != 0 {
		t.Fatalf("expected 1 done / 0 queue, got %d / %d", s.Done.Len(), s.Queue.Len())
	}
	assertMutualExclusion(t, s)
}

// TestSyncer_Snapshot verifies a full resend reconciles both stores:
// stale rows dropped, new rows added, moved rows transferred.
func TestSyncer_Snapshot(t *testing.T) {
	s := NewSyncer(&fakeCommander{}, logger.NewNopLogger())
	apply(t, s, common.EventAdded, dl("stale", common.StatusDownloading))
	apply(t, s, common.EventAdded, dl("moving", common.StatusDownloading))

	snap := common.Snapshot{
		Queue: []*common.Download{dl("fresh", common.StatusPending)},
		Done:  []*common.Download{dl("moving", common.StatusFinished)},
	}
	apply(t, s, common.EventAll, snap)

	if keys := s.Queue.Keys(); len(keys) != 1 || keys[0] != "fresh" {
		t.Fatalf("expected queue [fresh], got %v", keys)
	}
	if !s.Done.Has("moving") {
		t.Fatal("moved id missing from done")
	}
	if s.Queue.Has("stale") || s.Done.Has("stale") {
		t.Fatal("stale id survived the snapshot")
	}
	assertMutualExclusion(t, s)
}

// TestSyncer_RemovalEvents verifies canceled targets the queue, cleared
// targets done, and deleted targets both.
func TestSyncer_RemovalEvents(t *testing.T) {
	s := NewSyncer(&fakeCommander{}, logger.NewNopLogger())
	apply(t, s, common.EventAdded, dl("q1", common.StatusPending))
	apply(t, s, common.EventAdded, dl("q2", common.StatusPending))
	apply(t, s, common.EventCompleted, dl("q2", common.StatusFinished))

	apply(t, s, common.EventCanceled, common.IDsPayload{IDs: []string{"q1"}})
	if s.Queue.Len() != 0 {
		t.Fatal("canceled did not remove from queue")
	}

	apply(t, s, common.EventCleared, common.IDsPayload{IDs: []string{"q2"}})
	if s.Done.Len() != 0 {
		t.Fatal("cleared did not remove from done")
	}

	// Re-delivery after removal is a no-op.
	apply(t, s, common.EventCanceled, common.IDsPayload{IDs: []string{"q1"}})
	apply(t, s, common.EventCleared, common.IDsPayload{IDs: []string{"q2"}})
}

// TestSyncer_AddError verifies a server-reported add error surfaces as an
// error and leaves both stores untouched.
func TestSyncer_AddError(t *testing.T) {
	cmd := &fakeCommander{addRes: common.AddResult{Status: "error", Msg: "unsupported url"}}
	s := NewSyncer(cmd, logger.NewNopLogger())

	err := s.AddDownload(context.Background(), common.AddParams{URL: "ftp://nope"})
	if err == nil {
		t.Fatal("expected error from server-reported failure")
	}
	if s.Queue.Len() != 0 || s.Done.Len() != 0 {
		t.Fatal("failed add mutated local stores")
	}
}

// TestSyncer_RetryFailed verifies retrying a done store with two errored
// and one finished record issues exactly two add commands and two delete
// commands, touching no finished record.
func TestSyncer_RetryFailed(t *testing.T) {
	cmd := &fakeCommander{}
	s := NewSyncer(cmd, logger.NewNopLogger())

	for _, d := range []*common.Download{
		dl("f1", common.StatusFinished),
		dl("e1", common.StatusError),
		dl("e2", common.StatusError),
	} {
		apply(t, s, common.EventAdded, d)
		apply(t, s, common.EventCompleted, d)
	}

	if err := s.RetryFailed(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	if len(cmd.adds) != 2 {
		t.Fatalf("expected exactly 2 add commands, got %d", len(cmd.adds))
	}
	if len(cmd.deletes) != 2 {
		t.Fatalf("expected exactly 2 delete commands, got %d", len(cmd.deletes))
	}
	for _, del := range cmd.deletes {
		if del.Where != common.WhereDone || len(del.IDs) != 1 {
			t.Fatalf("unexpected delete command: %+v", del)
		}
		if del.IDs[0] == "f1" {
			t.Fatal("retry touched a finished record")
		}
	}
	for _, add := range cmd.adds {
		if !add.AutoStart {
			t.Fatal("retried download must auto-start")
		}
	}
}

// TestSyncer_DeleteSelected verifies deletion goes out as a command and
// does not remove rows locally before the event arrives.
func TestSyncer_DeleteSelected(t *testing.T) {
	cmd := &fakeCommander{}
	s := NewSyncer(cmd, logger.NewNopLogger())
	apply(t, s, common.EventAdded, dl("a", common.StatusPending))
	s.QueueSel.Toggle("a")

	if err := s.DeleteSelected(context.Background(), common.WhereQueue); err != nil {
		t.Fatalf("delete selected: %v", err)
	}
	if len(cmd.deletes) != 1 {
		t.Fatalf("expected 1 delete command, got %d", len(cmd.deletes))
	}
	if s.Queue.Len() != 1 {
		t.Fatal("row removed before the server acknowledged")
	}

	apply(t, s, common.EventCanceled, common.IDsPayload{IDs: []string{"a"}})
	if s.Queue.Len() != 0 {
		t.Fatal("row not removed after the event arrived")
	}
}

// TestSyncer_ClearFlows verifies clear-completed and clear-failed target
// only the matching statuses.
func TestSyncer_ClearFlows(t *testing.T) {
	cmd := &fakeCommander{}
	s := NewSyncer(cmd, logger.NewNopLogger())
	for _, d := range []*common.Download{
		dl("f1", common.StatusFinished),
		dl("e1", common.StatusError),
	} {
		apply(t, s, common.EventAdded, d)
		apply(t, s, common.EventCompleted, d)
	}

	if err := s.ClearCompleted(context.Background()); err != nil {
		t.Fatalf("clear completed: %v", err)
	}
	if err := s.ClearFailed(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if len(cmd.deletes) != 2 {
		t.Fatalf("expected 2 delete commands, got %d", len(cmd.deletes))
	}
	if cmd.deletes[0].IDs[0] != "f1" || cmd.deletes[1].IDs[0] != "e1" {
		t.Fatalf("wrong targets: %+v", cmd.deletes)
	}
}

// TestSyncer_ConfigurationEvent verifies config pushes land in the cache.
func TestSyncer_ConfigurationEvent(t *testing.T) {
	s := NewSyncer(&fakeCommander{}, logger.NewNopLogger())
	apply(t, s, common.EventConfiguration, common.Config{
		CustomDirs:   true,
		DownloadDirs: []string{"movies"},
	})
	cfg, ok := s.Config.Get()
	if !ok || !cfg.CustomDirs || len(cfg.DownloadDirs) != 1 {
		t.Fatalf("configuration not applied: %+v", cfg)
	}
}

// TestSyncer_UnknownEvent verifies unknown kinds are ignored without
// error.
func TestSyncer_UnknownEvent(t *testing.T) {
	ml := logger.NewMockLogger()
	s := NewSyncer(&fakeCommander{}, ml)
	if err := s.HandleEvent(common.EventType("mystery"), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("unknown event must not error: %v", err)
	}
	if len(ml.WarningCalls) != 1 {
		t.Fatalf("expected one warning, got %v", ml.WarningCalls)
	}
}
