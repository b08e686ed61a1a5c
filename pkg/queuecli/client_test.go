package queuecli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

// pushServer is a minimal daemon stand-in: it accepts WebSocket
// connections and pushes configuration plus the current snapshot on each
// connect, the way the real daemon greets a client.
type pushServer struct {
	mu   sync.Mutex
	snap common.Snapshot
}

func (ps *pushServer) setSnapshot(s common.Snapshot) {
	ps.mu.Lock()
	ps.snap = s
	ps.mu.Unlock()
}

func (ps *pushServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		return
	}
	ch := newWSChannel(r.Context(), conn)
	srv := jrpc2.NewServer(handler.Map{}, &jrpc2.ServerOptions{AllowPush: true})
	srv.Start(ch)
	srv.Notify(r.Context(), string(common.EventConfiguration), &common.Config{})
	ps.mu.Lock()
	snap := ps.snap
	ps.mu.Unlock()
	srv.Notify(r.Context(), string(common.EventAll), &snap)
	srv.Wait()
}

// countingHandler wraps the syncer and counts applied snapshots so the
// test can wait for the post-reconnect resend.
type countingHandler struct {
	syncer *queuesync.Syncer

	mu        sync.Mutex
	snapshots int
}

func (h *countingHandler) HandleEvent(kind common.EventType, raw json.RawMessage) error {
	err := h.syncer.HandleEvent(kind, raw)
	if kind == common.EventAll {
		h.mu.Lock()
		h.snapshots++
		h.mu.Unlock()
	}
	return err
}

func (h *countingHandler) snapshotCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshots
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// A dropped connection is surfaced through the status listener, the
// stores keep their contents while down, and the backoff redial applies
// the freshly resent snapshot so the stores reconcile without replaying
// any missed events.
func TestReconnectResyncsFromSnapshot(t *testing.T) {
	ps := &pushServer{}
	ps.setSnapshot(common.Snapshot{
		Queue: []*common.Download{{ID: "a", Title: "first", Status: common.StatusDownloading, Percent: 40}},
	})
	mux := http.NewServeMux()
	mux.HandleFunc("/connect", ps.handle)
	hs := httptest.NewServer(mux)
	defer hs.Close()

	h := &countingHandler{}
	cl := New(hs.URL, h, &Options{
		MinBackoff: 20 * time.Millisecond,
		MaxBackoff: 100 * time.Millisecond,
	})
	syncer := queuesync.NewSyncer(cl, nil)
	h.syncer = syncer

	var statusMu sync.Mutex
	var statuses []bool
	rowSurvivedDrop := true
	cl.OnStatus(func(up bool) {
		statusMu.Lock()
		statuses = append(statuses, up)
		// Registration delivers the current (down) state before any
		// snapshot; only a drop after the stores were populated counts.
		if !up && h.snapshotCount() >= 1 && !syncer.Queue.Has("a") {
			rowSurvivedDrop = false
		}
		statusMu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cl.Run(ctx)

	waitUntil(t, "initial snapshot", func() bool { return h.snapshotCount() >= 1 })
	if !cl.Connected() {
		t.Error("expected Connected() after initial snapshot")
	}
	if d, ok := syncer.Queue.Get("a"); !ok || d.Title != "first" {
		t.Fatalf("expected row a in queue, got %+v (present=%v)", d, ok)
	}

	// The download finished while the client was away: the drop loses
	// the completed event, only the snapshot resend carries the move.
	ps.setSnapshot(common.Snapshot{
		Done: []*common.Download{{ID: "a", Title: "first", Status: common.StatusFinished, Percent: 100}},
	})
	hs.CloseClientConnections()

	waitUntil(t, "post-reconnect snapshot", func() bool { return h.snapshotCount() >= 2 })
	waitUntil(t, "stores to reconcile", func() bool {
		return syncer.Queue.Len() == 0 && syncer.Done.Has("a")
	})
	d, _ := syncer.Done.Get("a")
	if d.Status != common.StatusFinished {
		t.Errorf("expected finished row after resync, got %s", d.Status)
	}

	statusMu.Lock()
	defer statusMu.Unlock()
	if !rowSurvivedDrop {
		t.Error("store contents were discarded while disconnected")
	}
	// The listener must have seen up, then down at the drop, then up
	// again after the redial; the immediate down delivered at
	// registration does not count as the drop.
	state := 0
	for _, up := range statuses {
		switch {
		case state == 0 && up:
			state = 1
		case state == 1 && !up:
			state = 2
		case state == 2 && up:
			state = 3
		}
	}
	if state != 3 {
		t.Errorf("expected status sequence up, down, up again; got %v", statuses)
	}
}
