package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

// State holds the daemon's download collections and drives status
// transitions. The actual fetch is performed by an external backend;
// here progression is simulated so clients can be exercised end to end.
// Every mutation is broadcast as the corresponding push event.
type State struct {
	queue *queuesync.Store
	done  *queuesync.Store

	notifier *Notifier
	log      logger.Logger

	// tick is the simulated progress interval; tests shrink it.
	tick time.Duration

	mu      sync.Mutex
	running map[string]chan struct{}
}

// NewState returns an empty daemon state broadcasting through n.
func NewState(n *Notifier, l logger.Logger, tick time.Duration) *State {
	if l == nil {
		l = logger.NewNopLogger()
	}
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}
	return &State{
		queue:    queuesync.NewStore(),
		done:     queuesync.NewStore(),
		notifier: n,
		log:      l,
		tick:     tick,
		running:  make(map[string]chan struct{}),
	}
}

func newID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Snapshot returns the full queue and done state in order.
func (st *State) Snapshot() *common.Snapshot {
	snap := &common.Snapshot{}
	for _, d := range st.queue.Items() {
		cp := d
		snap.Queue = append(snap.Queue, &cp)
	}
	for _, d := range st.done.Items() {
		cp := d
		snap.Done = append(snap.Done, &cp)
	}
	return snap
}

func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return u.Host
	}
	return base
}

// Add validates and accepts a new download, broadcasting the added
// event. Validation failures are reported through the result status so
// the client can surface them synchronously.
func (st *State) Add(p common.AddParams) *common.AddResult {
	if p.URL == "" {
		return &common.AddResult{Status: "error", Msg: "missing url"}
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Scheme == "" {
		return &common.AddResult{Status: "error", Msg: "invalid url: " + p.URL}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &common.AddResult{Status: "error", Msg: "unsupported scheme: " + u.Scheme}
	}

	d := &common.Download{
		ID:               newID(),
		URL:              p.URL,
		Title:            titleFromURL(p.URL),
		Status:           common.StatusPending,
		Quality:          p.Quality,
		Format:           p.Format,
		Folder:           p.Folder,
		CustomNamePrefix: p.CustomNamePrefix,
	}
	d.Filename = st.filenameFor(d)
	st.queue.Upsert(d)
	st.notifier.Broadcast(string(common.EventAdded), d)
	st.log.Info("added download %s (%s)", d.ID, d.URL)

	if p.AutoStart {
		st.startOne(d.ID)
	}
	return &common.AddResult{Status: "ok"}
}

func (st *State) filenameFor(d *common.Download) string {
	name := d.Title
	if d.CustomNamePrefix != "" {
		name = d.CustomNamePrefix + " " + name
	}
	ext := ".mp4"
	if queuesync.IsAudioType(d.Format, d.Quality) {
		ext = ".mp3"
	}
	if !strings.Contains(name, ".") {
		name += ext
	}
	return name
}

// Start begins the given pending downloads, broadcasting updated events.
// Unknown or already-running ids are skipped.
func (st *State) Start(ids []string) {
	for _, id := range ids {
		st.startOne(id)
	}
}

func (st *State) startOne(id string) {
	d, ok := st.queue.Get(id)
	if !ok || d.Status != common.StatusPending {
		return
	}

	st.mu.Lock()
	if _, running := st.running[id]; running {
		st.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	st.running[id] = stop
	st.mu.Unlock()

	upd := &common.Download{ID: id, Status: common.StatusDownloading, Size: 100 << 20}
	st.queue.Upsert(upd)
	if cur, ok := st.queue.Get(id); ok {
		st.notifier.Broadcast(string(common.EventUpdated), &cur)
	}
	go st.simulate(id, stop)
}

// simulate steps a download to completion, broadcasting an updated event
// per tick and the completed event at the end.
func (st *State) simulate(id string, stop chan struct{}) {
	defer func() {
		st.mu.Lock()
		delete(st.running, id)
		st.mu.Unlock()
	}()

	for percent := 10.0; ; percent += 10 {
		select {
		case <-stop:
			return
		case <-time.After(st.tick):
		}
		d, ok := st.queue.Get(id)
		if !ok {
			return
		}
		if percent >= 100 {
			fin := d
			fin.Status = common.StatusFinished
			fin.Percent = 100
			fin.Speed = 0
			fin.ETA = 0
			if !st.queue.TransferTo(st.done, id, &fin) {
				return
			}
			st.notifier.Broadcast(string(common.EventCompleted), &fin)
			st.log.Info("download %s finished", id)
			return
		}
		d.Percent = percent
		d.Speed = 4 << 20
		d.ETA = int64((100 - percent) / 10)
		st.queue.Upsert(&d)
		st.notifier.Broadcast(string(common.EventUpdated), &d)
	}
}

// Delete removes ids from the chosen collection. Queue removals cancel
// any running simulation and broadcast canceled; done removals broadcast
// cleared.
func (st *State) Delete(where string, ids []string) *common.Ack {
	switch where {
	case common.WhereQueue:
		st.mu.Lock()
		for _, id := range ids {
			if stop, ok := st.running[id]; ok {
				close(stop)
				delete(st.running, id)
			}
		}
		st.mu.Unlock()
		if removed := st.queue.RemoveMany(ids); len(removed) > 0 {
			st.notifier.Broadcast(string(common.EventCanceled), &common.IDsPayload{IDs: removed})
		}
	case common.WhereDone:
		if removed := st.done.RemoveMany(ids); len(removed) > 0 {
			st.notifier.Broadcast(string(common.EventCleared), &common.IDsPayload{IDs: removed})
		}
	default:
		return &common.Ack{Status: "error", Msg: fmt.Sprintf("unknown collection %q", where)}
	}
	return &common.Ack{Status: "ok"}
}
