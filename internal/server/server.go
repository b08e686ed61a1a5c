// Package server implements the tubequeue daemon: a WebSocket endpoint
// carrying JSON-RPC commands and push notifications, plus plain HTTP
// endpoints for schedule CRUD.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// ScheduleBackend is the schedule store the HTTP endpoints delegate to.
type ScheduleBackend interface {
	List() ([]common.Schedule, error)
	Add(p common.ScheduleAddParams) (*common.Schedule, error)
	Update(ids []int64, cron string) error
	Remove(ids []int64) error
}

// Options configures a daemon Server.
type Options struct {
	// Secret, when non-empty, is required as a Bearer token on every
	// request.
	Secret string
	// Config is pushed to every client on connect as the configuration
	// event.
	Config *common.Config
	// Scheduler backs the /scheduler/* endpoints; nil disables them.
	Scheduler ScheduleBackend
	// Tick is the simulated progress interval.
	Tick   time.Duration
	Logger logger.Logger
}

// Server is the daemon's HTTP/WebSocket front end.
type Server struct {
	state    *State
	notifier *Notifier
	config   *common.Config
	sched    ScheduleBackend
	secret   string
	log      logger.Logger

	hs *http.Server
}

// New creates a daemon server. The returned server owns a fresh State;
// use State to seed or inspect it.
func New(opts Options) *Server {
	l := opts.Logger
	if l == nil {
		l = logger.NewNopLogger()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = &common.Config{}
	}
	n := NewNotifier(l)
	s := &Server{
		state:    NewState(n, l, opts.Tick),
		notifier: n,
		config:   cfg,
		sched:    opts.Scheduler,
		secret:   opts.Secret,
		log:      l,
	}
	return s
}

// State returns the server's download state.
func (s *Server) State() *State { return s.state }

// SetScheduler attaches the schedule backend. It must be called before
// Handler or ListenAndServe.
func (s *Server) SetScheduler(b ScheduleBackend) { s.sched = b }

// Handler returns the daemon's HTTP handler, exposed separately so tests
// can mount it on an httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/connect", s.handleConnect)
	if s.sched != nil {
		mux.HandleFunc("/scheduler/list", s.handleScheduleList)
		mux.HandleFunc("/scheduler/add", s.handleScheduleAdd)
		mux.HandleFunc("/scheduler/update", s.handleScheduleUpdate)
		mux.HandleFunc("/scheduler/remove", s.handleScheduleRemove)
	}
	return mux
}

// ListenAndServe serves the daemon on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.hs = &http.Server{Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- s.hs.Serve(ln) }()
	s.log.Info("daemon listening on %s", ln.Addr())

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.hs.Shutdown(sctx)
	case err := <-errc:
		return err
	}
}

// authorized checks the Bearer token when a secret is configured.
func (s *Server) authorized(r *http.Request) bool {
	if s.secret == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.secret
}

// handleConnect upgrades to WebSocket, runs a per-connection jrpc2
// server with push enabled, and immediately sends the configuration and
// full-snapshot notifications so a freshly connected client needs no
// event replay.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := cws.Accept(w, r, nil)
	if err != nil {
		s.log.Warning("websocket accept: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := &wsChannel{conn: conn, ctx: ctx}
	srv := jrpc2.NewServer(s.methods(), &jrpc2.ServerOptions{
		AllowPush: true,
	})
	srv.Start(ch)
	s.notifier.Register(srv)
	s.log.Info("client connected (%d active)", s.notifier.Count())

	// Initial state, before any broadcast can race ahead of it.
	if err := srv.Notify(ctx, string(common.EventConfiguration), s.config); err == nil {
		err = srv.Notify(ctx, string(common.EventAll), s.state.Snapshot())
	}
	if err != nil {
		s.log.Warning("initial push failed: %v", err)
	}

	srv.Wait()
	s.notifier.Unregister(srv)
	s.log.Info("client disconnected (%d active)", s.notifier.Count())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
