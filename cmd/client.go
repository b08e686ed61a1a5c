package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
	"github.com/tubequeue/tubequeue/pkg/queuecli"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

const defaultServerURL = "http://127.0.0.1:8081"

func serverURL() string {
	if u := os.Getenv(common.ServerURLEnv); u != "" {
		return u
	}
	return defaultServerURL
}

func cliLogger() logger.Logger {
	if os.Getenv(common.DebugEnv) != "" {
		return logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))
	}
	return logger.NewNopLogger()
}

// readyHandler wraps the syncer and signals once the first full snapshot
// has been applied, so one-shot commands know the stores are populated.
type readyHandler struct {
	*queuesync.Syncer
	once  sync.Once
	ready chan struct{}
}

func (h *readyHandler) HandleEvent(kind common.EventType, raw json.RawMessage) error {
	err := h.Syncer.HandleEvent(kind, raw)
	if kind == common.EventAll {
		h.once.Do(func() { close(h.ready) })
	}
	return err
}

// session is a connected event channel plus the synchronized local state.
type session struct {
	client *queuecli.Client
	syncer *queuesync.Syncer
	cancel context.CancelFunc
}

func (s *session) close() { s.cancel() }

// dialSession connects to the daemon and blocks until the initial
// snapshot has been applied or the timeout passes.
func dialSession(ctx context.Context) (*session, error) {
	secret, err := queuecli.LoadSecret()
	if err != nil {
		return nil, fmt.Errorf("loading rpc secret: %w", err)
	}
	log := cliLogger()

	// The handler wraps the syncer, which issues commands through the
	// client, which dispatches events to the handler; build the ring
	// before Run starts reading from the socket.
	h := &readyHandler{ready: make(chan struct{})}
	cl := queuecli.New(serverURL(), h, &queuecli.Options{Secret: secret, Logger: log})
	syncer := queuesync.NewSyncer(cl, log)
	h.Syncer = syncer

	runCtx, cancel := context.WithCancel(ctx)
	go cl.Run(runCtx)

	select {
	case <-h.ready:
		return &session{client: cl, syncer: syncer, cancel: cancel}, nil
	case <-time.After(10 * time.Second):
		cancel()
		return nil, fmt.Errorf("no snapshot from %s within 10s (is the daemon running?)", serverURL())
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}
