// Package queuecli implements the client side of the tubequeue event
// channel: a persistent, reconnecting WebSocket carrying JSON-RPC 2.0
// calls for commands and server notifications for push events, plus the
// plain HTTP transport for schedule CRUD.
package queuecli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	cws "github.com/coder/websocket"
	"github.com/creachadair/jrpc2"

	"github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/pkg/logger"
)

// ErrNotConnected is returned by commands while the channel is down.
var ErrNotConnected = errors.New("event channel not connected")

// EventHandler consumes push events. The queuesync.Syncer implements it.
type EventHandler interface {
	HandleEvent(kind common.EventType, raw json.RawMessage) error
}

// Options tunes a Client. The zero value picks sensible defaults.
type Options struct {
	// Secret authenticates the WebSocket upgrade. Empty disables auth.
	Secret string
	// Logger defaults to a NopLogger.
	Logger logger.Logger
	// MinBackoff/MaxBackoff bound the reconnect delay (1s..30s default).
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Client is the event channel. Run keeps one WebSocket open, dispatching
// push notifications to the handler and re-dialing with exponential
// backoff after a drop. The server re-sends configuration and a full
// snapshot on every connect, so nothing is replayed client-side.
//
// Connection loss is observable through Connected and OnStatus; store
// contents are untouched by a drop.
type Client struct {
	baseURL string
	secret  string
	handler EventHandler
	log     logger.Logger

	minBackoff time.Duration
	maxBackoff time.Duration

	mu        sync.RWMutex
	cli       *jrpc2.Client
	connected bool
	statusFns []func(bool)
}

// New returns a client for the daemon at baseURL (e.g.
// "http://127.0.0.1:8793") delivering events to h.
func New(baseURL string, h EventHandler, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}
	l := opts.Logger
	if l == nil {
		l = logger.NewNopLogger()
	}
	minB := opts.MinBackoff
	if minB <= 0 {
		minB = time.Second
	}
	maxB := opts.MaxBackoff
	if maxB <= 0 {
		maxB = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     opts.Secret,
		handler:    h,
		log:        l,
		minBackoff: minB,
		maxBackoff: maxB,
	}
}

// BaseURL returns the daemon base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) wsURL() string {
	url := c.baseURL + "/connect"
	if strings.HasPrefix(url, "https") {
		return "wss" + strings.TrimPrefix(url, "https")
	}
	return "ws" + strings.TrimPrefix(url, "http")
}

// OnStatus registers fn to run on every connectivity change. The current
// state is delivered immediately.
func (c *Client) OnStatus(fn func(connected bool)) {
	c.mu.Lock()
	c.statusFns = append(c.statusFns, fn)
	cur := c.connected
	c.mu.Unlock()
	fn(cur)
}

// Connected reports whether the channel is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) setConnected(v bool, cli *jrpc2.Client) {
	c.mu.Lock()
	c.connected = v
	c.cli = cli
	fns := make([]func(bool), len(c.statusFns))
	copy(fns, c.statusFns)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Run connects and keeps the channel alive until ctx is cancelled. Every
// drop is logged, surfaced through OnStatus, and retried with
// exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.minBackoff
	for {
		connected, err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			// The session was up; the next drop starts a fresh ramp.
			backoff = c.minBackoff
		}
		if err != nil {
			c.log.Warning("event channel dropped: %v, reconnecting in %s", err, backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

// runOnce dials and serves one session. It reports whether the dial
// succeeded so the reconnect loop can reset its backoff.
func (c *Client) runOnce(ctx context.Context) (bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := &cws.DialOptions{}
	if c.secret != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.secret}}
	}
	conn, _, err := cws.Dial(dialCtx, c.wsURL(), opts)
	if err != nil {
		return false, err
	}

	ch := newWSChannel(ctx, conn)
	cli := jrpc2.NewClient(ch, &jrpc2.ClientOptions{
		OnNotify: c.dispatch,
	})

	c.log.Info("event channel connected to %s", c.baseURL)
	c.setConnected(true, cli)
	defer c.setConnected(false, nil)

	select {
	case <-ctx.Done():
		cli.Close()
		return true, ctx.Err()
	case <-ch.Done():
		cli.Close()
		return true, errors.New("connection closed")
	}
}

// dispatch routes one push notification to the handler. Handler errors
// are logged, never fatal: a malformed event must not take the channel
// down.
func (c *Client) dispatch(req *jrpc2.Request) {
	var raw json.RawMessage
	if err := req.UnmarshalParams(&raw); err != nil {
		c.log.Error("bad push params for %s: %v", req.Method(), err)
		return
	}
	if err := c.handler.HandleEvent(common.EventType(req.Method()), raw); err != nil {
		c.log.Error("handling %s event: %v", req.Method(), err)
	}
}

// call issues one RPC over the current connection.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	c.mu.RLock()
	cli := c.cli
	c.mu.RUnlock()
	if cli == nil {
		return ErrNotConnected
	}
	rsp, err := cli.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return rsp.UnmarshalResult(result)
}
