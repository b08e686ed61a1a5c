package queuecli

import (
	"context"
	"sync"

	cws "github.com/coder/websocket"
)

// wsChannel adapts a coder/websocket.Conn to the jrpc2 channel
// interface. Done is closed on the first transport failure so the
// reconnect loop can observe the drop.
type wsChannel struct {
	conn *cws.Conn
	ctx  context.Context

	once sync.Once
	done chan struct{}
}

func newWSChannel(ctx context.Context, conn *cws.Conn) *wsChannel {
	return &wsChannel{conn: conn, ctx: ctx, done: make(chan struct{})}
}

// Send writes a JSON-RPC message to the WebSocket connection.
func (c *wsChannel) Send(data []byte) error {
	err := c.conn.Write(c.ctx, cws.MessageText, data)
	if err != nil {
		c.fail()
	}
	return err
}

// Recv reads a JSON-RPC message from the WebSocket connection.
func (c *wsChannel) Recv() ([]byte, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		c.fail()
	}
	return data, err
}

// Close shuts down the WebSocket connection with a normal closure status.
func (c *wsChannel) Close() error {
	c.fail()
	return c.conn.Close(cws.StatusNormalClosure, "")
}

func (c *wsChannel) fail() {
	c.once.Do(func() { close(c.done) })
}

// Done is closed once the channel has failed or been closed.
func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}
