package sockets

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Connection interface {
	Dial(ctx context.Context, url, subprotocol string) error
	Send(msg Msg) error
	Receive() <-chan Msg
	IsClosed() bool
	io.Closer
}

// Msg is one inbound or outbound frame. A Msg with Err set is the final
// delivery on the receive channel before it closes.
type Msg struct {
	Body []byte
	Err  error
}

type Conn struct {
	mu               sync.Mutex
	ws               *websocket.Conn
	closed           bool
	sslSkipVerify    bool
	pingIntervalSecs int
	pingMsg          []byte
	receiveBuffer    int
	recv             chan Msg
}

func New(opts ...func(*Conn)) Connection {
	c := &Conn{
		receiveBuffer: 16,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Conn) Dial(ctx context.Context, url, subProtocol string) error {
	dialer := &websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: c.sslSkipVerify,
		},
	}
	if subProtocol != "" {
		dialer.Subprotocols = []string{subProtocol}
	}

	ws, res, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	if res != nil && res.Body != nil {
		_ = res.Body.Close()
	}

	c.mu.Lock()
	c.ws = ws
	c.closed = false
	c.recv = make(chan Msg, c.receiveBuffer)
	c.mu.Unlock()

	go c.readLoop(ws, c.recv)
	c.setupPing()
	return nil
}

// readLoop feeds inbound frames to the receive channel. A read error is
// delivered as the final Msg and the channel is closed.
func (c *Conn) readLoop(ws *websocket.Conn, recv chan Msg) {
	defer close(recv)
	for {
		_, body, err := ws.ReadMessage()
		if err != nil {
			if !c.IsClosed() {
				recv <- Msg{Err: err}
			}
			c.close()
			return
		}
		recv <- Msg{Body: body}
	}
}

func (c *Conn) Receive() <-chan Msg {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recv
}

func (c *Conn) Send(msg Msg) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.ws == nil {
		return errors.New("closed connection")
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, msg.Body); err != nil {
		c.closeLocked()
		return err
	}
	return nil
}

func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close closes the connection; the receive channel drains and closes shortly
// after.
func (c *Conn) Close() error {
	c.close()
	return nil
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Conn) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	if c.ws != nil {
		_ = c.ws.Close()
	}
}

func (c *Conn) setupPing() {
	if c.pingIntervalSecs <= 0 || len(c.pingMsg) == 0 {
		return
	}
	ticker := time.NewTicker(time.Second * time.Duration(c.pingIntervalSecs))
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			if c.Send(Msg{Body: c.pingMsg}) != nil {
				return
			}
		}
	}()
}
