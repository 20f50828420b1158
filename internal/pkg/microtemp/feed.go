package microtemp

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/pkg/sockets"
)

// ErrFeedUnavailable means the push feed timed out too many times in a short
// period. There is no recovery path; the process has to be restarted.
var ErrFeedUnavailable = errors.New("microtemp: push feed unavailable")

var (
	errReceiveTimeout = errors.New("microtemp: feed receive timed out")
	errFeedClosed     = errors.New("microtemp: feed connection closed")
)

const (
	// retryWindow bounds how far apart two timeouts may be and still count
	// as the same failure episode.
	retryWindow = 5 * time.Minute

	// maxAttempts is the number of timeouts within the window tolerated
	// before the feed is declared unavailable.
	maxAttempts = 5

	// reconnectPause throttles reconnects after non-timeout failures.
	reconnectPause = 5 * time.Second
)

// FeedHandler receives the raw body of every inbound feed frame.
type FeedHandler func(data []byte)

type dialFunc func(ctx context.Context, url string) (sockets.Connection, error)

// FeedManager owns the push feed connection lifecycle: negotiation, receive
// timeout detection and reconnection with a bounded attempt counter. A single
// loop drives the whole state machine, so the counter's lifetime is tied to
// the manager and reconnects never fan out into extra goroutines.
type FeedManager struct {
	client  *Client
	handler FeedHandler
	logger  *zap.Logger
	dial    dialFunc

	timeout     time.Duration
	attempts    int
	lastTimeout time.Time
}

func NewFeedManager(client *Client, timeout time.Duration, handler FeedHandler) *FeedManager {
	return &FeedManager{
		client:  client,
		handler: handler,
		logger:  zap.L(),
		timeout: timeout,
		dial: func(ctx context.Context, url string) (sockets.Connection, error) {
			conn := sockets.New()
			if err := conn.Dial(ctx, url, ""); err != nil {
				return nil, err
			}
			return conn, nil
		},
	}
}

// Run drives the feed until ctx is cancelled or the reconnect budget is
// exhausted. Returning ErrFeedUnavailable is fatal for the gateway: the
// caller is expected to tear the process down.
func (m *FeedManager) Run(ctx context.Context) error {
	for {
		conn, err := m.negotiate(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("feed negotiation failed", zap.Error(err))
			if err := m.pause(ctx); err != nil {
				return err
			}
			continue
		}

		err = m.consume(ctx, conn)
		_ = conn.Close()

		switch {
		case errors.Is(err, errReceiveTimeout):
			if m.registerTimeout(time.Now()) > maxAttempts {
				m.logger.Error("unable to keep the push feed alive, giving up",
					zap.Int("attempts", m.attempts))
				return ErrFeedUnavailable
			}
			m.logger.Info("push feed timed out, reconnecting",
				zap.Int("attempts", m.attempts))
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			m.logger.Error("push feed connection lost, reconnecting", zap.Error(err))
			if err := m.pause(ctx); err != nil {
				return err
			}
		}
	}
}

// negotiate obtains a connection token, opens the websocket, asks the server
// to start pushing and authenticates the socket by sending the raw session
// handle as the first frame.
func (m *FeedManager) negotiate(ctx context.Context) (sockets.Connection, error) {
	neg, err := m.client.Negotiate(ctx)
	if err != nil {
		return nil, err
	}

	feedURL := m.client.FeedURL(neg.ConnectionToken)
	conn, err := m.dial(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	if err := m.client.StartFeed(ctx, neg.ConnectionToken); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Send(sockets.Msg{Body: []byte(m.client.SessionID())}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	m.logger.Info("connected to microtemp push feed")
	return conn, nil
}

// consume delivers frames to the handler until the connection drops, ctx is
// cancelled, or no frame arrives within the receive timeout.
func (m *FeedManager) consume(ctx context.Context, conn sockets.Connection) error {
	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return errReceiveTimeout
		case msg, open := <-conn.Receive():
			if !open {
				return errFeedClosed
			}
			if msg.Err != nil {
				return msg.Err
			}
			m.handler(msg.Body)
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(m.timeout)
		}
	}
}

// registerTimeout counts a receive timeout and returns the updated attempt
// count. Timeouts more than retryWindow apart start a fresh episode.
func (m *FeedManager) registerTimeout(now time.Time) int {
	if !m.lastTimeout.IsZero() && now.Sub(m.lastTimeout) <= retryWindow {
		m.attempts++
	} else {
		m.attempts = 1
	}
	m.lastTimeout = now
	return m.attempts
}

func (m *FeedManager) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(reconnectPause):
		return nil
	}
}
