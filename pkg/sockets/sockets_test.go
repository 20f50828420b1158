package sockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades the request and echoes every text frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, msg, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConn_SendAndReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New()
	require.NoError(t, c.Dial(context.Background(), wsURL(srv), ""))
	defer c.Close()

	require.NoError(t, c.Send(Msg{Body: []byte("hello")}))

	select {
	case msg := <-c.Receive():
		require.NoError(t, msg.Err)
		assert.Equal(t, "hello", string(msg.Body))
	case <-time.After(5 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestConn_ReceiveClosesOnServerDisconnect(t *testing.T) {
	srv := echoServer(t)

	c := New()
	require.NoError(t, c.Dial(context.Background(), wsURL(srv), ""))

	srv.Close()

	select {
	case msg, open := <-c.Receive():
		if open {
			assert.Error(t, msg.Err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("receive channel did not observe the disconnect")
	}
	assert.Eventually(t, c.IsClosed, 5*time.Second, 10*time.Millisecond)
}

func TestConn_SendAfterClose(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := New()
	require.NoError(t, c.Dial(context.Background(), wsURL(srv), ""))
	require.NoError(t, c.Close())

	err := c.Send(Msg{Body: []byte("late")})
	assert.Error(t, err)
}

func TestConn_DialFailure(t *testing.T) {
	c := New()
	err := c.Dial(context.Background(), "ws://127.0.0.1:1/nope", "")
	assert.Error(t, err)
}
