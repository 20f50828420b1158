package microtemp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/microtemp-integration/internal/pkg/config"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

func newTestClient(baseURL string) *Client {
	return NewClient(&config.MicrotempConfig{
		BaseURL:  baseURL,
		Username: "user@example.com",
		Password: "secret",
	})
}

func authHandler(sessions *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := sessions.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"SessionId": map[int32]string{1: "session-1", 2: "session-2"}[min32(n, 2)],
			"ErrorCode": 0,
		})
	}
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func TestAuthenticate(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/authenticate/user", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["Email"])
		assert.Equal(t, float64(0), body["Application"])
		authHandler(&sessions)(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))
	assert.Equal(t, "session-1", c.SessionID())
}

func TestAuthenticateVendorError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"SessionId": "", "ErrorCode": 5})
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestThermostatsFlattensGroups(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/authenticate/user":
			authHandler(&sessions)(w, r)
		case "/api/thermostats":
			assert.Equal(t, "session-1", r.URL.Query().Get("sessionid"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"Groups": []map[string]any{
					{"GroupName": "Hallway", "Thermostats": []map[string]any{{"SerialNumber": "A1"}}},
					{"GroupName": "Empty", "Thermostats": []map[string]any{}},
					{"GroupName": "Bath", "Thermostats": []map[string]any{{"SerialNumber": "B2"}}},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	thermostats, err := c.Thermostats(context.Background())
	require.NoError(t, err)
	require.Len(t, thermostats, 2)
	assert.Equal(t, "A1", thermostats[0].SerialNumber)
	assert.Equal(t, "B2", thermostats[1].SerialNumber)
}

func TestDoRetriesOnceOn401(t *testing.T) {
	var sessions atomic.Int32
	var listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/authenticate/user":
			authHandler(&sessions)(w, r)
		case "/api/thermostats":
			if listCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			// The retry must carry the refreshed session.
			assert.Equal(t, "session-2", r.URL.Query().Get("sessionid"))
			_ = json.NewEncoder(w).Encode(map[string]any{"Groups": []any{}})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	_, err := c.Thermostats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), listCalls.Load())
	assert.Equal(t, "session-2", c.SessionID())
}

func TestDoSecond401Propagates(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/authenticate/user" {
			authHandler(&sessions)(w, r)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	_, err := c.Thermostats(context.Background())
	assert.Error(t, err)
}

func TestChangeStateSendsFullRecord(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/authenticate/user":
			authHandler(&sessions)(w, r)
		case "/api/thermostat/change":
			assert.Equal(t, "ABC123", r.URL.Query().Get("serialnumber"))
			assert.Equal(t, "session-1", r.URL.Query().Get("sessionid"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ABC123", body["SerialNumber"])
			assert.Equal(t, float64(5), body["RegulationMode"])
			_ = json.NewEncoder(w).Encode(map[string]any{"ErrorCode": 0})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	err := c.ChangeState(context.Background(), model.Thermostat{
		SerialNumber:   "ABC123",
		RegulationMode: model.ModeOff,
	})
	require.NoError(t, err)
}

func TestNegotiateAndFeedURL(t *testing.T) {
	var sessions atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/authenticate/user":
			authHandler(&sessions)(w, r)
		case "/gatewaynotification/negotiate":
			assert.Equal(t, "2.1", r.URL.Query().Get("clientProtocol"))
			assert.NotEmpty(t, r.URL.Query().Get("_"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ConnectionToken": "tok/en+1"})
		case "/gatewaynotification/start":
			assert.Equal(t, "webSockets", r.URL.Query().Get("transport"))
			assert.Equal(t, "tok/en+1", r.URL.Query().Get("connectionToken"))
			_ = json.NewEncoder(w).Encode(map[string]any{"Response": "started"})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	require.NoError(t, c.Authenticate(context.Background()))

	neg, err := c.Negotiate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok/en+1", neg.ConnectionToken)
	require.NoError(t, c.StartFeed(context.Background(), neg.ConnectionToken))

	feedURL := c.FeedURL(neg.ConnectionToken)
	assert.Contains(t, feedURL, "wss://")
	assert.Contains(t, feedURL, "connectionToken=tok%2Fen%2B1")
	assert.Contains(t, feedURL, "clientProtocol=2.1")
	assert.Regexp(t, `tid=([1-9]|10)$`, feedURL)
}
