package microtemp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/config"
	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

var ErrAuthentication = errors.New("microtemp: authentication failed")

const clientProtocol = "2.1"

// Client talks to the Microtemp cloud API. The session handle is shared
// read-mostly; it is only rewritten on a 401-triggered re-authentication,
// and the mutex makes sure two callers racing on the same 401 run the login
// once between them.
type Client struct {
	cfg    *config.MicrotempConfig
	http   *http.Client
	logger *zap.Logger

	mu        sync.Mutex
	sessionID string
}

func NewClient(cfg *config.MicrotempConfig) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: zap.L(),
	}
}

type authResponse struct {
	SessionID string `json:"SessionId"`
	ErrorCode int    `json:"ErrorCode"`
}

// Authenticate logs in and stores the session handle. A non-200 status or a
// non-zero vendor error code is an authentication failure.
func (c *Client) Authenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticateLocked(ctx)
}

func (c *Client) authenticateLocked(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{
		"Application": 0,
		"Email":       c.cfg.Username,
		"Password":    c.cfg.Password,
	})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/authenticate/user", nil, payload)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAuthentication, resp.StatusCode)
	}
	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return err
	}
	if auth.ErrorCode != 0 {
		return fmt.Errorf("%w: vendor error code %d", ErrAuthentication, auth.ErrorCode)
	}

	c.sessionID = auth.SessionID
	c.logger.Info("authenticated with microtemp api")
	return nil
}

// SessionID returns the current session handle.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// reauthenticate refreshes the session after a 401. If another caller
// already replaced the stale handle, nothing is done.
func (c *Client) reauthenticate(ctx context.Context, stale string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessionID != stale {
		return nil
	}
	return c.authenticateLocked(ctx)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	return req, nil
}

// do sends the request built by build and decodes the JSON response into out.
// On a 401 it re-authenticates once and retries with a request built against
// the fresh session; a second failure propagates.
func (c *Client) do(ctx context.Context, build func(session string) (*http.Request, error), out any) error {
	session := c.SessionID()
	req, err := build(session)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.reauthenticate(ctx, session); err != nil {
			return err
		}
		req, err = build(c.SessionID())
		if err != nil {
			return err
		}
		resp, err = c.http.Do(req)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("microtemp: %s %s failed: %d %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

type thermostatGroup struct {
	GroupName   string             `json:"GroupName"`
	Thermostats []model.Thermostat `json:"Thermostats"`
}

type thermostatsResponse struct {
	Groups []thermostatGroup `json:"Groups"`
}

// Thermostats fetches the full device list, flattened across groups.
func (c *Client) Thermostats(ctx context.Context) ([]model.Thermostat, error) {
	var res thermostatsResponse
	err := c.do(ctx, func(session string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/api/thermostats", url.Values{
			"sessionid": {session},
		}, nil)
	}, &res)
	if err != nil {
		return nil, err
	}

	var thermostats []model.Thermostat
	for _, group := range res.Groups {
		thermostats = append(thermostats, group.Thermostats...)
	}
	return thermostats, nil
}

// ChangeState writes a full thermostat record back to the vendor.
func (c *Client) ChangeState(ctx context.Context, t model.Thermostat) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	c.logger.Debug("sending change state request",
		zap.String("serial_number", t.SerialNumber),
		zap.Stringer("mode", t.RegulationMode))

	return c.do(ctx, func(session string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, "/api/thermostat/change", url.Values{
			"sessionid":    {session},
			"serialnumber": {t.SerialNumber},
		}, payload)
	}, nil)
}

type NegotiateResponse struct {
	ConnectionToken string `json:"ConnectionToken"`
	ConnectionID    string `json:"ConnectionId"`
}

// Negotiate obtains the connection token for the push feed.
func (c *Client) Negotiate(ctx context.Context) (NegotiateResponse, error) {
	var res NegotiateResponse
	err := c.do(ctx, func(string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/gatewaynotification/negotiate", url.Values{
			"clientProtocol": {clientProtocol},
			"_":              {fmt.Sprintf("%d", time.Now().Unix())},
		}, nil)
	}, &res)
	return res, err
}

// StartFeed tells the server to begin pushing notifications on the feed
// connection identified by token.
func (c *Client) StartFeed(ctx context.Context, token string) error {
	return c.do(ctx, func(string) (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, "/gatewaynotification/start", url.Values{
			"transport":       {"webSockets"},
			"clientProtocol":  {clientProtocol},
			"connectionToken": {token},
		}, nil)
	}, nil)
}

// FeedURL builds the websocket URL for a negotiated connection token.
func (c *Client) FeedURL(token string) string {
	host := strings.TrimRight(c.cfg.BaseURL, "/")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	tid := rand.IntN(10) + 1
	return fmt.Sprintf("wss://%s/gatewaynotification/connect?transport=webSockets&clientProtocol=%s&connectionToken=%s&tid=%d",
		host, clientProtocol, url.QueryEscape(token), tid)
}
