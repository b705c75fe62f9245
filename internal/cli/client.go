package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/quotient/internal/domain/checkin"
	"github.com/okian/quotient/internal/domain/types"
)

// maxErrorBody caps how much of a failed response is kept for the error.
const maxErrorBody = 4 << 10

// ErrUnexpectedStatus is wrapped by every StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is returned when the server answers with a non-success code.
type StatusError struct {
	Code    int
	APICode string
	Message string
}

func (e *StatusError) Error() string {
	if e.APICode != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.Code, e.APICode, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// RefreshAck mirrors the POST /api/refresh response.
type RefreshAck struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
}

// SharePreference mirrors the /api/share response.
type SharePreference struct {
	FID     uint64 `json:"fid"`
	Enabled bool   `json:"enabled"`
}

// Client talks to a running quotient server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks that the metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

// Stats returns the server's runtime counters.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out, http.StatusOK)
	return out, err
}

// Profile fetches the full report for a FID or username.
func (c *Client) Profile(ctx context.Context, ident string) (types.ProfileReport, error) {
	var out types.ProfileReport
	err := c.do(ctx, http.MethodGet, "/api/profile/"+url.PathEscape(ident), nil, &out, http.StatusOK)
	return out, err
}

// Refresh queues fids for a background refresh. A 429 is not an error; the
// ack reports how many were accepted.
func (c *Client) Refresh(ctx context.Context, fids []uint64) (RefreshAck, error) {
	var out RefreshAck
	body := struct {
		FIDs []uint64 `json:"fids"`
	}{fids}
	err := c.do(ctx, http.MethodPost, "/api/refresh", body, &out, http.StatusAccepted, http.StatusTooManyRequests)
	return out, err
}

// Leaderboard returns the top limit entries.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var out []types.Entry
	err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(limit), nil, &out, http.StatusOK)
	return out, err
}

// Rank returns the leaderboard entry for fid.
func (c *Client) Rank(ctx context.Context, fid uint64) (types.Entry, error) {
	var out types.Entry
	err := c.do(ctx, http.MethodGet, "/rank/"+strconv.FormatUint(fid, 10), nil, &out, http.StatusOK)
	return out, err
}

// CheckIn runs method (GET, POST or DELETE) against /api/checkin/{key}.
// A 409 on POST still decodes the status.
func (c *Client) CheckIn(ctx context.Context, method, key string) (checkin.Status, error) {
	var out checkin.Status
	path := "/api/checkin/" + url.PathEscape(key)
	switch method {
	case http.MethodDelete:
		return out, c.do(ctx, method, path, nil, nil, http.StatusNoContent)
	case http.MethodPost:
		return out, c.do(ctx, method, path, nil, &out, http.StatusCreated, http.StatusConflict)
	default:
		return out, c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK)
	}
}

// Share reads the share preference for fid, or sets it when enabled is
// non-nil.
func (c *Client) Share(ctx context.Context, fid uint64, enabled *bool) (SharePreference, error) {
	var out SharePreference
	path := "/api/share/" + strconv.FormatUint(fid, 10)
	if enabled == nil {
		return out, c.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK)
	}
	body := struct {
		Enabled *bool `json:"enabled"`
	}{enabled}
	return out, c.do(ctx, http.MethodPut, path, body, &out, http.StatusOK)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, accept ...int) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	ok := false
	for _, code := range accept {
		if resp.StatusCode == code {
			ok = true
			break
		}
	}
	if !ok {
		return decodeStatusError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Code != "" {
		se.APICode = payload.Code
		se.Message = payload.Message
	}
	return se
}
