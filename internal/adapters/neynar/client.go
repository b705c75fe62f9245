// Package neynar is a client for the Neynar Farcaster API, the provider of
// profile metrics for the ranking engine.
package neynar

import (
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

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/pkg/logger"
	"github.com/okian/quotient/pkg/metrics"
)

// Defaults.
const (
	DefaultBaseURL = "https://api.neynar.com"
	DefaultTimeout = 10 * time.Second

	// bulkLimit is the most FIDs Neynar accepts per bulk call.
	bulkLimit = 100
	// maxChannels caps the channel listing page size.
	maxChannels = 100
	// maxBody bounds how much of a response is read.
	maxBody = 4 << 20
)

// Endpoint labels used in metrics and logs.
const (
	endpointBulk       = "user_bulk"
	endpointByUsername = "user_by_username"
	endpointChannels   = "user_channels"
)

// Client fetches Farcaster profiles and channels. It is safe for concurrent
// use; identical in-flight lookups share a single upstream request.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	http    *http.Client
	logger  logger.Logger
	now     func() time.Time
	group   singleflight.Group
}

// New constructs a client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		http:    &http.Client{},
		logger:  logger.Get().Named("neynar"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserByFID fetches one profile.
func (c *Client) UserByFID(ctx context.Context, fid uint64) (model.Profile, error) {
	if fid == 0 {
		return model.Profile{}, ErrInvalidIdentifier
	}
	return c.shared(ctx, "fid:"+strconv.FormatUint(fid, 10), func(ctx context.Context) (model.Profile, error) {
		users, err := c.bulk(ctx, []uint64{fid})
		if err != nil {
			return model.Profile{}, err
		}
		if len(users) == 0 {
			return model.Profile{}, ErrNotFound
		}
		return users[0], nil
	})
}

// UsersByFID fetches many profiles, batching by the bulk limit. Unknown FIDs
// are absent from the result; order follows the upstream response.
func (c *Client) UsersByFID(ctx context.Context, fids ...uint64) ([]model.Profile, error) {
	for _, fid := range fids {
		if fid == 0 {
			return nil, ErrInvalidIdentifier
		}
	}
	if len(fids) == 0 {
		return nil, nil
	}

	batches := make([][]model.Profile, (len(fids)+bulkLimit-1)/bulkLimit)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range batches {
		lo := i * bulkLimit
		hi := min(lo+bulkLimit, len(fids))
		g.Go(func() error {
			users, err := c.bulk(gctx, fids[lo:hi])
			batches[i] = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Profile, 0, len(fids))
	for _, b := range batches {
		out = append(out, b...)
	}
	return out, nil
}

// UserByUsername fetches a profile by handle. A leading "@" is ignored.
func (c *Client) UserByUsername(ctx context.Context, username string) (model.Profile, error) {
	username = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if username == "" {
		return model.Profile{}, ErrInvalidIdentifier
	}
	return c.shared(ctx, "user:"+username, func(ctx context.Context) (model.Profile, error) {
		q := url.Values{"username": {username}}
		var resp usernameResponse
		if err := c.get(ctx, endpointByUsername, "/v2/farcaster/user/by_username", q, &resp); err != nil {
			return model.Profile{}, err
		}
		if resp.User == nil || resp.User.FID == 0 {
			return model.Profile{}, ErrNotFound
		}
		return resp.User.toProfile(c.now()), nil
	})
}

// UserChannels lists channels fid is active in. limit is clamped to
// [1, 100]; 0 means 25.
func (c *Client) UserChannels(ctx context.Context, fid uint64, limit int) ([]model.Channel, error) {
	if fid == 0 {
		return nil, ErrInvalidIdentifier
	}
	if limit <= 0 {
		limit = 25
	}
	limit = min(limit, maxChannels)

	q := url.Values{
		"fid":   {strconv.FormatUint(fid, 10)},
		"limit": {strconv.Itoa(limit)},
	}
	var resp channelsResponse
	if err := c.get(ctx, endpointChannels, "/v2/farcaster/user/channels", q, &resp); err != nil {
		return nil, err
	}

	raw := resp.Channels
	if len(raw) == 0 {
		raw = resp.Result.Channels
	}
	out := make([]model.Channel, 0, len(raw))
	for i := range raw {
		ch := raw[i].toModel()
		if ch.ID == "" {
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

// shared runs fetch once for every concurrent caller of key. The fetch is
// detached from the first caller's cancellation and bounded by the client
// timeout; each caller stops waiting when its own ctx is done.
func (c *Client) shared(ctx context.Context, key string, fetch func(context.Context) (model.Profile, error)) (model.Profile, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return fetch(detached)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return model.Profile{}, res.Err
		}
		return res.Val.(model.Profile), nil
	case <-ctx.Done():
		return model.Profile{}, fmt.Errorf("%w: %w", ErrUpstream, ctx.Err())
	}
}

func (c *Client) bulk(ctx context.Context, fids []uint64) ([]model.Profile, error) {
	ids := make([]string, len(fids))
	for i, fid := range fids {
		ids[i] = strconv.FormatUint(fid, 10)
	}
	var resp bulkResponse
	q := url.Values{"fids": {strings.Join(ids, ",")}}
	if err := c.get(ctx, endpointBulk, "/v2/farcaster/user/bulk", q, &resp); err != nil {
		return nil, err
	}

	at := c.now()
	out := make([]model.Profile, 0, len(resp.Users))
	for i := range resp.Users {
		if resp.Users[i].FID == 0 {
			continue
		}
		out = append(out, resp.Users[i].toProfile(at))
	}
	return out, nil
}

// get performs one GET and decodes a JSON body into dst. 404 maps to
// ErrNotFound; every other failure wraps ErrUpstream.
func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, dst interface{}) (err error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if err != nil {
			outcome = "error"
			if errors.Is(err, ErrNotFound) {
				outcome = "not_found"
			}
		}
		metrics.RecordUpstreamRequest(endpoint, outcome, float64(time.Since(start).Milliseconds()))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api_key", c.apiKey)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "neynar request failed", logger.String("endpoint", endpoint), logger.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", ErrUpstream, endpoint, err)
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		c.logger.Warn(ctx, "neynar returned error status",
			logger.String("endpoint", endpoint),
			logger.Int("status", res.StatusCode),
		)
		return fmt.Errorf("%w: %s: status %d", ErrUpstream, endpoint, res.StatusCode)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %s: decode: %v", ErrUpstream, endpoint, err)
	}
	c.logger.Debug(ctx, "neynar request ok", logger.String("endpoint", endpoint), logger.Duration("took", time.Since(start)))
	return nil
}
