// Package ordapi provides a client for the inscription market REST API used
// by the harvest pipeline. Endpoints are paginated with offset/count query
// parameters and answer {"data": [...]} envelopes
package ordapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "ordsnap/internal/platform/errors"
	"ordsnap/internal/platform/logger"
)

const (
	defaultBaseURL   = "https://api.ordmarket.io/v2"
	defaultUA        = "ordsnap-pipeline"
	defaultTimeout   = 15 * time.Second
	defaultPageSize  = 100
	defaultPageDelay = 1500 * time.Millisecond

	maxBodyBytes = 32 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// APIKey is required; the upstream rejects unauthenticated requests
	APIKey string

	// Pagination page size (the count query parameter)
	PageSize int

	// PageDelay is awaited between page fetches to respect the upstream
	// rate limit
	PageDelay time.Duration
}

// Client is a minimal inscription API client with fixed pacing between pages
type Client struct {
	http  *http.Client
	opts  Options
	log   logger.Logger
	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a new Client with sane defaults. A missing API key is a
// configuration error, surfaced before any network call is made
func NewClient(o Options) (*Client, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, perr.Configf("ordapi: API key is required")
	}
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	if o.PageDelay <= 0 {
		o.PageDelay = defaultPageDelay
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("ordapi"),
		now:   time.Now,
		sleep: time.Sleep,
	}, nil
}

// page is the upstream response envelope
type page[T any] struct {
	Data []T `json:"data"`
}

// getPage fetches one page of path and decodes the data array into out
func getPage[T any](ctx context.Context, c *Client, path string, offset int) ([]T, error) {
	u := fmt.Sprintf("%s%s?offset=%d&count=%d", c.opts.BaseURL, path, offset, c.opts.PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "ordapi new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.opts.APIKey)

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "ordapi request failed")
	}
	defer func() {
		_ = drainAndClose(resp.Body)
	}()

	c.log.Debug().
		Str("path", path).
		Int("offset", offset).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("ordapi http response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, perr.Upstreamf("ordapi status %d for %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "ordapi read body failed")
	}
	var pg page[T]
	if err := json.Unmarshal(body, &pg); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeJSON, "ordapi decode %s", path)
	}
	return pg.Data, nil
}

// paginate walks path until a short page, pacing after every page fetch so
// consecutive walks (one per collection) never hit the upstream back-to-back.
// A non-2xx answer ends the walk and keeps what was collected so far
func paginate[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var all []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		data, err := getPage[T](ctx, c, path, offset)
		c.pace(ctx)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeUpstream) {
				c.log.Warn().Err(err).Int("collected", len(all)).Msg("ordapi non-2xx, ending pagination")
				return all, nil
			}
			return nil, err
		}
		all = append(all, data...)
		if len(data) < c.opts.PageSize {
			return all, nil
		}
		offset += c.opts.PageSize
	}
}

// pace blocks for the configured page delay unless ctx is already done
func (c *Client) pace(ctx context.Context) {
	if c.opts.PageDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	default:
		c.sleep(c.opts.PageDelay)
	}
}

// ListCollections pages through every collection's market metadata
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	return paginate[Collection](ctx, c, "/collections")
}

// CollectionHolders pages through the holders of one collection.
// A non-2xx answer means "no holders for this collection": the error is
// swallowed and an empty (or partial) result is returned so the pipeline can
// continue with the next collection
func (c *Client) CollectionHolders(ctx context.Context, symbol string) ([]Holder, error) {
	path := "/collections/" + url.PathEscape(symbol) + "/holders"
	holders, err := paginate[Holder](ctx, c, path)
	if err != nil {
		c.log.Warn().Err(err).Str("collection", symbol).Msg("holder fetch failed, treating as zero holders")
		return nil, nil
	}
	return holders, nil
}

// BitmapHolders pages through the bitmap holder dataset
func (c *Client) BitmapHolders(ctx context.Context) ([]BitmapRecord, error) {
	return paginate[BitmapRecord](ctx, c, "/bitmaps/holders")
}

func drainAndClose(rc io.ReadCloser) error {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	return rc.Close()
}
