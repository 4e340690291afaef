// Package fdc is a client for the USDA FoodData Central API.
package fdc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mchmarny/nutctl/pkg/metrics"
	"github.com/mchmarny/nutctl/pkg/net"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBaseURL     = "https://api.nal.usda.gov/fdc/v1"
	DefaultDataType    = "Branded"
	DefaultMaxResults  = 100
	MaxPageSize        = 200
	MaxBatchSize       = 20
	defaultConcurrency = 4

	endpointSearch = "search"
	endpointFoods  = "foods"
)

var (
	ErrAPIKeyRequired   = errors.New("FoodData Central API key required")
	ErrQueryRequired    = errors.New("search query required")
	ErrUnexpectedStatus = errors.New("unexpected FoodData Central response")
	ErrRateLimited      = errors.New("FoodData Central rate limit exceeded")
)

// StatusError wraps a non-200 response from the API.
type StatusError struct {
	Endpoint string
	Code     int
	Status   string
	Body     string
	err      error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed (status: %d): %s", e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return e.err }

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrUnexpectedStatus:
		return true
	case ErrRateLimited:
		return e.Code == http.StatusTooManyRequests
	}
	return false
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = net.GetHTTPClient(d)
		}
	}
}

// WithBatchSize sets how many IDs go into one detail request, capped at MaxBatchSize.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= MaxBatchSize {
			c.batchSize = n
		}
	}
}

// WithConcurrency sets how many detail requests run at once.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithDataTypes restricts searches to the given FDC data types.
func WithDataTypes(types ...string) Option {
	return func(c *Client) {
		list := make([]string, 0, len(types))
		for _, t := range types {
			if t = strings.TrimSpace(t); t != "" {
				list = append(list, t)
			}
		}
		if len(list) > 0 {
			c.dataTypes = list
		}
	}
}

// Client talks to FoodData Central.
type Client struct {
	apiKey      string
	baseURL     string
	http        *http.Client
	batchSize   int
	concurrency int
	dataTypes   []string
}

// NewClient creates a client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}

	c := &Client{
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		http:        net.GetHTTPClient(0),
		batchSize:   MaxBatchSize,
		concurrency: defaultConcurrency,
		dataTypes:   []string{DefaultDataType},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search returns one page of foods matching query. maxResults <= 0 uses
// DefaultMaxResults; values above MaxPageSize are capped.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}

	switch {
	case maxResults <= 0:
		maxResults = DefaultMaxResults
	case maxResults > MaxPageSize:
		maxResults = MaxPageSize
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", query)
	q.Set("pageSize", strconv.Itoa(maxResults))
	for _, t := range c.dataTypes {
		q.Add("dataType", t)
	}

	var res SearchResult
	u := c.baseURL + "/foods/search?" + q.Encode()
	if err := c.call(ctx, endpointSearch, func() error {
		return net.GetJSON(ctx, c.http, u, &res)
	}); err != nil {
		return nil, err
	}

	slog.Debug("food search",
		"query", query,
		"total_hits", res.TotalHits,
		"returned", len(res.Foods),
	)

	return &res, nil
}

// SearchIDs returns the FDC IDs matching query, in API order.
func (c *Client) SearchIDs(ctx context.Context, query string, maxResults int) ([]int64, error) {
	res, err := c.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(res.Foods))
	for _, f := range res.Foods {
		ids = append(ids, f.FDCID)
	}
	return ids, nil
}

// GetFoods fetches full records for ids. IDs are de-duplicated and fetched
// in batches concurrently; the result keeps the order of ids and omits any
// ID the API did not return.
func (c *Client) GetFoods(ctx context.Context, ids []int64) ([]*Food, error) {
	ids = unique(ids)
	if len(ids) == 0 {
		return []*Food{}, nil
	}

	batches := chunk(ids, c.batchSize)
	results := make([][]*Food, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	u := c.baseURL + "/foods?" + url.Values{"api_key": {c.apiKey}}.Encode()
	for i, batch := range batches {
		g.Go(func() error {
			var list []*Food
			if err := c.call(gctx, endpointFoods, func() error {
				return net.PostJSON(gctx, c.http, u, &foodsRequest{FDCIDs: batch}, &list)
			}); err != nil {
				return fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = list
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[int64]*Food, len(ids))
	for _, list := range results {
		for _, f := range list {
			if f != nil {
				byID[f.FDCID] = f
			}
		}
	}

	foods := make([]*Food, 0, len(byID))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			foods = append(foods, f)
		}
	}

	metrics.RecordFoodsFetched(len(foods))
	slog.Debug("foods fetched", "requested", len(ids), "returned", len(foods), "batches", len(batches))

	return foods, nil
}

// call runs fn, records metrics, and converts response errors into StatusError.
func (c *Client) call(ctx context.Context, endpoint string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordAPIRequest(endpoint, time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	var re *net.ResponseError
	if errors.As(err, &re) {
		metrics.RecordAPIError(endpoint, "status_"+strconv.Itoa(re.StatusCode))
		return &StatusError{
			Endpoint: endpoint,
			Code:     re.StatusCode,
			Status:   re.Status,
			Body:     re.Body,
			err:      re,
		}
	}

	if ctx.Err() != nil {
		metrics.RecordAPIError(endpoint, "canceled")
	} else {
		metrics.RecordAPIError(endpoint, "transport")
	}
	return fmt.Errorf("%s request failed: %w", endpoint, err)
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	list := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		list = append(list, id)
	}
	return list
}

func chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = MaxBatchSize
	}
	out := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
