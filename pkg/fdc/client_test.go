package fdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mchmarny/nutctl/pkg/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	c, err := NewClient(testKey, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_KeyRequired(t *testing.T) {
	_, err := NewClient("  ")
	assert.ErrorIs(t, err, ErrAPIKeyRequired)
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient(testKey,
		WithBaseURL("http://example.com/fdc/"),
		WithBatchSize(50),
		WithConcurrency(0),
		WithDataTypes(" ", "Foundation", "SR Legacy"),
	)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/fdc", c.baseURL)
	assert.Equal(t, MaxBatchSize, c.batchSize)
	assert.Equal(t, defaultConcurrency, c.concurrency)
	assert.Equal(t, []string{"Foundation", "SR Legacy"}, c.dataTypes)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/foods/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, testKey, q.Get("api_key"))
		assert.Equal(t, "greek yogurt", q.Get("query"))
		assert.Equal(t, "100", q.Get("pageSize"))
		assert.Equal(t, []string{"Branded"}, q["dataType"])

		_, _ = w.Write([]byte(`{
			"totalHits": 2, "currentPage": 1, "totalPages": 1,
			"foods": [
				{"fdcId": 111, "description": "GREEK YOGURT", "dataType": "Branded", "brandOwner": "Acme"},
				{"fdcId": 222, "description": "GREEK YOGURT, VANILLA", "dataType": "Branded"}
			]
		}`))
	}))

	res, err := c.Search(context.Background(), " greek yogurt ", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Foods, 2)
	assert.Equal(t, "Acme", res.Foods[0].BrandOwner)

	ids, err := c.SearchIDs(context.Background(), "greek yogurt", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{111, 222}, ids)
}

func TestSearch_PageSizeCapped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "200", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"foods": []}`))
	}))

	ids, err := c.SearchIDs(context.Background(), "rice", 1000)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearch_EmptyQuery(t *testing.T) {
	c, err := NewClient(testKey)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, ErrQueryRequired)
}

func TestSearch_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		rateLimited bool
		notFound    bool
	}{
		{"forbidden", http.StatusForbidden, false, false},
		{"rate limited", http.StatusTooManyRequests, true, false},
		{"not found", http.StatusNotFound, false, true},
		{"server error", http.StatusInternalServerError, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "failure detail", tt.code)
			}))

			_, err := c.Search(context.Background(), "apple", 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnexpectedStatus)
			assert.Equal(t, tt.rateLimited, errors.Is(err, ErrRateLimited))
			assert.Equal(t, tt.notFound, errors.Is(err, net.ErrorURLNotFound))
			assert.NotContains(t, err.Error(), testKey)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, endpointSearch, se.Endpoint)
			assert.Equal(t, "failure detail", se.Body)
		})
	}
}

func foodsHandler(t *testing.T, calls *atomic.Int32, missing map[int64]bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/foods", r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("api_key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		calls.Add(1)

		var req foodsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.FDCIDs), MaxBatchSize)

		list := make([]*Food, 0, len(req.FDCIDs))
		// reverse to prove the client restores input order
		for i := len(req.FDCIDs) - 1; i >= 0; i-- {
			id := req.FDCIDs[i]
			if missing[id] {
				continue
			}
			list = append(list, &Food{FDCID: id, Description: fmt.Sprintf("food %d", id)})
		}
		_ = json.NewEncoder(w).Encode(list)
	}
}

func TestGetFoods_BatchesAndOrder(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, foodsHandler(t, &calls, map[int64]bool{7: true}), WithConcurrency(3))

	ids := make([]int64, 0, 45)
	for i := int64(45); i >= 1; i-- {
		ids = append(ids, i)
	}
	ids = append(ids, 3, 3, 0, -1)

	foods, err := c.GetFoods(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, foods, 44)
	assert.Equal(t, int64(45), foods[0].FDCID)
	assert.Equal(t, int64(1), foods[len(foods)-1].FDCID)
	for _, f := range foods {
		assert.NotEqual(t, int64(7), f.FDCID)
	}
}

func TestGetFoods_Empty(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, foodsHandler(t, &calls, nil))

	foods, err := c.GetFoods(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, foods)
	assert.Zero(t, calls.Load())
}

func TestGetFoods_BatchError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad ids", http.StatusBadRequest)
	}), WithBatchSize(2))

	_, err := c.GetFoods(context.Background(), []int64{1, 2, 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Contains(t, err.Error(), "batch")
}

func TestGetFoods_Canceled(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, foodsHandler(t, &calls, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetFoods(ctx, []int64{1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunk(t *testing.T) {
	assert.Empty(t, chunk(nil, 20))
	assert.Equal(t, [][]int64{{1, 2}, {3}}, chunk([]int64{1, 2, 3}, 2))
	assert.Len(t, chunk(make([]int64, 41), 0), 3)
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, unique([]int64{3, 1, 3, 0, 2, 1, -5}))
}
