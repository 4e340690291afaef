package net

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetHTTPClient(t *testing.T) {
	c := GetHTTPClient(0)
	require.NotNil(t, c)
	assert.Equal(t, timeoutInSeconds*time.Second, c.Timeout)

	c = GetHTTPClient(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"oats","count":3}`))
	}))
	defer srv.Close()

	var p testPayload
	err := GetJSON(context.Background(), srv.Client(), srv.URL, &p)
	require.NoError(t, err)
	assert.Equal(t, "oats", p.Name)
	assert.Equal(t, 3, p.Count)
}

func TestPostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, contentTypeJSON, r.Header.Get("Content-Type"))

		var in testPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.Count++
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	var out testPayload
	err := PostJSON(context.Background(), srv.Client(), srv.URL, &testPayload{Name: "rice", Count: 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, "rice", out.Name)
	assert.Equal(t, 2, out.Count)
}

func TestGetJSON_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	var p testPayload
	err := GetJSON(context.Background(), srv.Client(), srv.URL+"/x?api_key=secret", &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrorURLNotFound))

	var re *ResponseError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, http.StatusNotFound, re.StatusCode)
	assert.Equal(t, "nope", re.Body)
	assert.NotContains(t, err.Error(), "secret")
}

func TestGetJSON_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var p testPayload
	err := GetJSON(context.Background(), srv.Client(), srv.URL, &p)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrorURLNotFound))
	assert.Contains(t, err.Error(), "500")
}

func TestGetJSON_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	var p testPayload
	err := GetJSON(context.Background(), srv.Client(), srv.URL, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestGetJSON_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var p testPayload
	err := GetJSON(ctx, srv.Client(), srv.URL, &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSetVersion(t *testing.T) {
	orig := UserAgent
	defer func() { UserAgent = orig }()

	SetVersion("v1.2.3")
	assert.True(t, strings.HasSuffix(UserAgent, "v1.2.3"))
}

func TestPrintHTTPResponse_Nil(t *testing.T) {
	// should not panic
	PrintHTTPResponse(nil)
}

func TestPrintHTTPResponse_KeepsBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{},
		Body:       http.NoBody,
	}
	PrintHTTPResponse(resp)
	require.NotNil(t, resp.Body)

	resp.Body = readCloser(`{"a":1}`)
	PrintHTTPResponse(resp)

	var m map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, 1, m["a"])
}

type stringReadCloser struct {
	*strings.Reader
}

func (stringReadCloser) Close() error { return nil }

func readCloser(s string) stringReadCloser {
	return stringReadCloser{strings.NewReader(s)}
}
