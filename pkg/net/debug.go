package net

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
)

// PrintHTTPResponse dumps the response headers and body at debug level.
// The body is restored so callers can still read it.
func PrintHTTPResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	var body []byte
	if resp.Body != nil {
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Debug("failed to read response body for dump", "error", err)
			return
		}
		resp.Body.Close()
		body = b
		resp.Body = io.NopCloser(bytes.NewReader(body))
	}

	dump := *resp
	dump.Body = io.NopCloser(bytes.NewReader(body))
	if respDump, err := httputil.DumpResponse(&dump, true); err == nil {
		slog.Debug("http response", "dump", string(respDump))
	}
}
