package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/embracexyz/filmorate/internal/data/mocks"
	"github.com/embracexyz/filmorate/internal/jsonlog"
)

func newTestApplication(t *testing.T, cfg config) (*application, *mocks.Store) {
	t.Helper()

	models, store := mocks.NewModels()
	if cfg.feed.buffer == 0 {
		cfg.feed.buffer = 16
	}
	cfg.env = "testing"

	app, err := newApplication(cfg, jsonlog.New(io.Discard, jsonlog.OFF), models)
	require.NoError(t, err)
	t.Cleanup(func() {
		app.stopFeed()
		app.wg.Wait()
	})
	return app, store
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &testServer{ts}
}

// do sends body as JSON, or verbatim when it is a string.
func (ts *testServer) do(t *testing.T, method, urlPath string, body any) (int, http.Header, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		js, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, ts.URL+urlPath, reader)
	require.NoError(t, err)

	rs, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer rs.Body.Close()

	respBody, err := io.ReadAll(rs.Body)
	require.NoError(t, err)

	return rs.StatusCode, rs.Header, respBody
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}
