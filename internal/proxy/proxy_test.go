package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mealtrack/internal/logger"
	"github.com/rcliao/mealtrack/internal/metrics"
)

type upstreamCall struct {
	method string
	path   string
	query  string
	header http.Header
	body   string
}

func newUpstream(t *testing.T, status int, contentType, reply string) (*httptest.Server, chan upstreamCall) {
	t.Helper()
	calls := make(chan upstreamCall, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls <- upstreamCall{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
			body:   string(b),
		}
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func newRouter(baseURL string) http.Handler {
	return NewRouter(RouterDeps{
		Forwarder: NewForwarder(baseURL, nil, logger.Discard()),
		Logger:    logger.Discard(),
	})
}

func serve(h http.Handler, method, target string, body io.Reader, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func assertCORS(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestForwardsPostWithAuthorization(t *testing.T) {
	upstream, calls := newUpstream(t, http.StatusOK, "application/json",
		`{"dish_name":"Soup","servings":2,"calories_per_serving":150,"total_calories":300,"source":"db"}`)
	h := newRouter(upstream.URL + "/")

	w := serve(h, http.MethodPost, "/api/proxy/get-calories", strings.NewReader(`{"dish_name":"Soup","servings":2}`),
		map[string]string{"Authorization": "Bearer tok", "Cookie": "secret=1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dish_name":"Soup","servings":2,"calories_per_serving":150,"total_calories":300,"source":"db"}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assertCORS(t, w)

	call := <-calls
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/get-calories", call.path)
	assert.Equal(t, "Bearer tok", call.header.Get("Authorization"))
	assert.Equal(t, "application/json", call.header.Get("Content-Type"))
	assert.Empty(t, call.header.Get("Cookie"))
	assert.JSONEq(t, `{"dish_name":"Soup","servings":2}`, call.body)
}

func TestForwardsNestedPathAndQuery(t *testing.T) {
	upstream, calls := newUpstream(t, http.StatusOK, "application/json", `[]`)
	h := newRouter(upstream.URL)

	w := serve(h, http.MethodGet, "/api/proxy/users/42/meals?limit=5&sort=desc", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	call := <-calls
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/users/42/meals", call.path)
	assert.Equal(t, "limit=5&sort=desc", call.query)
	assert.Empty(t, call.header.Get("Authorization"))
	assert.Empty(t, call.header.Get("Content-Type"))
	assert.Empty(t, call.body)
}

func TestAnyMethodIsForwarded(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			upstream, calls := newUpstream(t, http.StatusOK, "application/json", `{}`)
			h := newRouter(upstream.URL)

			w := serve(h, method, "/api/proxy/items/1", strings.NewReader(`{"a":1}`), nil)
			require.Equal(t, http.StatusOK, w.Code)
			call := <-calls
			assert.Equal(t, method, call.method)
			assert.Equal(t, `{"a":1}`, call.body)
		})
	}
}

func TestRelaysErrorStatus(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusNotFound, "application/json", `{"message":"Dish not found"}`)
	h := newRouter(upstream.URL)

	w := serve(h, http.MethodPost, "/api/proxy/get-calories", strings.NewReader(`{}`), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Dish not found"}`, w.Body.String())
	assertCORS(t, w)
}

func TestNonJSONBodyRelayedAsString(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusBadGateway, "text/plain", "upstream exploded")
	h := newRouter(upstream.URL)

	w := serve(h, http.MethodGet, "/api/proxy/status", nil, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var got string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "upstream exploded", got)
}

func TestNoContentHasNoBody(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusNoContent, "", "")
	h := newRouter(upstream.URL)

	w := serve(h, http.MethodDelete, "/api/proxy/items/1", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestMissingBaseURL(t *testing.T) {
	h := newRouter("")

	w := serve(h, http.MethodGet, "/api/proxy/get-calories", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"API base URL not configured"}`, w.Body.String())
	assertCORS(t, w)
}

func TestInvalidPath(t *testing.T) {
	upstream, calls := newUpstream(t, http.StatusOK, "application/json", `{}`)
	h := newRouter(upstream.URL)

	for _, target := range []string{
		"/api/proxy",
		"/api/proxy/",
		"/api/proxy/a//b",
		"/api/proxy/a/../b",
		"/api/proxy/./a",
		"/api/proxy/trailing/",
		"/api/proxy/a%07b",
	} {
		t.Run(target, func(t *testing.T) {
			w := serve(h, http.MethodGet, target, nil, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"Invalid path parameter"}`, w.Body.String())
			assertCORS(t, w)
		})
	}
	assert.Empty(t, calls)
}

func TestUpstreamUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	h := newRouter("http://" + addr)
	w := serve(h, http.MethodGet, "/api/proxy/get-calories", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to proxy request", body.Error)
	assert.NotEmpty(t, body.Message)
	assertCORS(t, w)
}

func TestPreflight(t *testing.T) {
	h := newRouter("http://backend.invalid")

	w := serve(h, http.MethodOptions, "/api/proxy/get-calories", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assertCORS(t, w)
}

func TestRequestID(t *testing.T) {
	h := newRouter("")

	w := serve(h, http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = serve(h, http.MethodGet, "/healthz", nil, map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	w := serve(newRouter(""), http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","backend_configured":false}`, w.Body.String())

	w = serve(newRouter("http://backend"), http.MethodGet, "/healthz", nil, nil)
	assert.JSONEq(t, `{"status":"ok","backend_configured":true}`, w.Body.String())
}

func TestMetricsRecorded(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusCreated, "application/json", `{}`)
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	h := NewRouter(RouterDeps{
		Forwarder:      NewForwarder(upstream.URL, nil, logger.Discard()),
		Logger:         logger.Discard(),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	})

	serve(h, http.MethodPost, "/api/proxy/things", strings.NewReader(`{}`), nil)
	serve(h, http.MethodGet, "/api/proxy/..", nil, nil)

	count, err := testutil.GatherAndCount(reg, "mealtrack_forward_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	w := serve(h, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `mealtrack_forward_responses_total{status_code="201"} 1`)
	assert.Contains(t, w.Body.String(), `mealtrack_forward_responses_total{status_code="400"} 1`)
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.Setup(&buf, "debug")
	h := NewRouter(RouterDeps{Forwarder: NewForwarder("", nil, log), Logger: log})

	serve(h, http.MethodGet, "/api/proxy/x", nil, nil)

	var entry map[string]any
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "/api/proxy/x", entry["path"])
	assert.EqualValues(t, 500, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestRecoverFromPanic(t *testing.T) {
	h := Recover(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := serve(h, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServeListenerShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, ln, newRouter(""), logger.Discard()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
