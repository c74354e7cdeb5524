// Package proxy implements the boundary forwarder: a stateless same-origin relay that
// sends /api/proxy/<path> requests on to the real backend and copies the answer back.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	msgNotConfigured = "API base URL not configured"
	msgInvalidPath   = "Invalid path parameter"
	msgProxyFailed   = "Failed to proxy request"
)

// errorBody is the JSON shape of every error the forwarder produces itself.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Forwarder relays one request per call to BaseURL. It keeps no state between requests.
type Forwarder struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewForwarder creates a Forwarder. An empty baseURL is accepted; every forwarded
// request then fails with a configuration error.
func NewForwarder(baseURL string, client *http.Client, logger *slog.Logger) *Forwarder {
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Configured reports whether a backend base URL is set.
func (f *Forwarder) Configured() bool {
	return f.baseURL != ""
}

// ServeHTTP forwards the request named by the route wildcard.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !f.Configured() {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgNotConfigured})
		return
	}

	path := chi.URLParam(r, "*")
	if !validPath(path) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidPath})
		return
	}

	target := f.baseURL + "/" + path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgProxyFailed, Message: err.Error()})
		return
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, reader)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgProxyFailed, Message: err.Error()})
		return
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		out.Header.Set("Authorization", auth)
	}
	if len(body) > 0 {
		out.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(out)
	if err != nil {
		f.logger.Error("proxy upstream failed", "method", r.Method, "target", target, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgProxyFailed, Message: err.Error()})
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Error("proxy read upstream body", "target", target, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: msgProxyFailed, Message: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if !bodyAllowed(resp.StatusCode) {
		return
	}
	if json.Valid(data) {
		w.Write(data)
		return
	}
	// Not JSON: relay the raw text as a JSON string.
	json.NewEncoder(w).Encode(string(data))
}

// validPath rejects empty paths, empty or dot segments, and control characters.
func validPath(path string) bool {
	if path == "" {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
		if strings.IndexFunc(seg, unicode.IsControl) >= 0 {
			return false
		}
	}
	return true
}

func bodyAllowed(status int) bool {
	return status != http.StatusNoContent && status != http.StatusNotModified && status >= 200
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
