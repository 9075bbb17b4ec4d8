// Package testutil provides testing utilities for places-export.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// MockPlace is one result entry served by MockPlaces.
type MockPlace struct {
	Name           string   `json:"name"`
	Vicinity       string   `json:"vicinity"`
	Rating         *float64 `json:"rating,omitempty"`
	BusinessStatus string   `json:"business_status,omitempty"`
	PlaceID        string   `json:"place_id,omitempty"`
}

// MockPage is one Nearby Search response page.
type MockPage struct {
	Places        []MockPlace
	NextPageToken string

	// Status overrides "OK" when set (e.g. "OVER_QUERY_LIMIT").
	Status       string
	ErrorMessage string

	// HTTPStatus overrides 200 when set.
	HTTPStatus int
}

// MockPlaces is a configurable mock Nearby Search server.
//
// The page registered under "" answers query requests; every other page is
// keyed by the pagetoken that fetches it.
type MockPlaces struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[string]MockPage

	// pending counts INVALID_REQUEST answers still owed for a token.
	pending map[string]int

	requests []url.Values
}

// NewMockPlaces creates a new mock Nearby Search server.
func NewMockPlaces() *MockPlaces {
	mock := &MockPlaces{
		pages:   make(map[string]MockPage),
		pending: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock endpoint URL.
func (m *MockPlaces) URL() string {
	return m.server.URL + "/maps/api/place/nearbysearch/json"
}

// Close shuts down the mock server.
func (m *MockPlaces) Close() {
	m.server.Close()
}

// SetFirstPage configures the response to the initial query request.
func (m *MockPlaces) SetFirstPage(page MockPage) {
	m.SetPage("", page)
}

// SetPage configures the response for a page token.
func (m *MockPlaces) SetPage(token string, page MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[token] = page
}

// SetTokenPending makes the next n requests for token answer INVALID_REQUEST,
// the way the real API does before a fresh token becomes valid.
func (m *MockPlaces) SetTokenPending(token string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[token] = n
}

// Requests returns the query parameters of every request received, in order.
func (m *MockPlaces) Requests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.requests))
	copy(out, m.requests)
	return out
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPlaces) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

func (m *MockPlaces) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	token := query.Get("pagetoken")

	m.mu.Lock()
	m.requests = append(m.requests, query)
	pending := m.pending[token]
	if pending > 0 {
		m.pending[token] = pending - 1
	}
	page, exists := m.pages[token]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	if pending > 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"results": []MockPlace{},
			"status":  "INVALID_REQUEST",
		})
		return
	}

	if !exists {
		writeJSON(w, http.StatusOK, map[string]any{
			"results":       []MockPlace{},
			"status":        "INVALID_REQUEST",
			"error_message": fmt.Sprintf("unknown page token %q", token),
		})
		return
	}

	status := page.Status
	if status == "" {
		status = "OK"
	}
	httpStatus := page.HTTPStatus
	if httpStatus == 0 {
		httpStatus = http.StatusOK
	}

	places := page.Places
	if places == nil {
		places = []MockPlace{}
	}

	body := map[string]any{
		"html_attributions": []string{},
		"results":           places,
		"status":            status,
	}
	if page.NextPageToken != "" {
		body["next_page_token"] = page.NextPageToken
	}
	if page.ErrorMessage != "" {
		body["error_message"] = page.ErrorMessage
	}

	writeJSON(w, httpStatus, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Rating returns a pointer to r, for building MockPlace literals.
func Rating(r float64) *float64 {
	return &r
}
