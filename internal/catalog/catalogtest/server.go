// Package catalogtest provides an in-memory catalog HTTP server for tests.
package catalogtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Request records one changed-entities call received by the server.
type Request struct {
	Server string
	User   string
	Type   string
	Since  time.Time
}

// Server serves GET /servers/{server}/users/{user}/entities/changed.
type Server struct {
	URL string
	// Token, when set, must be presented as a bearer token.
	Token string

	mu        sync.Mutex
	entities  []core.Entity
	failures  []int
	requests  []Request
	httpServe *httptest.Server
}

// NewServer starts a server that is shut down when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{}

	router := chi.NewRouter()
	router.Route("/servers/{server}/users/{user}", func(r chi.Router) {
		r.Get("/entities/changed", s.handleChanged)
	})

	s.httpServe = httptest.NewServer(router)
	s.URL = s.httpServe.URL
	t.Cleanup(s.httpServe.Close)
	return s
}

// AddEntities makes entities available to subsequent requests.
func (s *Server) AddEntities(entities ...core.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = append(s.entities, entities...)
}

// FailNext makes the next requests answer with the given HTTP statuses, in order.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func (s *Server) handleChanged(w http.ResponseWriter, r *http.Request) {
	req := Request{
		Server: chi.URLParam(r, "server"),
		User:   chi.URLParam(r, "user"),
		Type:   r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_SINCE", err.Error())
			return
		}
		req.Since = since
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	var status int
	if len(s.failures) > 0 {
		status, s.failures = s.failures[0], s.failures[1:]
	}
	var matched []map[string]any
	for _, e := range s.entities {
		if e.TypeName != req.Type || !e.UpdatedAt.After(req.Since) {
			continue
		}
		matched = append(matched, map[string]any{
			"guid":       e.GUID,
			"typeName":   e.TypeName,
			"properties": e.Properties,
			"updateTime": e.UpdatedAt,
		})
	}
	s.mu.Unlock()

	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized, "NOT_AUTHORIZED", "missing or invalid token")
		return
	}
	if status != 0 {
		writeError(w, status, "INJECTED", http.StatusText(status))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"entities": matched})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"errorCode": code, "message": msg})
}
