// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
)

const (
	// DefaultMaxSessions is the session limit of an App with no
	// MaxSessions.
	DefaultMaxSessions = 1000
	// DefaultSessionTimeout is the idle timeout of an App with no
	// SessionTimeout.
	DefaultSessionTimeout = 24 * time.Hour
)

// A session is the state of one client. Its registry is not safe for
// concurrent use, so every request holds mu.
type session struct {
	mu sync.Mutex
	q  *query.Session

	// lastUsed is guarded by App.mu.
	lastUsed time.Time
}

// sessionState is the response to most /session/ requests.
type sessionState struct {
	ID      string          `json:"id"`
	Params  params.Snapshot `json:"params"`
	Presets []string        `json:"presets,omitempty"`
}

func (s *session) state(id string) *sessionState {
	reg := s.q.Registry()
	return &sessionState{ID: id, Params: reg.Snapshot(), Presets: reg.PresetNames()}
}

// newSession is the handler for /session/new. It creates a session
// over the current datasets.
func (a *App) newSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "/session/new must be called as a POST request", http.StatusMethodNotAllowed)
		return
	}
	q, err := a.current().NewSession(a.Catalog)
	if err != nil {
		errorf(requestContext(r), "new session: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}
	s := &session{q: q}
	id := uuid.New().String()
	a.mu.Lock()
	if a.sessions == nil {
		a.sessions = make(map[string]*session)
	}
	now := a.clock()
	a.evictLocked(now)
	s.lastUsed = now
	a.sessions[id] = s
	a.mu.Unlock()
	writeJSON(w, r, s.state(id))
}

func (a *App) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *App) expired(s *session, now time.Time) bool {
	timeout := a.SessionTimeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return now.Sub(s.lastUsed) > timeout
}

// evictLocked drops the sessions idle for longer than the session
// timeout, then the least recently used ones until a new session fits
// under the session limit. a.mu must be held.
func (a *App) evictLocked(now time.Time) {
	for id, s := range a.sessions {
		if a.expired(s, now) {
			delete(a.sessions, id)
		}
	}
	limit := a.MaxSessions
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	for len(a.sessions) >= limit {
		var oldest string
		for id, s := range a.sessions {
			if oldest == "" || s.lastUsed.Before(a.sessions[oldest].lastUsed) {
				oldest = id
			}
		}
		delete(a.sessions, oldest)
	}
}

// withSession returns a handler that looks up the session named by
// the "id" query parameter and calls h with the session locked.
func (a *App) withSession(h func(w http.ResponseWriter, r *http.Request, id string, s *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "missing id parameter", 400)
			return
		}
		a.mu.Lock()
		s := a.sessions[id]
		if s != nil {
			now := a.clock()
			if a.expired(s, now) {
				delete(a.sessions, id)
				s = nil
			} else {
				s.lastUsed = now
			}
		}
		a.mu.Unlock()
		if s == nil {
			http.Error(w, fmt.Sprintf("unknown session %q", id), 404)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		h(w, r, id, s)
	}
}

// closeSession is the handler for /session/close. It drops the
// session and returns its final state.
func (a *App) closeSession(w http.ResponseWriter, r *http.Request, id string, s *session) {
	if !isPost(w, r) {
		return
	}
	a.mu.Lock()
	delete(a.sessions, id)
	a.mu.Unlock()
	writeJSON(w, r, s.state(id))
}

// writeRequest is the body of a POST to /session/params.
type writeRequest struct {
	Name  string           `json:"name"`
	Value params.Selection `json:"value"`
}

// params is the handler for /session/params. GET returns the
// parameters; POST writes one parameter as a user would.
func (a *App) params(w http.ResponseWriter, r *http.Request, id string, s *session) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req writeRequest
		if !readJSON(w, r, &req) {
			return
		}
		if err := s.q.Registry().SetActive(req.Name, req.Value); err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
	default:
		http.Error(w, "/session/params must be called as a GET or POST request", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, r, s.state(id))
}

// setDefault is the handler for /session/default.
func (a *App) setDefault(w http.ResponseWriter, r *http.Request, id string, s *session) {
	if !isPost(w, r) {
		return
	}
	if err := s.q.Registry().SetDefault(); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, r, s.state(id))
}

// restoreRequest is the body of a POST to /session/restore.
type restoreRequest struct {
	Params     params.Snapshot `json:"params"`
	Reconciled bool            `json:"reconciled"`
}

// restore is the handler for /session/restore. It replaces the
// parameters of the session with a snapshot.
func (a *App) restore(w http.ResponseWriter, r *http.Request, id string, s *session) {
	if !isPost(w, r) {
		return
	}
	var req restoreRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.q.Registry().Restore(req.Params, req.Reconciled); err != nil {
		// An invalid snapshot is the client's fault.
		status := httpStatus(err)
		if status == 500 {
			status = 400
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, r, s.state(id))
}

// presetRequest is the body of a POST to /session/preset.
type presetRequest struct {
	Name string `json:"name"`
	Arg  string `json:"arg,omitempty"`
}

// preset is the handler for /session/preset.
func (a *App) preset(w http.ResponseWriter, r *http.Request, id string, s *session) {
	if !isPost(w, r) {
		return
	}
	var req presetRequest
	if !readJSON(w, r, &req) {
		return
	}
	if err := s.q.Registry().LoadPreset(req.Name, req.Arg); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, r, s.state(id))
}

// selectAll is the handler for /session/all. It selects every option
// of every unlocked multi-choice variable.
func (a *App) selectAll(w http.ResponseWriter, r *http.Request, id string, s *session) {
	if !isPost(w, r) {
		return
	}
	if err := s.q.Registry().SelectAll(); err != nil {
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, r, s.state(id))
}

// figure is the handler for /session/figure.
func (a *App) figure(w http.ResponseWriter, r *http.Request, id string, s *session) {
	f, err := s.q.Figure()
	if err != nil {
		errorf(requestContext(r), "figure: %v", err)
		http.Error(w, err.Error(), httpStatus(err))
		return
	}
	writeJSON(w, r, f)
}

func isPost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, r.URL.Path+" must be called as a POST request", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad request body: "+err.Error(), 400)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errorf(requestContext(r), "%v", err)
	}
}
