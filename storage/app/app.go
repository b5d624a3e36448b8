// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package app implements the forensics server. Combine an App with a
// database and dataset sources to get an HTTP server.
//
// The server keeps one parameter registry per session. Clients create
// a session with POST /session/new and pass its ID in the "id" query
// parameter of every other /session/ request. POST /session/close
// ends a session; idle sessions are dropped after a timeout.
package app

import (
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
	"golang.org/x/perf/forensics/storage/db"
)

// An Archive keeps the raw files of uploads.
type Archive interface {
	Archive(ctx context.Context, name string, metadata map[string]string, r io.Reader) error
}

// App manages the server logic. Construct an App instance using a
// literal and call Load and RegisterOnMux to connect it with an HTTP
// server.
type App struct {
	// DB, if non-nil, stores uploaded runs and is a source of
	// datasets.
	DB *db.DB

	// Sources are additional dataset sources.
	Sources []dataset.Source

	// Archive, if non-nil, receives a copy of every uploaded
	// file.
	Archive Archive

	// Catalog configures the registries of sessions. If nil,
	// params.DefaultCatalog is used.
	Catalog *params.Catalog

	// Auth obtains the username for the request.
	// If necessary, it can write its own response (e.g. a
	// redirect) and return ErrResponseWritten.
	Auth func(http.ResponseWriter, *http.Request) (string, error)

	// MaxSessions bounds the number of live sessions. Creating a
	// session beyond it drops the least recently used one. If zero,
	// DefaultMaxSessions is used.
	MaxSessions int

	// SessionTimeout drops sessions that were not used for that
	// long. If zero, DefaultSessionTimeout is used.
	SessionTimeout time.Duration

	// now, if set, replaces time.Now for session bookkeeping.
	now func() time.Time

	mu       sync.Mutex
	ds       *query.Datasets
	sessions map[string]*session
}

// ErrResponseWritten can be returned by App.Auth to abort the normal /upload handling.
var ErrResponseWritten = errors.New("response written")

// RegisterOnMux registers the app's URLs on mux.
func (a *App) RegisterOnMux(mux *http.ServeMux) {
	mux.HandleFunc("/", a.index)
	mux.HandleFunc("/upload", a.upload)
	mux.HandleFunc("/datasets", a.datasets)
	mux.HandleFunc("/session/new", a.newSession)
	mux.HandleFunc("/session/params", a.withSession(a.params))
	mux.HandleFunc("/session/default", a.withSession(a.setDefault))
	mux.HandleFunc("/session/restore", a.withSession(a.restore))
	mux.HandleFunc("/session/preset", a.withSession(a.preset))
	mux.HandleFunc("/session/all", a.withSession(a.selectAll))
	mux.HandleFunc("/session/figure", a.withSession(a.figure))
	mux.HandleFunc("/session/close", a.withSession(a.closeSession))
}

// Load reads the datasets of a.DB and a.Sources. Sessions created
// afterwards see the new datasets; existing sessions keep theirs.
func (a *App) Load(ctx context.Context) error {
	sources := a.Sources
	if a.DB != nil {
		sources = append([]dataset.Source{a.DB}, sources...)
	}
	var trees []*cattree.Tree
	for _, src := range sources {
		ts, err := src.Datasets(ctx)
		if err != nil {
			return err
		}
		trees = append(trees, ts...)
	}
	ds, err := query.NewDatasets(trees...)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.ds = ds
	a.mu.Unlock()
	return nil
}

// current returns the datasets of the last successful Load.
func (a *App) current() *query.Datasets {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ds == nil {
		a.ds, _ = query.NewDatasets()
	}
	return a.ds
}

// errorf logs an error. On App Engine it is replaced by a logger that
// attaches the request to the log entry.
var errorf = func(_ context.Context, format string, args ...interface{}) {
	log.Printf(format, args...)
}

// SetErrorf replaces the function used to log request errors.
func SetErrorf(f func(ctx context.Context, format string, args ...interface{})) {
	errorf = f
}

// requestContext returns the Context for a request.
func requestContext(r *http.Request) context.Context {
	return r.Context()
}

// httpStatus returns the status code for a failed request.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, params.ErrUnknownParameter),
		errors.Is(err, params.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, params.ErrUnknownOption),
		errors.Is(err, params.ErrLocked),
		errors.Is(err, cattree.ErrUnknownCategory),
		errors.Is(err, cattree.ErrUnknownDimension):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
