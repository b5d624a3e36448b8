// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package appengine contains an AppEngine app for the forensics server.
package appengine

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/dataset/gcs"
	"golang.org/x/perf/forensics/storage/app"
	"golang.org/x/perf/forensics/storage/db"
	"google.golang.org/appengine"
	aelog "google.golang.org/appengine/log"
)

// config is the deployment configuration, read from the environment
// variables set in app.yaml.
type config struct {
	// dsn locates the Cloud SQL database of runs. It is built from
	// CLOUDSQL_CONNECTION_NAME, CLOUDSQL_USER, CLOUDSQL_DATABASE
	// and the optional CLOUDSQL_PASSWORD.
	dsn string
	// bucket is GCS_BUCKET, the bucket holding stored datasets and
	// archived uploads.
	bucket string
	// prefix is DATASETS_PREFIX, the object prefix of stored
	// datasets in bucket. It defaults to "datasets/".
	prefix string

	// maxSessions and sessionTimeout are MAX_SESSIONS and
	// SESSION_TIMEOUT (a time.Duration string). Zero values select
	// the app's defaults.
	maxSessions    int
	sessionTimeout time.Duration
}

func configFromEnv() (*config, error) {
	var missing []string
	get := func(k string) string {
		v := os.Getenv(k)
		if v == "" {
			missing = append(missing, k)
		}
		return v
	}
	c := &config{
		bucket: get("GCS_BUCKET"),
		prefix: "datasets/",
	}
	conn, user, name := get("CLOUDSQL_CONNECTION_NAME"), get("CLOUDSQL_USER"), get("CLOUDSQL_DATABASE")
	if missing != nil {
		return nil, fmt.Errorf("environment variables not set: %v", missing)
	}
	c.dsn = fmt.Sprintf("%s:%s@cloudsql(%s)/%s", user, os.Getenv("CLOUDSQL_PASSWORD"), conn, name)
	if p := os.Getenv("DATASETS_PREFIX"); p != "" {
		c.prefix = p
	}
	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("MAX_SESSIONS: %v", err)
		}
		c.maxSessions = n
	}
	if v := os.Getenv("SESSION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TIMEOUT: %v", err)
		}
		c.sessionTimeout = d
	}
	return c, nil
}

var (
	once    sync.Once
	mux     *http.ServeMux
	initErr error
)

// newApp connects to the run database and the bucket, and loads the
// datasets. Stored datasets are served next to the uploaded runs,
// which are archived in the same bucket.
func newApp(ctx context.Context, c *config) (*http.ServeMux, error) {
	runs, err := db.OpenSQL("mysql", c.dsn)
	if err != nil {
		return nil, fmt.Errorf("opening run database: %v", err)
	}
	datasets, err := gcs.NewBucket(ctx, c.bucket, c.prefix)
	if err != nil {
		runs.Close()
		return nil, fmt.Errorf("gcs.NewBucket: %v", err)
	}
	archive, err := gcs.NewBucket(ctx, c.bucket, "")
	if err != nil {
		runs.Close()
		return nil, fmt.Errorf("gcs.NewBucket: %v", err)
	}
	a := &app.App{
		DB:             runs,
		Sources:        []dataset.Source{datasets},
		Archive:        archive,
		MaxSessions:    c.maxSessions,
		SessionTimeout: c.sessionTimeout,
	}
	if err := a.Load(ctx); err != nil {
		runs.Close()
		return nil, fmt.Errorf("loading datasets: %v", err)
	}
	m := http.NewServeMux()
	a.RegisterOnMux(m)
	return m, nil
}

// appHandler is the default handler, registered to serve "/". The
// first request creates the App, which then keeps the sessions of all
// clients.
func appHandler(w http.ResponseWriter, r *http.Request) {
	ctx := appengine.NewContext(r)
	once.Do(func() {
		c, err := configFromEnv()
		if err != nil {
			initErr = err
			return
		}
		// The clients outlive this request.
		mux, initErr = newApp(context.Background(), c)
	})
	if initErr != nil {
		aelog.Errorf(ctx, "%v", initErr)
		http.Error(w, initErr.Error(), 500)
		return
	}
	mux.ServeHTTP(w, r)
}

func init() {
	app.SetErrorf(aelog.Errorf)
	http.HandleFunc("/", appHandler)
}
