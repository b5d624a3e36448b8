// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/cattree/cattreetest"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
	"golang.org/x/perf/forensics/storage/db/dbtest"
)

const gambitRuns = `system,commit,timestamp,config,benchmark,values
gambit,v1,1000,,fib,10
gambit,v1,1000,,tak,20
gambit,v2,2000,,fib,11 13
gambit,v2,2000,,tak,18
`

type memArchive struct {
	mu    sync.Mutex
	files map[string]string
	meta  map[string]map[string]string
}

func (m *memArchive) Archive(_ context.Context, name string, metadata map[string]string, r io.Reader) error {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.files == nil {
		m.files = make(map[string]string)
		m.meta = make(map[string]map[string]string)
	}
	m.files[name] = string(b)
	m.meta[name] = metadata
	return nil
}

type testApp struct {
	*App
	archive *memArchive
	srv     *httptest.Server
	cleanup func()
}

func (app *testApp) Close() {
	app.srv.Close()
	app.cleanup()
}

func createTestApp(t *testing.T) *testApp {
	db, cleanup := dbtest.NewDB(t)
	archive := &memArchive{}
	app := &App{
		DB:      db,
		Archive: archive,
		Auth:    func(http.ResponseWriter, *http.Request) (string, error) { return "user", nil },
	}
	if err := app.Load(context.Background()); err != nil {
		cleanup()
		t.Fatalf("Load: %v", err)
	}
	mux := http.NewServeMux()
	app.RegisterOnMux(mux)
	srv := httptest.NewServer(mux)
	return &testApp{app, archive, srv, cleanup}
}

// uploadFiles calls the /upload handler with a multipart form,
// returning the status code and body.
func (app *testApp) uploadFiles(t *testing.T, files ...string) (int, []byte) {
	t.Helper()
	var body bytes.Buffer
	mpw := multipart.NewWriter(&body)
	for i, f := range files {
		w, err := mpw.CreateFormFile("file", fmt.Sprintf("%d.csv", i))
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		io.WriteString(w, f)
	}
	mpw.Close()
	resp, err := http.Post(app.srv.URL+"/upload", mpw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("post /upload: %v", err)
	}
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading /upload response: %v", err)
	}
	return resp.StatusCode, b
}

// call sends a request to path with a JSON body (if body is non-nil)
// and decodes a JSON response into out (if the status is 200 and out
// is non-nil). It returns the status code.
func (app *testApp) call(t *testing.T, method, path string, body, out interface{}) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, app.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == 200 && out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decoding response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (app *testApp) newSession(t *testing.T) *sessionState {
	t.Helper()
	var st sessionState
	if code := app.call(t, "POST", "/session/new", nil, &st); code != 200 {
		t.Fatalf("POST /session/new: status %d", code)
	}
	if st.ID == "" || st.Params.Get(params.Dataset) == nil {
		t.Fatalf("POST /session/new returned %+v", st)
	}
	return &st
}

func TestUpload(t *testing.T) {
	app := createTestApp(t)
	defer app.Close()

	code, body := app.uploadFiles(t, gambitRuns)
	if code != 200 {
		t.Fatalf("post /upload: status %d: %s", code, body)
	}
	var status uploadStatus
	if err := json.Unmarshal(body, &status); err != nil {
		t.Fatal(err)
	}
	if status.Runs != 4 || len(status.FileIDs) != 1 {
		t.Errorf("/upload response %+v, want 4 runs in 1 file", status)
	}
	name := "uploads/" + status.FileIDs[0] + ".csv"
	if got := app.archive.files[name]; got != gambitRuns {
		t.Errorf("archived %s = %q, want the uploaded file", name, got)
	}
	if by := app.archive.meta[name]["by"]; by != "user" {
		t.Errorf("archived file uploaded by %q, want %q", by, "user")
	}

	resp, err := http.Get(app.srv.URL + "/datasets")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	trees, err := dataset.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(trees) != 1 || trees[0].Name != "gambit" {
		t.Errorf("/datasets = %v, want gambit", trees)
	}

	resp, err = http.Get(app.srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	page, _ := ioutil.ReadAll(resp.Body)
	if !strings.Contains(string(page), "<td>gambit</td>") || !strings.Contains(string(page), "Gambit Revisions") {
		t.Errorf("index page does not list gambit:\n%s", page)
	}
}

func TestUploadInvalid(t *testing.T) {
	app := createTestApp(t)
	defer app.Close()

	for _, files := range [][]string{
		{"not,a,run,file\n1,2,3,4\n"},
		{gambitRuns, "system,commit,benchmark,values\n"},
		{"system,commit,benchmark,values\ngambit,v1,,1\n"},
	} {
		if code, body := app.uploadFiles(t, files...); code != 400 {
			t.Errorf("upload of %q: status %d (%s), want 400", files, code, body)
		}
	}
	if n, err := app.DB.CountRuns(); err != nil || n != 0 {
		t.Errorf("CountRuns() = %d, %v after failed uploads, want 0", n, err)
	}
}

func TestUploadAbort(t *testing.T) {
	app := createTestApp(t)
	defer app.Close()

	for _, test := range []struct {
		field string
		want  int
	}{
		{"abort", 400},
		{"commit", 200},
	} {
		var body bytes.Buffer
		mpw := multipart.NewWriter(&body)
		w, _ := mpw.CreateFormFile("file", "runs.csv")
		io.WriteString(w, gambitRuns)
		mpw.WriteField(test.field, "1")
		mpw.Close()
		resp, err := http.Post(app.srv.URL+"/upload", mpw.FormDataContentType(), &body)
		if err != nil {
			t.Fatalf("post /upload: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != test.want {
			t.Errorf("upload with %s field: status %d, want %d", test.field, resp.StatusCode, test.want)
		}
	}
	if n, err := app.DB.CountRuns(); err != nil || n != 4 {
		t.Errorf("CountRuns() = %d, %v, want 4", n, err)
	}
}

func TestSession(t *testing.T) {
	app := createTestApp(t)
	defer app.Close()
	if code, body := app.uploadFiles(t, gambitRuns); code != 200 {
		t.Fatalf("post /upload: status %d: %s", code, body)
	}
	st := app.newSession(t)
	path := func(p string) string { return p + "?id=" + st.ID }

	var f query.Figure
	if code := app.call(t, "GET", path("/session/figure"), nil, &f); code != 200 {
		t.Fatalf("GET /session/figure: status %d", code)
	}
	if !cmp.Equal(f.XLabels, []string{"v1", "v2"}) || !cmp.Equal(f.SeriesLabels, []string{"fib", "tak"}) {
		t.Errorf("figure labels %q, %q", f.XLabels, f.SeriesLabels)
	}
	if want := (benchmath.Matrix{{10, 12}, {20, 18}}); !cmp.Equal(f.Mean, want) {
		t.Errorf("figure mean %v, want %v", f.Mean, want)
	}

	var got sessionState
	write := writeRequest{Name: "gambit-version", Value: params.Labels("v2")}
	if code := app.call(t, "POST", path("/session/params"), write, &got); code != 200 {
		t.Fatalf("POST /session/params: status %d", code)
	}
	if p := got.Params.Get("gambit-version"); !cmp.Equal(p.Selected(), []string{"v2"}) {
		t.Errorf("gambit-version selects %q after write, want v2", p.Selected())
	}
	saved := got.Params

	for _, test := range []struct {
		name string
		body interface{}
		path string
		want int
	}{
		{"unknown parameter", writeRequest{Name: "colour", Value: params.Index(0)}, "/session/params", 404},
		{"unknown option", writeRequest{Name: "bench", Value: params.Label("nqueens")}, "/session/params", 400},
		{"plot type", writeRequest{Name: params.Type, Value: params.Label(params.AllSystems)}, "/session/params", 200},
		{"locked", writeRequest{Name: params.X, Value: params.Label("bench")}, "/session/params", 400},
		{"unknown preset", presetRequest{Name: "nope"}, "/session/preset", 404},
		{"preset", presetRequest{Name: "VersionComparator"}, "/session/preset", 200},
		{"select all", nil, "/session/all", 200},
		{"default", nil, "/session/default", 200},
		{"bad restore", restoreRequest{Params: saved[1:]}, "/session/restore", 400},
		{"restore", restoreRequest{Params: saved, Reconciled: true}, "/session/restore", 200},
	} {
		if code := app.call(t, "POST", path(test.path), test.body, nil); code != test.want {
			t.Errorf("%s: status %d, want %d", test.name, code, test.want)
		}
	}

	if code := app.call(t, "GET", path("/session/params"), nil, &got); code != 200 {
		t.Fatalf("GET /session/params: status %d", code)
	}
	if diff := cmp.Diff(saved, got.Params); diff != "" {
		t.Errorf("parameters after restore mismatch (-want +got):\n%s", diff)
	}

	if code := app.call(t, "GET", "/session/figure?id=nope", nil, nil); code != 404 {
		t.Errorf("GET /session/figure for unknown session: status %d, want 404", code)
	}
	if code := app.call(t, "GET", "/session/preset"+"?id="+st.ID, nil, nil); code != http.StatusMethodNotAllowed {
		t.Errorf("GET /session/preset: status %d, want %d", code, http.StatusMethodNotAllowed)
	}
}

// TestSessionsIsolated verifies that sessions do not share state and
// keep their datasets across uploads.
func TestSessionsIsolated(t *testing.T) {
	app := createTestApp(t)
	defer app.Close()
	if code, body := app.uploadFiles(t, gambitRuns); code != 200 {
		t.Fatalf("post /upload: status %d: %s", code, body)
	}
	a, b := app.newSession(t), app.newSession(t)

	write := writeRequest{Name: "bench", Value: params.Labels("tak")}
	if code := app.call(t, "POST", "/session/params?id="+a.ID, write, nil); code != 200 {
		t.Fatalf("POST /session/params: status %d", code)
	}
	var st sessionState
	app.call(t, "GET", "/session/params?id="+b.ID, nil, &st)
	if got := st.Params.Get("bench").Selected(); !cmp.Equal(got, []string{"fib", "tak"}) {
		t.Errorf("second session selects benchmarks %q, want both", got)
	}

	const more = "system,commit,timestamp,benchmark,values\ngambit,v3,3000,fib,9\n"
	if code, body := app.uploadFiles(t, more); code != 200 {
		t.Fatalf("post /upload: status %d: %s", code, body)
	}
	app.call(t, "GET", "/session/params?id="+b.ID, nil, &st)
	if got := st.Params.Get("gambit-version").Options; len(got) != 2 {
		t.Errorf("existing session sees versions %q after upload, want 2", got)
	}
	c := app.newSession(t)
	if got := c.Params.Get("gambit-version").Options; len(got) != 3 {
		t.Errorf("new session sees versions %q, want 3", got)
	}
}

type treeSource []*cattree.Tree

func (ts treeSource) Datasets(context.Context) ([]*cattree.Tree, error) {
	return ts, nil
}

func TestSessionEviction(t *testing.T) {
	now := time.Unix(0, 0)
	a := &App{
		Sources:        []dataset.Source{treeSource{cattreetest.Gambit(t)}},
		MaxSessions:    2,
		SessionTimeout: time.Hour,
		now:            func() time.Time { return now },
	}
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mux := http.NewServeMux()
	a.RegisterOnMux(mux)
	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}
	newID := func() string {
		t.Helper()
		rec := serve("POST", "/session/new")
		if rec.Code != 200 {
			t.Fatalf("POST /session/new: status %d: %s", rec.Code, rec.Body)
		}
		var st sessionState
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatal(err)
		}
		return st.ID
	}
	alive := func(id string) bool {
		return serve("GET", "/session/params?id="+id).Code == 200
	}

	first := newID()
	now = now.Add(time.Minute)
	second := newID()
	now = now.Add(time.Minute)
	if !alive(first) {
		t.Fatalf("session %s dropped below the limit", first)
	}
	now = now.Add(time.Minute)
	third := newID()
	if alive(second) {
		t.Errorf("least recently used session survived a third session")
	}
	if !alive(first) || !alive(third) {
		t.Errorf("recently used sessions were dropped")
	}

	now = now.Add(2 * time.Hour)
	if alive(first) {
		t.Errorf("session idle for 2h survived a 1h timeout")
	}

	id := newID()
	if code := serve("GET", "/session/close?id="+id).Code; code != http.StatusMethodNotAllowed {
		t.Errorf("GET /session/close: status %d, want %d", code, http.StatusMethodNotAllowed)
	}
	if code := serve("POST", "/session/close?id="+id).Code; code != 200 {
		t.Errorf("POST /session/close: status %d", code)
	}
	if alive(id) {
		t.Errorf("closed session still answers")
	}
	if n := len(a.sessions); n != 0 {
		t.Errorf("%d sessions left, want 0", n)
	}
}
