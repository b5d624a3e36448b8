// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package storage contains a client for the forensics server.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/url"

	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
)

// A Client issues queries to a forensics server.
// It is safe to use from multiple goroutines simultaneously.
type Client struct {
	// BaseURL is the base URL of the server.
	BaseURL string
	// HTTPClient is the HTTP client for sending requests. If nil,
	// http.DefaultClient will be used.
	HTTPClient *http.Client
}

// httpClient returns the http.Client to use for requests.
func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// responseError returns an error describing a failed response.
func responseError(resp *http.Response) error {
	body, _ := ioutil.ReadAll(resp.Body)
	return fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body))
}

// do sends a request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("%s %s: %w", method, path, responseError(resp))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Datasets fetches the datasets loaded by the server.
// A Client is thus a dataset.Source.
func (c *Client) Datasets(ctx context.Context) ([]*cattree.Tree, error) {
	req, err := http.NewRequest("GET", c.BaseURL+"/datasets", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient().Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, responseError(resp)
	}
	return dataset.Decode(resp.Body)
}

// UploadStatus contains information about a successful upload.
type UploadStatus struct {
	// UploadID is the upload ID assigned to the upload.
	UploadID string `json:"uploadid"`
	// FileIDs is the list of file IDs assigned to the files in the upload.
	FileIDs []string `json:"fileids"`
	// Runs is the number of runs stored.
	Runs int `json:"runs"`
}

// An Upload is an in-progress upload.
// Use CreateFile to upload one or more files, then call Commit or Abort.
//
//	u := client.NewUpload(ctx)
//	w, err := u.CreateFile("runs.csv")
//	if err != nil {
//		u.Abort()
//		return err
//	}
//	dataset.WriteCSV(w, records)
//	status, err := u.Commit()
type Upload struct {
	err    error
	pw     *io.PipeWriter
	mpw    *multipart.Writer
	result <-chan uploadResult
	cancel context.CancelFunc
}

type uploadResult struct {
	status *UploadStatus
	err    error
}

// NewUpload starts a new upload to the server. The upload must have
// Commit or Abort called on it. If the server requires
// authentication for uploads, c.HTTPClient should be set to the
// result of oauth2.NewClient.
func (c *Client) NewUpload(ctx context.Context) *Upload {
	hc := c.httpClient()

	pr, pw := io.Pipe()
	mpw := multipart.NewWriter(pw)

	req, err := http.NewRequest("POST", c.BaseURL+"/upload", pr)
	if err != nil {
		return &Upload{err: err}
	}
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("User-Agent", "golang.org/x/perf/forensics/storage")
	ctx, cancel := context.WithCancel(ctx)
	req = req.WithContext(ctx)

	result := make(chan uploadResult, 1)
	go func() {
		resp, err := hc.Do(req)
		if err != nil {
			result <- uploadResult{err: err}
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 {
			result <- uploadResult{err: fmt.Errorf("upload failed: %w", responseError(resp))}
			return
		}
		status := &UploadStatus{}
		if err := json.NewDecoder(resp.Body).Decode(status); err != nil {
			result <- uploadResult{err: err}
			return
		}
		result <- uploadResult{status: status}
	}()

	return &Upload{
		pw:     pw,
		mpw:    mpw,
		result: result,
		cancel: cancel,
	}
}

// CreateFile creates a new upload with the given name.
// The Writer may be used until CreateFile is called again.
// name may be the empty string if the file does not have a name.
func (u *Upload) CreateFile(name string) (io.Writer, error) {
	if u.err != nil {
		return nil, u.err
	}
	return u.mpw.CreateFormFile("file", name)
}

// Commit attempts to commit the upload.
func (u *Upload) Commit() (*UploadStatus, error) {
	if u.err != nil {
		return nil, u.err
	}
	defer u.cancel()
	if err := u.mpw.WriteField("commit", "1"); err != nil {
		u.pw.CloseWithError(err)
		<-u.result
		return nil, err
	}
	if err := u.mpw.Close(); err != nil {
		u.pw.CloseWithError(err)
		<-u.result
		return nil, err
	}
	u.pw.Close()
	r := <-u.result
	return r.status, r.err
}

// Abort attempts to cancel the in-progress upload. The server stores
// none of its files.
func (u *Upload) Abort() error {
	if u.err != nil {
		return u.err
	}
	defer u.cancel()
	u.mpw.WriteField("abort", "1")
	u.mpw.Close()
	u.pw.Close()
	if r := <-u.result; r.err == nil {
		return errors.New("upload was committed")
	}
	return nil
}

// A Session is a parameter registry held by the server.
type Session struct {
	c      *Client
	ID     string
	Params params.Snapshot
}

type sessionState struct {
	ID     string          `json:"id"`
	Params params.Snapshot `json:"params"`
}

// NewSession creates a session over the datasets currently loaded by
// the server.
func (c *Client) NewSession(ctx context.Context) (*Session, error) {
	var st sessionState
	if err := c.do(ctx, "POST", "/session/new", nil, &st); err != nil {
		return nil, err
	}
	return &Session{c: c, ID: st.ID, Params: st.Params}, nil
}

func (s *Session) post(ctx context.Context, path string, body interface{}) error {
	var st sessionState
	if err := s.c.do(ctx, "POST", path+"?id="+url.QueryEscape(s.ID), body, &st); err != nil {
		return err
	}
	s.Params = st.Params
	return nil
}

// Set writes one parameter as a user would.
func (s *Session) Set(ctx context.Context, name string, sel params.Selection) error {
	return s.post(ctx, "/session/params", struct {
		Name  string           `json:"name"`
		Value params.Selection `json:"value"`
	}{name, sel})
}

// LoadPreset applies a named preset with an optional argument.
func (s *Session) LoadPreset(ctx context.Context, name, arg string) error {
	return s.post(ctx, "/session/preset", struct {
		Name string `json:"name"`
		Arg  string `json:"arg,omitempty"`
	}{name, arg})
}

// Restore replaces the parameters of the session with snap.
func (s *Session) Restore(ctx context.Context, snap params.Snapshot, reconciled bool) error {
	return s.post(ctx, "/session/restore", struct {
		Params     params.Snapshot `json:"params"`
		Reconciled bool            `json:"reconciled"`
	}{snap, reconciled})
}

// Close ends the session on the server.
func (s *Session) Close(ctx context.Context) error {
	return s.post(ctx, "/session/close", nil)
}

// Figure computes the figure described by the session's parameters.
func (s *Session) Figure(ctx context.Context) (*query.Figure, error) {
	var f query.Figure
	if err := s.c.do(ctx, "GET", "/session/figure?id="+url.QueryEscape(s.ID), nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
