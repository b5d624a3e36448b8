// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/storage/db"
)

// upload is the handler for the /upload endpoint. It processes run
// CSV files in a multipart/form-data POST request, stores their runs
// in the database and reloads the datasets.
//
// The request holds one "file" part per file. A client that fails
// while streaming its files sends an "abort" field to discard the
// upload; a trailing "commit" field is accepted and ignored.
func (a *App) upload(w http.ResponseWriter, r *http.Request) {
	ctx := requestContext(r)

	user := ""
	if a.Auth != nil {
		var err error
		user, err = a.Auth(w, r)
		switch {
		case err == ErrResponseWritten:
			return
		case err != nil:
			errorf(ctx, "%v", err)
			http.Error(w, err.Error(), 500)
			return
		}
	}

	if r.Method != http.MethodPost {
		http.Error(w, "/upload must be called as a POST request", http.StatusMethodNotAllowed)
		return
	}
	if a.DB == nil {
		http.Error(w, "uploads are disabled", http.StatusNotImplemented)
		return
	}

	// We use r.MultipartReader instead of r.ParseForm to avoid
	// storing uploaded data in memory.
	mr, err := r.MultipartReader()
	if err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	result, err := a.processUpload(ctx, user, mr)
	if err != nil {
		errorf(ctx, "%v", err)
		status := 500
		if errors.As(err, new(*badUploadError)) {
			status = 400
		}
		http.Error(w, err.Error(), status)
		return
	}

	if err := a.Load(ctx); err != nil {
		errorf(ctx, "reloading datasets: %v", err)
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		errorf(ctx, "%v", err)
		http.Error(w, err.Error(), 500)
		return
	}
}

// uploadStatus is the response to an /upload POST served as JSON.
type uploadStatus struct {
	// UploadID is the upload ID assigned to the upload.
	UploadID string `json:"uploadid"`
	// FileIDs is the list of file IDs assigned to the files in the upload.
	FileIDs []string `json:"fileids"`
	// Runs is the number of runs stored.
	Runs int `json:"runs"`
}

// A badUploadError reports an uploaded file that is not a run CSV file.
type badUploadError struct {
	name string
	err  error
}

func (e *badUploadError) Error() string {
	return fmt.Sprintf("%s: %v", e.name, e.err)
}

func (e *badUploadError) Unwrap() error {
	return e.err
}

// processUpload takes one or more files from a multipart.Reader,
// archives them and stores their runs. Either every file is stored or
// none is.
func (a *App) processUpload(ctx context.Context, user string, mr *multipart.Reader) (*uploadStatus, error) {
	var u *db.Upload
	defer func() {
		if u != nil {
			u.Abort()
		}
	}()
	var status uploadStatus

	for i := 0; ; i++ {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		name := p.FormName()
		switch name {
		case "commit":
			continue
		case "abort":
			return nil, &badUploadError{"upload", fmt.Errorf("aborted by client")}
		case "file":
		default:
			return nil, &badUploadError{name, fmt.Errorf("unexpected field")}
		}

		if u == nil {
			u, err = a.DB.NewUpload(ctx)
			if err != nil {
				return nil, err
			}
			status.UploadID = u.ID
		}

		var buf bytes.Buffer
		recs, err := dataset.ReadCSV(io.TeeReader(p, &buf))
		if err != nil {
			return nil, &badUploadError{p.FileName(), err}
		}
		if len(recs) == 0 {
			return nil, &badUploadError{p.FileName(), fmt.Errorf("no runs")}
		}
		for _, rec := range recs {
			if err := u.InsertRun(rec); err != nil {
				return nil, &badUploadError{p.FileName(), err}
			}
		}

		meta := fileMetadata(ctx, u.ID, i, user)
		if a.Archive != nil {
			if err := a.Archive.Archive(ctx, fmt.Sprintf("uploads/%s.csv", meta["fileid"]), meta, &buf); err != nil {
				return nil, err
			}
		}
		status.FileIDs = append(status.FileIDs, meta["fileid"])
		status.Runs = u.Runs()
	}
	if u == nil {
		return nil, &badUploadError{"upload", fmt.Errorf("no files")}
	}

	err := u.Commit()
	u = nil
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// fileMetadata returns the extra metadata fields associated with an
// uploaded file.
func fileMetadata(_ context.Context, uploadid string, filenum int, user string) map[string]string {
	m := map[string]string{
		"uploadid":   uploadid,
		"fileid":     fmt.Sprintf("%s/%d", uploadid, filenum),
		"uploadtime": time.Now().UTC().Format(time.RFC3339),
	}
	if user != "" {
		m["by"] = user
	}
	return m
}
