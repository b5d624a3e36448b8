// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Forensicssave uploads run files to a forensics server.
//
// Usage:
//
//	forensicssave [-v] [-server url] file...
//	forensicssave [-v] -bucket name [-object name] file...
//
// Each input file is a run CSV file. Forensicssave checks the files,
// uploads them to the server and prints the upload ID.
//
// With -bucket, forensicssave instead builds the datasets of the files
// and stores them as one dataset JSON object in a Google Cloud Storage
// bucket, where forensicsd -bucket finds them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/dataset/gcs"
	"golang.org/x/perf/forensics/storage"
)

var (
	server  = flag.String("server", "http://localhost:8080", "upload runs to server at `url`")
	noAuth  = flag.Bool("noauth", false, "do not authenticate to the server")
	verbose = flag.Bool("v", false, "print verbose log messages")
	bucket  = flag.String("bucket", "", "store datasets in GCS `bucket` instead of uploading")
	object  = flag.String("object", "datasets/runs.json", "store datasets as `object` of the bucket")
)

// writeOneFile checks that name is a run CSV file and writes it to u.
func writeOneFile(u *storage.Upload, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := dataset.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %v", name, err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("%s: no runs", name)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	w, err := u.CreateFile(filepath.Base(name))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of forensicssave:
	forensicssave [flags] file...
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("forensicssave: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	ctx := context.Background()

	files := flag.Args()
	if len(files) == 0 {
		log.Fatal("no files to upload")
	}

	if *bucket != "" {
		if err := store(ctx, files); err != nil {
			log.Fatal(err)
		}
		return
	}

	c := &storage.Client{BaseURL: *server}
	if !*noAuth {
		ts, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/userinfo.email")
		if err != nil {
			log.Fatal(err)
		}
		c.HTTPClient = oauth2.NewClient(ctx, ts)
	}

	start := time.Now()

	u := c.NewUpload(ctx)
	for _, name := range files {
		if err := writeOneFile(u, name); err != nil {
			log.Print(err)
			u.Abort()
			os.Exit(1)
		}
	}
	status, err := u.Commit()
	if err != nil {
		log.Fatalf("upload failed: %v", err)
	}

	if *verbose {
		s := ""
		if len(files) != 1 {
			s = "s"
		}
		log.Printf("%d file%s with %d runs uploaded in %.2f seconds.\n", len(files), s, status.Runs, time.Since(start).Seconds())
	}
	fmt.Printf("%s\n", status.UploadID)
}

// store builds the datasets of files and writes them to the bucket.
func store(ctx context.Context, files []string) error {
	src := &dataset.Files{Paths: files, Warn: log.Printf}
	trees, err := src.Datasets(ctx)
	if err != nil {
		return err
	}
	if len(trees) == 0 {
		return fmt.Errorf("no datasets in %v", files)
	}
	b, err := gcs.NewBucket(ctx, *bucket, "")
	if err != nil {
		return err
	}
	if err := b.PutDatasets(ctx, *object, trees); err != nil {
		return err
	}
	if *verbose {
		log.Printf("stored %d datasets in gs://%s/%s", len(trees), *bucket, *object)
	}
	return nil
}
