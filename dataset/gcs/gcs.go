// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcs stores datasets and uploaded run files in a Google Cloud
// Storage bucket.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Bucket is a dataset.Source over the JSON dataset objects stored
// under a prefix of a bucket.
type Bucket struct {
	bucket *storage.BucketHandle
	prefix string
}

// NewBucket returns a Bucket for the objects of the named bucket
// whose names start with prefix.
func NewBucket(ctx context.Context, name, prefix string, opts ...option.ClientOption) (*Bucket, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Bucket{bucket: client.Bucket(name), prefix: prefix}, nil
}

// Datasets implements dataset.Source. It decodes every object under
// the prefix whose name ends in ".json".
func (b *Bucket) Datasets(ctx context.Context) ([]*cattree.Tree, error) {
	var trees []*cattree.Tree
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: b.prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(attrs.Name, ".json") {
			continue
		}
		ts, err := b.decode(ctx, attrs.Name)
		if err != nil {
			return nil, err
		}
		trees = append(trees, ts...)
	}
	return dataset.Merge(trees)
}

func (b *Bucket) decode(ctx context.Context, name string) ([]*cattree.Tree, error) {
	r, err := b.bucket.Object(name).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	ts, err := dataset.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s: %w", name, err)
	}
	return ts, nil
}

// PutDatasets stores trees as the object name under the prefix.
func (b *Bucket) PutDatasets(ctx context.Context, name string, trees []*cattree.Tree) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := b.bucket.Object(path.Join(b.prefix, name)).NewWriter(ctx)
	w.ContentType = "application/json"
	if err := dataset.Encode(w, trees); err != nil {
		// Canceling the context aborts the upload.
		cancel()
		w.Close()
		return err
	}
	return w.Close()
}

// Archive stores the contents of r as the object name under the
// prefix, with the given metadata.
func (b *Bucket) Archive(ctx context.Context, name string, metadata map[string]string, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w := b.bucket.Object(path.Join(b.prefix, name)).NewWriter(ctx)
	w.ObjectAttrs.Metadata = metadata
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		w.Close()
		return err
	}
	return w.Close()
}
