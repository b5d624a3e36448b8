// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcs_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/cattree/cattreetest"
	"golang.org/x/perf/forensics/dataset/gcs"
)

// TestBucket runs against a storage emulator, with the bucket named by
// GCS_TEST_BUCKET.
func TestBucket(t *testing.T) {
	name := os.Getenv("GCS_TEST_BUCKET")
	if os.Getenv("STORAGE_EMULATOR_HOST") == "" || name == "" {
		t.Skip("STORAGE_EMULATOR_HOST and GCS_TEST_BUCKET not set")
	}
	ctx := context.Background()
	prefix := fmt.Sprintf("test-%d/", time.Now().UnixNano())
	b, err := gcs.NewBucket(ctx, name, prefix)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.PutDatasets(ctx, "gambit.json", []*cattree.Tree{cattreetest.Gambit(t)}); err != nil {
		t.Fatal(err)
	}
	if err := b.PutDatasets(ctx, "chez.json", []*cattree.Tree{cattreetest.Chez(t)}); err != nil {
		t.Fatal(err)
	}
	meta := map[string]string{"uploadid": "1"}
	if err := b.Archive(ctx, "uploads/1.csv", meta, strings.NewReader("system,commit,benchmark,values\n")); err != nil {
		t.Fatal(err)
	}

	trees, err := b.Datasets(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Objects are listed in name order.
	if len(trees) != 2 || trees[0].Name != "chez" || trees[1].Name != "gambit" {
		t.Errorf("Datasets = %v, want chez and gambit", trees)
	}
}
