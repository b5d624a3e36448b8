// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/perf/forensics/cattree"
)

// A Source supplies datasets.
type Source interface {
	// Datasets returns the current datasets, which must be
	// compatible.
	Datasets(ctx context.Context) ([]*cattree.Tree, error)
}

// Files is a Source that reads local files. JSON files (*.json) hold
// encoded trees; CSV files (*.csv) hold run records, which are pooled
// across all files and passed to FromRecords. A directory stands for
// the JSON and CSV files it contains.
type Files struct {
	Paths []string

	// Warn is passed to FromRecords.
	Warn func(format string, args ...interface{})
}

// Datasets implements Source.
func (fs *Files) Datasets(ctx context.Context) ([]*cattree.Tree, error) {
	paths, err := fs.expand()
	if err != nil {
		return nil, err
	}
	var trees []*cattree.Tree
	var recs []Record
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch filepath.Ext(path) {
		case ".json":
			ts, err := DecodeFile(path)
			if err != nil {
				return nil, err
			}
			trees = append(trees, ts...)
		case ".csv":
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			rs, err := ReadCSV(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			recs = append(recs, rs...)
		default:
			return nil, fmt.Errorf("%s: unknown dataset file type", path)
		}
	}
	if len(recs) > 0 {
		ts, err := FromRecords(recs, &Options{Warn: fs.Warn})
		if err != nil {
			return nil, err
		}
		trees = append(trees, ts...)
	}
	return Merge(trees)
}

func (fs *Files) expand() ([]string, error) {
	var paths []string
	for _, p := range fs.Paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			paths = append(paths, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			ext := filepath.Ext(e.Name())
			if !e.IsDir() && (ext == ".json" || ext == ".csv") {
				paths = append(paths, filepath.Join(p, e.Name()))
			}
		}
	}
	return paths, nil
}

// Merge checks that trees have distinct names and are compatible.
func Merge(trees []*cattree.Tree) ([]*cattree.Tree, error) {
	seen := make(map[string]bool)
	var dups []string
	for _, t := range trees {
		if seen[t.Name] {
			dups = append(dups, t.Name)
		}
		seen[t.Name] = true
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return nil, fmt.Errorf("duplicate datasets: %s", strings.Join(dups, ", "))
	}
	if err := cattree.CheckCompatible(trees...); err != nil {
		return nil, err
	}
	return trees, nil
}
