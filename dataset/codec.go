// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dataset loads benchmark datasets into categorical trees.
//
// Datasets are exchanged as a JSON array with one object per tree:
//
//	[{"name": "gambit",
//	  "measures": ["real time"],
//	  "tags": ["gambit-version", "bench", "measure", "stat"],
//	  "options": [["v1", "v2"], ["fib", "tak"], ["real time"], ["mean", "sd"]],
//	  "data": [[[[1.5, 0.1]], [[2, null]]], ...],
//	  "metas": ["v1\n...", "v2\n..."]}]
//
// Missing subtrees are encoded as null. Trees can also be built from
// flat run records, such as the CSV files written by benchmark
// collectors; see FromRecords and ReadCSV.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/perf/forensics/cattree"
)

// jsonTree is the JSON form of a tree.
type jsonTree struct {
	Name     string       `json:"name"`
	Measures []string     `json:"measures,omitempty"`
	Tags     []string     `json:"tags"`
	Options  [][]string   `json:"options"`
	Data     cattree.Node `json:"data"`
	Metas    []string     `json:"metas,omitempty"`
	// Meta is an older spelling of Metas.
	Meta    []string `json:"meta,omitempty"`
	MetaTag string   `json:"metaTag,omitempty"`
}

// Decode reads a JSON array of trees from r. It fails if any tree is
// malformed, if two trees share a name, or if the trees are not
// compatible.
func Decode(r io.Reader) ([]*cattree.Tree, error) {
	var in []jsonTree
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding datasets: %w", err)
	}
	trees := make([]*cattree.Tree, 0, len(in))
	seen := make(map[string]bool)
	for _, jt := range in {
		if seen[jt.Name] {
			return nil, fmt.Errorf("duplicate dataset %s", jt.Name)
		}
		seen[jt.Name] = true
		t, err := jt.tree()
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	if err := cattree.CheckCompatible(trees...); err != nil {
		return nil, err
	}
	return trees, nil
}

func (jt *jsonTree) tree() (*cattree.Tree, error) {
	if jt.Name == "" {
		return nil, fmt.Errorf("dataset has no name")
	}
	if len(jt.Tags) != len(jt.Options) {
		return nil, fmt.Errorf("dataset %s: %d tags but %d option lists", jt.Name, len(jt.Tags), len(jt.Options))
	}
	dims := make([]cattree.Dimension, len(jt.Tags))
	for i, tag := range jt.Tags {
		dims[i] = cattree.Dimension{Name: tag, Categories: jt.Options[i]}
	}
	metas := jt.Metas
	if metas == nil {
		metas = jt.Meta
	}
	// Some exporters emit an empty metadata list for trees without
	// version metadata.
	if len(metas) == 0 {
		metas = nil
	}
	return cattree.New(jt.Name, dims, jt.Data, &cattree.Options{
		Measures:      jt.Measures,
		Metas:         metas,
		MetaDimension: jt.MetaTag,
	})
}

// Encode writes trees to w in the format read by Decode.
func Encode(w io.Writer, trees []*cattree.Tree) error {
	out := make([]jsonTree, len(trees))
	for i, t := range trees {
		jt := jsonTree{
			Name:     t.Name,
			Measures: t.Measures,
			Data:     t.Root(),
			Metas:    t.Metas(),
		}
		for _, d := range t.Dimensions() {
			jt.Tags = append(jt.Tags, d.Name)
			jt.Options = append(jt.Options, d.Categories)
		}
		if jt.Metas != nil {
			jt.MetaTag = t.MetaDimension()
		}
		out[i] = jt
	}
	return json.NewEncoder(w).Encode(out)
}

// DecodeFile reads the trees stored in the named JSON file.
func DecodeFile(path string) ([]*cattree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	trees, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return trees, nil
}
