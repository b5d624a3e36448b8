// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package query runs the queries described by a parameter registry
// against a set of datasets and assembles the data of a figure.
//
// A Datasets value is read-only once built and may be shared by any
// number of goroutines. Each Session owns a params.Registry and must
// be used by one goroutine at a time.
package query

import (
	"fmt"
	"sort"

	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/params"
)

// Tolerance is the relative change below which a comparison is
// reported as unchanged.
const Tolerance = 0.05

// Datasets is an immutable collection of compatible datasets.
type Datasets struct {
	trees  []*cattree.Tree
	byName map[string]*cattree.Tree
}

// NewDatasets returns a collection of trees. Trees must have distinct
// names and be compatible, as checked by cattree.CheckCompatible.
func NewDatasets(trees ...*cattree.Tree) (*Datasets, error) {
	if err := cattree.CheckCompatible(trees...); err != nil {
		return nil, err
	}
	d := &Datasets{byName: make(map[string]*cattree.Tree)}
	for _, t := range trees {
		if _, ok := d.byName[t.Name]; ok {
			return nil, fmt.Errorf("duplicate dataset %s", t.Name)
		}
		d.byName[t.Name] = t
		d.trees = append(d.trees, t)
	}
	return d, nil
}

// Names returns the names of the datasets, in load order.
func (d *Datasets) Names() []string {
	names := make([]string, len(d.trees))
	for i, t := range d.trees {
		names[i] = t.Name
	}
	return names
}

// Trees returns the datasets. The caller must not modify the result.
func (d *Datasets) Trees() []*cattree.Tree {
	return d.trees
}

// Tree returns the named dataset, or nil.
func (d *Datasets) Tree(name string) *cattree.Tree {
	return d.byName[name]
}

// Variables returns the sorted names of the dimensions of all
// datasets.
func (d *Datasets) Variables() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range d.trees {
		for _, name := range t.DimensionNames() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// NewSession returns a session over d with a registry built from cat,
// or from params.DefaultCatalog if cat is nil.
func (d *Datasets) NewSession(cat *params.Catalog) (*Session, error) {
	reg, err := params.New(cat, d.trees...)
	if err != nil {
		return nil, err
	}
	return &Session{ds: d, reg: reg}, nil
}
