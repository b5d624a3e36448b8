// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Forensics computes a figure over performance datasets.
//
// Usage:
//
//	forensics [flags] path...
//	forensics [flags] -server url
//
// Each path is a dataset JSON file, a run CSV file, or a directory
// holding such files. With -server, forensics uses the datasets loaded
// by a forensics server instead.
//
// Forensics starts from the default parameters, applies the preset
// named by -preset, if any, and then each -set flag in order, exactly
// as a user would. It prints the resulting figure as a table, with one
// row per series and one column per x category.
//
// The -set flag takes a parameter name and a selection:
//
//	-set bench=fib,tak     select the benchmarks fib and tak
//	-set gambit-version=-1 select the last version
//	-set bench=all         select every benchmark
//	-set type='bar chart'  select a plot type
//
// Example:
//
//	forensics -preset VersionComparator:v2 runs.csv
//
// compares version v2 of the primary system with its baseline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/dataset"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
	"golang.org/x/perf/forensics/storage"
)

var (
	flagServer = flag.String("server", "", "read datasets from the forensics server at `url`")
	flagPreset = flag.String("preset", "", "apply preset `name[:arg]`")
	flagJSON   = flag.Bool("json", false, "print the figure as JSON")
	flagParams = flag.Bool("params", false, "print the parameters instead of the figure")
	flagSets   setFlags
)

func init() {
	flag.Var(&flagSets, "set", "set parameter `name=selection` (may be repeated)")
}

type setting struct {
	name string
	sel  params.Selection
}

type setFlags []setting

func (s *setFlags) String() string {
	var parts []string
	for _, st := range *s {
		parts = append(parts, st.name+"="+st.sel.String())
	}
	return strings.Join(parts, " ")
}

func (s *setFlags) Set(v string) error {
	name, sel, ok := strings.Cut(v, "=")
	if !ok || name == "" {
		return fmt.Errorf("want name=selection, got %q", v)
	}
	*s = append(*s, setting{name, params.ParseSelection(sel)})
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage of forensics:
	forensics [flags] path...
	forensics [flags] -server url
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	log.SetPrefix("forensics: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	ctx := context.Background()

	var src dataset.Source
	switch {
	case *flagServer != "" && flag.NArg() == 0:
		src = &storage.Client{BaseURL: *flagServer}
	case *flagServer == "" && flag.NArg() > 0:
		src = &dataset.Files{Paths: flag.Args(), Warn: log.Printf}
	default:
		flag.Usage()
	}

	trees, err := src.Datasets(ctx)
	if err != nil {
		log.Fatal(err)
	}
	s, err := newSession(trees)
	if err != nil {
		log.Fatal(err)
	}

	if *flagParams {
		if err := formatParams(os.Stdout, s.Registry()); err != nil {
			log.Fatal(err)
		}
		return
	}
	f, err := s.Figure()
	if err != nil {
		log.Fatal(err)
	}
	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "\t")
		err = enc.Encode(f)
	} else {
		err = formatFigure(os.Stdout, f)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// newSession creates a session over trees and applies the -preset and
// -set flags.
func newSession(trees []*cattree.Tree) (*query.Session, error) {
	ds, err := query.NewDatasets(trees...)
	if err != nil {
		return nil, err
	}
	s, err := ds.NewSession(nil)
	if err != nil {
		return nil, err
	}
	reg := s.Registry()
	if *flagPreset != "" {
		name, arg, _ := strings.Cut(*flagPreset, ":")
		if err := reg.LoadPreset(name, arg); err != nil {
			return nil, err
		}
	}
	for _, st := range flagSets {
		if err := reg.SetActive(st.name, st.sel); err != nil {
			return nil, err
		}
	}
	return s, nil
}
