// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aclements/go-gg/generic/slice"
	"github.com/aclements/go-gg/ggstat"
	"github.com/aclements/go-gg/table"
	"github.com/aclements/go-moremath/stats"
	"golang.org/x/perf/forensics/cattree"
)

const (
	// DefaultMeasure is the measure of records that do not name
	// one.
	DefaultMeasure = "real time"
	// DefaultConfig is the configuration of records that do not
	// name one.
	DefaultConfig = "default"

	// ConfigSuffix is the name suffix of the configuration
	// dimension of a system.
	ConfigSuffix = "-config"
)

// A Record is the result of running one benchmark on one build of a
// system.
type Record struct {
	System string
	Commit string
	// Message is the description of the commit.
	Message   string
	Timestamp time.Time
	Config    string
	Benchmark string
	Measure   string
	// Values holds the measurements of the run. A failed run has
	// no values.
	Values []float64
}

// Options configures FromRecords.
type Options struct {
	// Warn, if non-nil, is called for every record that is
	// skipped.
	Warn func(format string, args ...interface{})
}

// run is a normalized record, one table row.
type run struct {
	System, Commit, Message, Config, Benchmark, Measure string

	Time   time.Time
	Values []float64
}

// FromRecords builds one tree per system from records.
//
// The tree of system s has dimensions s-version, s-config, bench,
// measure and stat, where stat holds the mean and standard deviation
// of the values of all records of a cell. Versions are ordered by the
// earliest timestamp of their records, and the metadata of each
// version is its commit name, timestamp and message, one per line.
// The bench and measure dimensions list every benchmark and measure
// of every system, so the trees are always compatible. Cells without
// values are missing.
//
// Trees are returned sorted by name.
func FromRecords(records []Record, opts *Options) ([]*cattree.Tree, error) {
	warn := func(string, ...interface{}) {}
	if opts != nil && opts.Warn != nil {
		warn = opts.Warn
	}

	var runs []run
	for _, r := range records {
		if r.System == "" || r.Commit == "" || r.Benchmark == "" {
			warn("skipping record without system, commit or benchmark: %+v", r)
			continue
		}
		rr := run{
			System:    r.System,
			Commit:    r.Commit,
			Message:   r.Message,
			Config:    r.Config,
			Benchmark: r.Benchmark,
			Measure:   r.Measure,
			Time:      r.Timestamp,
			Values:    r.Values,
		}
		if rr.Config == "" {
			rr.Config = DefaultConfig
		}
		if rr.Measure == "" {
			rr.Measure = DefaultMeasure
		}
		runs = append(runs, rr)
	}
	if len(runs) == 0 {
		return nil, nil
	}

	tab := table.TableFromStructs(runs)
	benches := slice.Nub(tab.MustColumn("Benchmark")).([]string)
	sort.Strings(benches)
	measures := slice.Nub(tab.MustColumn("Measure")).([]string)

	bySystem := table.GroupBy(table.SortBy(tab, "Time"), "System")
	var trees []*cattree.Tree
	for _, gid := range bySystem.Tables() {
		sys := gid.Label().(string)
		t, err := systemTree(sys, bySystem.Table(gid), benches, measures)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i].Name < trees[j].Name })
	return trees, nil
}

// systemTree builds the tree of one system from its runs, which are
// sorted by time.
func systemTree(sys string, t *table.Table, benches, measures []string) (*cattree.Tree, error) {
	commits := slice.Nub(t.MustColumn("Commit")).([]string)
	configs := slice.Nub(t.MustColumn("Config")).([]string)
	sort.Strings(configs)

	metas := make([]string, len(commits))
	commitCol := t.MustColumn("Commit").([]string)
	msgCol := t.MustColumn("Message").([]string)
	timeCol := t.MustColumn("Time").([]time.Time)
	for i, c := range commits {
		j := slice.Index(commitCol, c)
		metas[i] = versionMeta(c, timeCol[j], msgCol[j])
	}

	dims := []cattree.Dimension{
		{Name: sys + cattree.VersionSuffix, Categories: commits},
		{Name: sys + ConfigSuffix, Categories: configs},
		{Name: "bench", Categories: benches},
		{Name: "measure", Categories: measures},
		{Name: cattree.StatDimension, Categories: []string{"mean", "sd"}},
	}
	index := make([]map[string]int, len(dims)-1)
	for i := range index {
		index[i] = make(map[string]int)
		for j, c := range dims[i].Categories {
			index[i][c] = j
		}
	}

	type cell [4]int
	cells := make(map[cell]cattree.Node)
	agg := ggstat.Agg("Commit", "Config", "Benchmark", "Measure")(cellStats)
	ct := table.Flatten(agg.F(t))
	cols := [4][]string{
		ct.MustColumn("Commit").([]string),
		ct.MustColumn("Config").([]string),
		ct.MustColumn("Benchmark").([]string),
		ct.MustColumn("Measure").([]string),
	}
	ns := ct.MustColumn("N").([]int)
	means := ct.MustColumn("Mean").([]float64)
	sds := ct.MustColumn("SD").([]float64)
	for row := range ns {
		if ns[row] == 0 {
			continue
		}
		var key cell
		for d := range key {
			key[d] = index[d][cols[d][row]]
		}
		cells[key] = cattree.Leaves(means[row], sds[row])
	}

	var key cell
	var build func(depth int) cattree.Node
	build = func(depth int) cattree.Node {
		if depth == len(key) {
			if n, ok := cells[key]; ok {
				return n
			}
			return cattree.Missing()
		}
		children := make([]cattree.Node, len(dims[depth].Categories))
		for i := range children {
			key[depth] = i
			children[i] = build(depth + 1)
		}
		return cattree.Branch(children...)
	}
	tree, err := cattree.New(sys, dims, build(0), &cattree.Options{
		Measures:      measures,
		Metas:         metas,
		MetaDimension: dims[0].Name,
	})
	if err != nil {
		return nil, fmt.Errorf("building dataset %s: %w", sys, err)
	}
	return tree, nil
}

// cellStats is a ggstat.Aggregator over the runs of each cell. It
// pools their values and adds the sample size, mean and standard
// deviation as the columns "N", "Mean" and "SD". The standard
// deviation of a single value is 0.
func cellStats(input table.Grouping, b *table.Builder) {
	gids := input.Tables()
	ns := make([]int, len(gids))
	means := make([]float64, len(gids))
	sds := make([]float64, len(gids))
	for i, gid := range gids {
		var xs []float64
		for _, vs := range input.Table(gid).MustColumn("Values").([][]float64) {
			xs = append(xs, vs...)
		}
		ns[i] = len(xs)
		if len(xs) == 0 {
			continue
		}
		sample := stats.Sample{Xs: xs}
		means[i] = sample.Mean()
		if len(xs) > 1 {
			sds[i] = sample.StdDev()
		}
	}
	b.Add("N", ns).Add("Mean", means).Add("SD", sds)
}

// versionMeta returns the metadata of a version. Its first line is
// the commit name, which cattree.Tree.IndexOf matches.
func versionMeta(commit string, ts time.Time, msg string) string {
	var b strings.Builder
	b.WriteString(commit)
	if !ts.IsZero() {
		b.WriteString("\n" + ts.UTC().Format(time.RFC3339))
	}
	if msg = strings.TrimSpace(msg); msg != "" {
		b.WriteString("\n" + msg)
	}
	return b.String()
}
