// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"fmt"
	"strings"

	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/params"
)

// A Change classifies a relative difference reported by a comparator.
type Change int

const (
	Unchanged Change = iota
	Improved
	Regressed
)

func (c Change) String() string {
	switch c {
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	}
	return "unchanged"
}

func (c Change) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Change) UnmarshalText(b []byte) error {
	for _, v := range []Change{Unchanged, Improved, Regressed} {
		if string(b) == v.String() {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown change %q", b)
}

// Classify classifies a difference expressed as a percentage. Lower
// is better. Missing differences are unchanged.
func Classify(percent float64) Change {
	switch {
	case percent < -Tolerance*100:
		return Improved
	case percent > Tolerance*100:
		return Regressed
	}
	return Unchanged
}

// A Figure holds the data and labels of one figure.
type Figure struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Caption string `json:"caption,omitempty"`

	X       string `json:"x"`
	Series  string `json:"series"`
	Measure string `json:"measure,omitempty"`

	XLabels      []string `json:"xLabels"`
	SeriesLabels []string `json:"seriesLabels"`
	// Metas holds the metadata of each x category, or empty strings
	// if the x variable has none.
	Metas []string `json:"metas"`

	// Mean and SD have one row per series label and one column per
	// x label. For comparator plot types, they hold a single row of
	// percentages relative to the baseline.
	Mean benchmath.Matrix `json:"mean"`
	SD   benchmath.Matrix `json:"sd"`

	// Changes classifies each column of a comparator figure.
	Changes []Change `json:"changes,omitempty"`

	ToZero bool   `json:"toZero"`
	YScale string `json:"yScale,omitempty"`

	// Absent lists the missing subtrees the queries ran into.
	Absent []string `json:"absent,omitempty"`
}

// Figure runs the queries described by the registry and assembles the
// figure data.
func (s *Session) Figure() (*Figure, error) {
	reg := s.reg
	pt := reg.PlotType()
	f := &Figure{
		Type:    pt.Name,
		X:       value(reg, params.X),
		Series:  value(reg, params.Series),
		Measure: value(reg, "measure"),
		ToZero:  value(reg, params.ToZero) == "yes",
		YScale:  value(reg, params.YScale),
	}
	var err error
	if f.XLabels, err = reg.Selected(f.X); err != nil {
		return nil, err
	}
	if f.SeriesLabels, err = reg.Selected(f.Series); err != nil {
		return nil, err
	}
	if strings.HasSuffix(f.X, reg.Catalog().VersionSuffix) {
		for i, l := range f.XLabels {
			f.XLabels[i] = shorten(l, 10)
		}
	}

	res, err := s.Search(f.X, f.Series, false)
	if err != nil {
		return nil, err
	}
	f.Mean, f.SD, f.Absent = res.Mean, res.SD, res.Absent

	if pt.Comparator {
		base, err := s.Search(f.X, f.Series, true)
		if err != nil {
			return nil, err
		}
		if err := f.compare(base); err != nil {
			return nil, err
		}
		f.Absent = append(f.Absent, base.Absent...)
	}
	f.Absent = dedup(f.Absent)

	norm, err := benchmath.ParseNorm(value(reg, params.Norm))
	if err != nil {
		return nil, err
	}
	f.normalize(norm)

	x, err := reg.Parameter(f.X)
	if err != nil {
		return nil, err
	}
	xIdx := x.Indexes()
	f.Metas = make([]string, len(xIdx))
	if x.HasMeta() {
		for i, idx := range xIdx {
			f.Metas[i] = x.Metas[idx]
		}
	}

	if value(reg, params.SortX) == "yes" {
		if err := f.sortX(); err != nil {
			return nil, err
		}
	}
	if value(reg, params.Mean) == "yes" {
		mean, err := overSeries(f.Mean, len(f.XLabels), benchmath.Mean)
		if err != nil {
			return nil, err
		}
		sd, err := overSeries(f.SD, len(f.XLabels), benchmath.CombinedStdDev)
		if err != nil {
			return nil, err
		}
		f.Mean, f.SD = benchmath.Matrix{mean}, benchmath.Matrix{sd}
		f.SeriesLabels = []string{fmt.Sprintf("Average %s Performance by %s", DisplayName(f.Series), DisplayName(f.X))}
	}
	if pt.Window != 0 {
		f.window(pt.Window)
	}
	if pt.Comparator && len(f.Mean) > 0 {
		f.Changes = make([]Change, len(f.Mean[0]))
		for i, v := range f.Mean[0] {
			f.Changes[i] = Classify(v)
		}
	}

	f.Title = value(reg, params.Title)
	if f.Title == "" {
		f.Title = s.title(f, pt)
	}
	f.Caption = s.caption(f)
	return f, nil
}

// compare replaces the data of f with the difference to base,
// relative to base and averaged over series.
func (f *Figure) compare(base Result) error {
	cols := len(f.XLabels)
	mean, err := overSeries(f.Mean, cols, benchmath.Mean)
	if err != nil {
		return err
	}
	sd, err := overSeries(f.SD, cols, benchmath.CombinedStdDev)
	if err != nil {
		return err
	}
	meanBase, err := overSeries(base.Mean, cols, benchmath.Mean)
	if err != nil {
		return err
	}
	sdBase, err := overSeries(base.SD, cols, benchmath.CombinedStdDev)
	if err != nil {
		return err
	}
	if cols == 0 {
		f.Mean, f.SD = benchmath.Matrix{{}}, benchmath.Matrix{{}}
		return nil
	}
	diff, err := benchmath.Difference(mean, meanBase)
	if err != nil {
		return err
	}
	diffSD, err := benchmath.StdDevOfDifference(sd, sdBase)
	if err != nil {
		return err
	}
	pm, err := benchmath.Percent(diff, meanBase)
	if err != nil {
		return err
	}
	ps, err := benchmath.Percent(diffSD, meanBase)
	if err != nil {
		return err
	}
	f.Mean, f.SD = benchmath.Matrix{pm}, benchmath.Matrix{ps}
	return nil
}

// overSeries reduces m across series to one value per x category. A
// matrix without series reduces to cols missing values.
func overSeries(m benchmath.Matrix, cols int, reduce benchmath.Reducer) ([]float64, error) {
	if len(m) == 0 {
		return benchmath.NaNMatrix(1, cols)[0], nil
	}
	return benchmath.ReduceAxis(m, 0, reduce)
}

// normalize divides every row by the statistic selected by norm,
// keeping standard deviations relative to their means.
func (f *Figure) normalize(norm benchmath.Norm) {
	if norm == benchmath.NormNone {
		return
	}
	for i, row := range f.SD {
		for j := range row {
			row[j] /= f.Mean[i][j]
		}
	}
	benchmath.NormalizeRows(f.Mean, norm)
	for i, row := range f.SD {
		for j := range row {
			row[j] *= f.Mean[i][j]
		}
	}
}

// sortX orders the x categories by their mean over series, missing
// last.
func (f *Figure) sortX() error {
	key, err := overSeries(f.Mean, len(f.XLabels), benchmath.Mean)
	if err != nil {
		return err
	}
	if len(key) != len(f.XLabels) {
		return fmt.Errorf("%w: %d columns for %d x labels", benchmath.ErrShapeMismatch, len(key), len(f.XLabels))
	}
	perm := benchmath.SortPerm(key)
	f.XLabels = benchmath.Permute(f.XLabels, perm)
	f.Metas = benchmath.Permute(f.Metas, perm)
	for i := range f.Mean {
		f.Mean[i] = benchmath.Permute(f.Mean[i], perm)
		f.SD[i] = benchmath.Permute(f.SD[i], perm)
	}
	return nil
}

// window keeps the first n x categories, or the last -n if n is
// negative.
func (f *Figure) window(n int) {
	cols := len(f.XLabels)
	lo, hi := 0, cols
	if n > 0 && n < cols {
		hi = n
	} else if n < 0 && -n < cols {
		lo = cols + n
	}
	f.XLabels = f.XLabels[lo:hi]
	f.Metas = f.Metas[lo:hi]
	for i := range f.Mean {
		f.Mean[i] = f.Mean[i][lo:hi]
		f.SD[i] = f.SD[i][lo:hi]
	}
}

func (s *Session) title(f *Figure, pt params.PlotType) string {
	switch {
	case pt.Comparator:
		series := s.status(f.Series)
		base := s.status(params.Baseline)
		var b strings.Builder
		b.WriteString(series)
		if series == "All" || series == "Multiple" {
			b.WriteString(" " + DisplayName(f.Series))
		}
		b.WriteString(" compared to " + base)
		if base == "All" || base == "Multiple" {
			b.WriteString(" " + DisplayName(f.Series))
		}
		switch {
		case pt.Window > 0:
			fmt.Fprintf(&b, " (Top %d)", pt.Window)
		case pt.Window < 0:
			fmt.Fprintf(&b, " (Bottom %d)", -pt.Window)
		}
		return b.String()
	case len(f.SeriesLabels) == 1:
		return f.SeriesLabels[0]
	}
	return fmt.Sprintf("%s Performance by %s", DisplayName(f.Series), DisplayName(f.X))
}

func (s *Session) status(name string) string {
	p, err := s.reg.Parameter(name)
	if err != nil {
		return ""
	}
	return shorten(p.Status(), 20)
}

// caption describes the selection of the variables that are not on an
// axis and apply to the selected datasets.
func (s *Session) caption(f *Figure) string {
	datasets, _ := s.reg.Selected(params.Dataset)
	if f.Series == params.Dataset && s.reg.PlotType().Comparator {
		base, _ := s.reg.Selected(params.Baseline)
		datasets = append(datasets, base...)
	}
	var parts []string
	for _, name := range s.reg.Names() {
		if name == f.X || name == f.Series {
			continue
		}
		p, err := s.reg.Parameter(name)
		if err != nil || p.Kind != params.Variable {
			continue
		}
		applies := false
		for _, ds := range datasets {
			if p.CompatibleWith(ds) {
				applies = true
				break
			}
		}
		if applies {
			parts = append(parts, fmt.Sprintf("%s: %s", DisplayName(name), p.Status()))
		}
	}
	if norm := value(s.reg, params.Norm); norm != "" && norm != "none" {
		parts = append(parts, fmt.Sprintf("%s: %s", DisplayName(params.Norm), norm))
	}
	return strings.Join(parts, ", ")
}

func value(reg *params.Registry, name string) string {
	v, _ := reg.Value(name)
	return v
}

// shorten truncates s to n runes, ending it with an ellipsis.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-2]) + "..."
}

func dedup(xs []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
