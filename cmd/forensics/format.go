// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"

	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/internal/texttab"
	"golang.org/x/perf/forensics/params"
	"golang.org/x/perf/forensics/query"
)

// formatFigure writes f as a table with one row per series label and
// one column per x label. Each cell shows the mean and the standard
// deviation; missing cells show "-".
func formatFigure(w io.Writer, f *query.Figure) error {
	fmt.Fprintf(w, "%s\n", f.Title)
	if f.Caption != "" {
		fmt.Fprintf(w, "%s\n", f.Caption)
	}
	fmt.Fprintln(w)

	var tab texttab.Table
	tab.Row().Cell(query.DisplayName(f.Series) + " \\ " + query.DisplayName(f.X))
	for _, x := range f.XLabels {
		tab.Cell(x, texttab.Right)
	}
	for i, label := range f.SeriesLabels {
		tab.Row().Cell(label)
		for j := range f.XLabels {
			tab.Cell(formatCell(f.Mean, f.SD, i, j), texttab.Right)
		}
	}
	if f.Changes != nil {
		tab.Row().Cell("")
		for _, c := range f.Changes {
			tab.Cell(c.String(), texttab.Right)
		}
	}
	if err := tab.Format(w); err != nil {
		return err
	}
	for _, a := range f.Absent {
		if _, err := fmt.Fprintf(w, "missing: %s\n", a); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(mean, sd benchmath.Matrix, i, j int) string {
	if i >= len(mean) || j >= len(mean[i]) || benchmath.IsMissing(mean[i][j]) {
		return "-"
	}
	s := fmt.Sprintf("%.4g", mean[i][j])
	if i < len(sd) && j < len(sd[i]) && !benchmath.IsMissing(sd[i][j]) && sd[i][j] != 0 {
		s += fmt.Sprintf(" ± %.2g", sd[i][j])
	}
	return s
}

// formatParams writes the parameters of reg, one per line, with
// their display names and selections.
func formatParams(w io.Writer, reg *params.Registry) error {
	var tab texttab.Table
	for _, name := range reg.Names() {
		p, err := reg.Parameter(name)
		if err != nil {
			return err
		}
		tab.Row().Cell(name).Cell(query.DisplayName(name)).Cell(p.Status())
		if p.Locked {
			tab.Cell("locked")
		}
	}
	return tab.Format(w)
}
