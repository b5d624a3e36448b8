// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out text tables with aligned columns.
package texttab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Table does layout of text-based tables.
//
// Row and Cell return the Table so callers can chain them to build up
// many cells at once.
type Table struct {
	rows [][]cell
}

type cell struct {
	value string
	right bool
}

// A CellOption changes the layout of a cell.
type CellOption func(c *cell)

// Right aligns a cell to the right of its column. Cells are left
// aligned by default.
var Right CellOption = func(c *cell) { c.right = true }

// Row starts a new row in table t.
func (t *Table) Row() *Table {
	t.rows = append(t.rows, nil)
	return t
}

// Cell adds a cell at the end of the current row.
func (t *Table) Cell(value string, opts ...CellOption) *Table {
	if len(t.rows) == 0 {
		t.Row()
	}
	c := cell{value: value}
	for _, o := range opts {
		o(&c)
	}
	last := len(t.rows) - 1
	t.rows[last] = append(t.rows[last], c)
	return t
}

// Format lays out table t and writes it to w. Columns are separated by
// two spaces and no line has trailing spaces.
func (t *Table) Format(w io.Writer) error {
	var ws []int
	for _, row := range t.rows {
		for col, c := range row {
			if col == len(ws) {
				ws = append(ws, 0)
			}
			if n := utf8.RuneCountInString(c.value); n > ws[col] {
				ws[col] = n
			}
		}
	}
	var line strings.Builder
	for _, row := range t.rows {
		line.Reset()
		for col, c := range row {
			if col > 0 {
				line.WriteString("  ")
			}
			pad := ws[col] - utf8.RuneCountInString(c.value)
			if c.right {
				fmt.Fprintf(&line, "%*s%s", pad, "", c.value)
			} else {
				fmt.Fprintf(&line, "%s%*s", c.value, pad, "")
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " ")); err != nil {
			return err
		}
	}
	return nil
}
