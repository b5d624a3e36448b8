// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// csvColumns are the columns of a run CSV file. The first row of the
// file names the columns, in any order; system, commit, benchmark and
// values are required.
var csvColumns = []string{"system", "commit", "timestamp", "config", "benchmark", "values", "measure", "message"}

// ReadCSV reads run records from a CSV file with a header row.
//
// The timestamp column holds either milliseconds since the Unix epoch
// or an RFC 3339 time. The values column holds space-separated
// numbers; a run whose values do not all parse is recorded as a failed
// run with no values.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	col := make(map[string]int)
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{"system", "commit", "benchmark", "values"} {
		if _, ok := col[req]; !ok {
			return nil, fmt.Errorf("CSV header %q has no %s column", strings.Join(header, ","), req)
		}
	}
	for name := range col {
		if !isCSVColumn(name) {
			return nil, fmt.Errorf("CSV header has unknown column %q", name)
		}
	}

	var recs []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		rec := Record{
			System:    field("system"),
			Commit:    field("commit"),
			Message:   field("message"),
			Config:    field("config"),
			Benchmark: field("benchmark"),
			Measure:   field("measure"),
			Values:    parseValues(field("values")),
		}
		if ts := field("timestamp"); ts != "" {
			if rec.Timestamp, err = parseTimestamp(ts); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteCSV writes records in the format read by ReadCSV.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range recs {
		vals := make([]string, len(r.Values))
		for i, v := range r.Values {
			vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		ts := ""
		if !r.Timestamp.IsZero() {
			ts = strconv.FormatInt(r.Timestamp.UnixMilli(), 10)
		}
		row := []string{r.System, r.Commit, ts, r.Config, r.Benchmark, strings.Join(vals, " "), r.Measure, r.Message}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isCSVColumn(name string) bool {
	for _, c := range csvColumns {
		if c == name {
			return true
		}
	}
	return false
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q", s)
	}
	return t, nil
}

func parseValues(s string) []float64 {
	fields := strings.Fields(s)
	vals := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil
	}
	return vals
}
