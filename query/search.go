// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"fmt"

	"golang.org/x/perf/forensics/benchmath"
	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/params"
)

// A Session runs queries for one user.
type Session struct {
	ds  *Datasets
	reg *params.Registry
}

// Registry returns the parameters of s.
func (s *Session) Registry() *params.Registry {
	return s.reg
}

// Datasets returns the datasets s queries.
func (s *Session) Datasets() *Datasets {
	return s.ds
}

// A Result is the combined result of a query over the selected
// datasets. Rows of Mean and SD correspond to the selected categories
// of the series variable and columns to those of the x variable.
type Result struct {
	Mean, SD benchmath.Matrix

	// Absent lists the missing subtrees the query ran into.
	Absent []string
}

// Search queries every selected dataset with x and series as the axes
// and combines the results. Either axis may be params.Dataset, in
// which case the datasets themselves are the categories of that axis.
// If baseline is set, the series variable selects the baseline
// categories instead.
//
// Results of several datasets are combined by averaging over the
// dataset axis if there is one, and position by position otherwise.
func (s *Session) Search(x, series string, baseline bool) (Result, error) {
	sel := params.Dataset
	if baseline && series == params.Dataset {
		sel = params.Baseline
	}
	names, err := s.reg.Selected(sel)
	if err != nil {
		return Result{}, err
	}
	xIdx, err := s.reg.Indexes(x)
	if err != nil {
		return Result{}, err
	}
	seriesIdx, err := s.reg.Indexes(series)
	if err != nil {
		return Result{}, err
	}
	if len(names) == 0 {
		return Result{
			Mean: benchmath.NaNMatrix(len(seriesIdx), len(xIdx)),
			SD:   benchmath.NaNMatrix(len(seriesIdx), len(xIdx)),
		}, nil
	}

	pt := s.reg.PlotType()
	var res Result
	var means, sds []benchmath.Matrix
	for _, name := range names {
		var r cattree.Series
		if pt.Primary != "" && name != pt.Primary {
			r, err = s.searchForeign(name, series, baseline, len(xIdx))
		} else {
			r, err = s.searchDataset(name, x, series, baseline)
		}
		if err != nil {
			return Result{}, err
		}
		means = append(means, r.Mean)
		sds = append(sds, r.SD)
		res.Absent = append(res.Absent, r.Absent...)
	}

	switch {
	case series == params.Dataset:
		res.Mean, res.SD, err = reduceEach(means, sds, 0, len(xIdx))
	case x == params.Dataset:
		res.Mean, res.SD, err = reduceEach(means, sds, 1, len(seriesIdx))
		if err == nil {
			res.Mean, err = benchmath.Transpose(res.Mean)
		}
		if err == nil {
			res.SD, err = benchmath.Transpose(res.SD)
		}
	case len(means) > 1:
		// Averaging results over unrelated datasets is of dubious
		// value, but is what the axes ask for.
		res.Mean, err = benchmath.Elementwise(benchmath.Mean, means...)
		if err == nil {
			res.SD, err = benchmath.Elementwise(benchmath.CombinedStdDev, sds...)
		}
	default:
		res.Mean, res.SD = means[0], sds[0]
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// reduceEach reduces each matrix along axis to a vector of width
// values and returns the vectors as the rows of a matrix.
func reduceEach(means, sds []benchmath.Matrix, axis, width int) (mean, sd benchmath.Matrix, err error) {
	mean = make(benchmath.Matrix, len(means))
	sd = make(benchmath.Matrix, len(sds))
	for i := range means {
		if axis == 0 {
			mean[i], err = overSeries(means[i], width, benchmath.Mean)
			if err == nil {
				sd[i], err = overSeries(sds[i], width, benchmath.CombinedStdDev)
			}
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		if mean[i], err = benchmath.MeanAxis(means[i], axis); err != nil {
			return nil, nil, err
		}
		if sd[i], err = benchmath.StdDevAxis(sds[i], axis); err != nil {
			return nil, nil, err
		}
	}
	return mean, sd, nil
}

// searchDataset runs SeriesBy on one dataset. An axis on the dataset
// variable is replaced by the first dimension of the dataset; the
// result is later reduced over it.
func (s *Session) searchDataset(name, x, series string, baseline bool) (cattree.Series, error) {
	t := s.ds.Tree(name)
	if t == nil {
		return cattree.Series{}, fmt.Errorf("%w: dataset %q", params.ErrUnknownOption, name)
	}
	first := t.Dimensions()[0].Name
	if series == params.Dataset {
		series = first
	}
	if x == params.Dataset {
		x = first
	}
	var ctx cattree.Context
	var err error
	if baseline {
		ctx, err = s.reg.BaselineContext(name)
	} else {
		ctx, err = s.reg.Context(name)
	}
	if err != nil {
		return cattree.Series{}, err
	}
	return t.SeriesBy(ctx, x, series)
}

// searchForeign queries a dataset that does not have the x variable of
// the plot type's primary dataset. It returns a single row of width
// columns holding only the latest selected version of the dataset, in
// the last column.
func (s *Session) searchForeign(name, series string, baseline bool, width int) (cattree.Series, error) {
	x := name + s.reg.Catalog().VersionSuffix
	r, err := s.searchDataset(name, x, series, baseline)
	if err != nil {
		return cattree.Series{}, err
	}
	point := cattree.Series{
		Mean:   benchmath.NaNMatrix(1, width),
		SD:     benchmath.NaNMatrix(1, width),
		Absent: r.Absent,
	}
	rows := len(r.Mean)
	if width == 0 || rows == 0 {
		return point, nil
	}
	last := r.Mean[rows-1]
	if n := len(last); n > 0 {
		point.Mean[0][width-1] = last[n-1]
		point.SD[0][width-1] = r.SD[rows-1][n-1]
	}
	return point, nil
}
