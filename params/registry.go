// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"fmt"
	"strings"

	"golang.org/x/perf/forensics/cattree"
)

// A Registry holds the parameters of one session.
type Registry struct {
	cat *Catalog

	params map[string]*Parameter
	// names lists every parameter in construction order: dataset
	// variables first, then settings.
	names []string
	// axisVars lists the variables that may be used as an axis.
	axisVars []string
	// multi lists the parameters that were multi-choice at
	// construction.
	multi []string

	plotTypes []string
	trees     map[string]*cattree.Tree
	order     []string

	// prevSeries is the series variable the baseline was last
	// cloned from.
	prevSeries string
}

// New returns a Registry over the variables of trees and the settings
// of cat, set to its defaults. If cat is nil, DefaultCatalog is used.
//
// Trees sharing a dimension name must have identical categories in it;
// otherwise New returns an error wrapping
// cattree.ErrIncompatibleVariable.
func New(cat *Catalog, trees ...*cattree.Tree) (*Registry, error) {
	if cat == nil {
		cat = DefaultCatalog()
	}
	if err := cattree.CheckCompatible(trees...); err != nil {
		return nil, err
	}
	r := &Registry{
		cat:    cat,
		params: make(map[string]*Parameter),
		trees:  make(map[string]*cattree.Tree),
	}
	for _, t := range trees {
		if _, ok := r.trees[t.Name]; ok {
			return nil, fmt.Errorf("duplicate dataset %s", t.Name)
		}
		r.trees[t.Name] = t
		r.order = append(r.order, t.Name)
	}

	for _, t := range trees {
		for _, d := range t.Dimensions() {
			if p, ok := r.params[d.Name]; ok {
				p.Datasets = append(p.Datasets, t.Name)
				continue
			}
			p := &Parameter{
				Name:     d.Name,
				Kind:     Variable,
				Options:  append([]string(nil), d.Categories...),
				Multi:    !contains(cat.SingleChoice, d.Name),
				Datasets: []string{t.Name},
			}
			if p.Multi {
				p.Active = make([]bool, len(p.Options))
			}
			if strings.HasSuffix(d.Name, cat.VersionSuffix) && d.Name == t.MetaDimension() {
				p.Metas = append([]string(nil), t.Metas()...)
			}
			r.add(p)
		}
	}

	for _, pt := range cat.PlotTypes {
		if pt.Primary != "" && r.trees[pt.Primary] == nil {
			continue
		}
		r.plotTypes = append(r.plotTypes, pt.Name)
	}

	for _, s := range cat.Settings {
		if _, ok := r.params[s.Name]; ok {
			return nil, fmt.Errorf("dataset variable %s has the name of a setting", s.Name)
		}
		p := &Parameter{
			Name:     s.Name,
			Kind:     Setting,
			Multi:    s.Multi,
			FreeText: s.FreeText,
		}
		switch s.Source {
		case FixedOptions:
			p.Options = append([]string(nil), s.Options...)
		case DatasetOptions:
			p.Options = append([]string(nil), r.order...)
		case PlotTypeOptions:
			p.Options = append([]string(nil), r.plotTypes...)
		}
		if s.Variable {
			p.Kind = Variable
			p.Datasets = append([]string(nil), r.order...)
		}
		if p.Multi {
			p.Active = make([]bool, len(p.Options))
		}
		r.add(p)
	}

	for _, name := range r.names {
		p := r.params[name]
		if p.Kind == Variable && !contains(cat.Restricted, name) {
			r.axisVars = append(r.axisVars, name)
		}
		if p.Multi {
			r.multi = append(r.multi, name)
		}
	}
	for _, axis := range []string{X, Series} {
		p, ok := r.params[axis]
		if !ok {
			return nil, fmt.Errorf("catalog has no %s setting", axis)
		}
		p.Options = append([]string(nil), r.axisVars...)
	}
	if _, ok := r.params[Type]; !ok {
		return nil, fmt.Errorf("catalog has no %s setting", Type)
	}
	if p, ok := r.params[Baseline]; !ok {
		r.add(&Parameter{Name: Baseline, Kind: Setting})
	} else if p.Kind != Setting {
		return nil, fmt.Errorf("dataset variable %s has the name of a setting", Baseline)
	}

	if err := r.SetDefault(); err != nil {
		return nil, err
	}
	r.prevSeries = ""
	if err := r.syncBaseline(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) add(p *Parameter) {
	r.params[p.Name] = p
	r.names = append(r.names, p.Name)
}

// Catalog returns the catalog r was built with.
func (r *Registry) Catalog() *Catalog {
	return r.cat
}

// Names returns the names of all parameters.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Variables returns the names of the variables that may be used as an
// axis.
func (r *Registry) Variables() []string {
	return append([]string(nil), r.axisVars...)
}

// Settings returns the names of all settings.
func (r *Registry) Settings() []string {
	var out []string
	for _, name := range r.names {
		if r.params[name].Kind == Setting {
			out = append(out, name)
		}
	}
	return out
}

// PlotTypes returns the names of the plot types available with the
// loaded datasets.
func (r *Registry) PlotTypes() []string {
	return append([]string(nil), r.plotTypes...)
}

// Datasets returns the names of the loaded datasets, in load order.
func (r *Registry) Datasets() []string {
	return append([]string(nil), r.order...)
}

// Tree returns the named dataset, or nil.
func (r *Registry) Tree(name string) *cattree.Tree {
	return r.trees[name]
}

func (r *Registry) lookup(name string) (*Parameter, error) {
	if alias, ok := r.cat.Aliases[name]; ok {
		name = alias
	}
	p, ok := r.params[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownParameter, name)
	}
	return p, nil
}

// Parameter returns a copy of the named parameter.
func (r *Registry) Parameter(name string) (*Parameter, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// Selected returns the selected options of the named parameter.
func (r *Registry) Selected(name string) ([]string, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Selected(), nil
}

// Indexes returns the indexes of the selected options of the named
// parameter.
func (r *Registry) Indexes(name string) ([]int, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Indexes(), nil
}

// Value returns the selected option of the named single-choice
// parameter.
func (r *Registry) Value(name string) (string, error) {
	p, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	if p.Multi {
		return "", fmt.Errorf("parameter %s is multi-choice", p.Name)
	}
	return p.Value(), nil
}

// value is Value for settings the registry knows exist.
func (r *Registry) value(name string) string {
	if p, ok := r.params[name]; ok {
		return p.Value()
	}
	return ""
}

// PlotType returns the selected plot type.
func (r *Registry) PlotType() PlotType {
	if pt, ok := r.cat.plotType(r.value(Type)); ok {
		return *pt
	}
	return PlotType{Name: r.value(Type)}
}

// BaselineAuto reports whether the baseline follows the series
// selection.
func (r *Registry) BaselineAuto() bool {
	return r.value(BaselineMode) == "auto"
}

// Context returns the query context of the named dataset for the
// current selection.
func (r *Registry) Context(dataset string) (cattree.Context, error) {
	t := r.trees[dataset]
	if t == nil {
		return nil, fmt.Errorf("%w: dataset %q", ErrUnknownOption, dataset)
	}
	ctx := make(cattree.Context, len(t.Dimensions()))
	for i, d := range t.Dimensions() {
		p, err := r.lookup(d.Name)
		if err != nil {
			return nil, err
		}
		ctx[i] = p.Indexes()
	}
	return ctx, nil
}

// BaselineContext is like Context, but selects the baseline
// categories in the series dimension.
func (r *Registry) BaselineContext(dataset string) (cattree.Context, error) {
	ctx, err := r.Context(dataset)
	if err != nil {
		return nil, err
	}
	if di := r.trees[dataset].DimIndex(r.value(Series)); di >= 0 {
		ctx[di] = r.params[Baseline].Indexes()
	}
	return ctx, nil
}

// SetActive is a user write: it selects options of the named
// parameter, then reapplies the plot type's locks, recomputes the axis
// options, and resynchronizes the baseline.
//
// It fails with ErrUnknownParameter, ErrLocked, or ErrUnknownOption,
// in which case r is unchanged.
func (r *Registry) SetActive(name string, sel Selection) error {
	return r.transact(func() error {
		return r.write(name, sel, false)
	})
}

// SetTrusted is a system write: it bypasses locks and does not
// reconcile other parameters. It fails only if the parameter or option
// does not exist.
func (r *Registry) SetTrusted(name string, sel Selection) error {
	return r.transact(func() error {
		return r.write(name, sel, true)
	})
}

func (r *Registry) write(name string, sel Selection, trusted bool) error {
	p, err := r.lookup(name)
	if err != nil {
		return err
	}
	if !trusted && p.Locked {
		return fmt.Errorf("cannot set %s to %v: %w by plot type or baseline mode", p.Name, sel, ErrLocked)
	}
	np := p.Clone()
	if err := sel.apply(np); err != nil {
		return err
	}
	r.params[np.Name] = np

	if !trusted {
		if err := r.reconcile(); err != nil {
			return err
		}
	}
	if trusted && np.Name == Series {
		return r.syncBaseline()
	}
	return nil
}

type state struct {
	params     map[string]*Parameter
	prevSeries string
}

func (r *Registry) save() state {
	s := state{params: make(map[string]*Parameter, len(r.params)), prevSeries: r.prevSeries}
	for name, p := range r.params {
		s.params[name] = p.Clone()
	}
	return s
}

// transact runs f and rolls back every change if it fails.
func (r *Registry) transact(f func() error) error {
	saved := r.save()
	if err := f(); err != nil {
		r.params, r.prevSeries = saved.params, saved.prevSeries
		return err
	}
	return nil
}
