// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"fmt"
	"strings"
)

// reconcile restores the invariants between parameters after a user
// write.
func (r *Registry) reconcile() error {
	if err := r.RecomputeAxisOptions(); err != nil {
		return err
	}
	if err := r.applyLocks(); err != nil {
		return err
	}
	return r.syncBaseline()
}

// ApplyLockPolicy clears every lock, then forces and locks the settings
// the selected plot type constrains. On error, r is left unchanged.
func (r *Registry) ApplyLockPolicy() error {
	return r.transact(r.applyLocks)
}

func (r *Registry) applyLocks() error {
	for _, p := range r.params {
		p.Locked = false
	}
	name := r.value(Type)
	pt, ok := r.cat.plotType(name)
	if !ok {
		return fmt.Errorf("%w plot type %q", ErrUnknownOption, name)
	}
	for _, l := range pt.Locks {
		p, ok := r.params[l.Setting]
		if !ok {
			return fmt.Errorf("plot type %s: %w %q", pt.Name, ErrUnknownParameter, l.Setting)
		}
		np := p.Clone()
		if err := Label(l.Value).apply(np); err != nil {
			return fmt.Errorf("plot type %s: %w", pt.Name, err)
		}
		np.Locked = true
		r.params[np.Name] = np
	}
	r.params[Baseline].Locked = r.BaselineAuto()
	return nil
}

// RecomputeAxisOptions sets the options of the x and series axes to
// the variables compatible with every selected dataset, or to the
// fixed pair of the selected plot type.
//
// An axis keeps its variable if it is still an option. Otherwise, if a
// single dataset is selected and the axis showed a version variable,
// it moves to that dataset's version variable. Failing that, it falls
// back to a default position.
func (r *Registry) RecomputeAxisOptions() error {
	if pt, ok := r.cat.plotType(r.value(Type)); ok && pt.Axes != nil {
		r.setAxis(X, []string{pt.Axes.X}, 0)
		r.setAxis(Series, []string{pt.Axes.Series}, 0)
		return nil
	}

	datasets := r.params[Dataset].Selected()
	var options []string
	for _, name := range r.axisVars {
		p := r.params[name]
		ok := true
		for _, ds := range datasets {
			if !p.CompatibleWith(ds) {
				ok = false
				break
			}
		}
		if ok {
			options = append(options, name)
		}
	}
	if len(options) == 0 {
		return fmt.Errorf("no variable is shared by datasets %s", strings.Join(datasets, ", "))
	}

	for _, axis := range []struct {
		name string
		def  int
	}{{X, 0}, {Series, 1}} {
		dropped := r.setAxis(axis.name, options, axis.def)
		if len(datasets) == 1 && strings.HasSuffix(dropped, r.cat.VersionSuffix) {
			p := r.params[axis.name]
			if i := p.indexOf(datasets[0] + r.cat.VersionSuffix); i >= 0 {
				p.Index = i
			}
		}
	}
	return nil
}

// setAxis replaces the options of axis, keeping its variable if
// possible, otherwise selecting options[def], clamped to the last
// option. It returns the variable it dropped, if any.
func (r *Registry) setAxis(axis string, options []string, def int) (dropped string) {
	p := r.params[axis].Clone()
	prev := p.Value()
	p.Options = append([]string(nil), options...)
	if i := p.indexOf(prev); i >= 0 {
		p.Index = i
	} else {
		if def >= len(options) {
			def = len(options) - 1
		}
		p.Index = def
		dropped = prev
	}
	r.params[axis] = p
	return dropped
}

// syncBaseline rebuilds the baseline when the series variable changed
// and, in automatic mode, derives its selection from the series
// selection.
func (r *Registry) syncBaseline() error {
	series := r.value(Series)
	src, ok := r.params[series]
	if !ok {
		return fmt.Errorf("series: %w %q", ErrUnknownParameter, series)
	}
	if series != r.prevSeries {
		r.params[Baseline] = rebuildBaseline(src)
		r.prevSeries = series
	}
	b := r.params[Baseline]
	if !r.BaselineAuto() {
		b.Locked = false
		return nil
	}
	b.Locked = true
	n := len(src.Options)
	if n == 0 {
		return nil
	}
	if !b.Multi {
		b.Index = (src.Index - 1 + n) % n
		return nil
	}
	// Option i of the baseline is on when the option after it is on
	// in the series.
	for i := range b.Active {
		b.Active[i] = src.Active[(i+1)%n]
	}
	return nil
}

// rebuildBaseline returns a baseline parameter with the shape of src.
// It shares no memory with src.
func rebuildBaseline(src *Parameter) *Parameter {
	b := src.Clone()
	b.Name = Baseline
	b.Kind = Setting
	b.Locked = false
	b.Datasets = nil
	return b
}

// SelectAll selects every option of every multi-choice parameter
// except the dataset selector. Locked parameters are left as they are.
func (r *Registry) SelectAll() error {
	return r.transact(func() error {
		for _, name := range r.multi {
			if name == Dataset {
				continue
			}
			if p := r.params[name]; p == nil || p.Locked || !p.Multi {
				continue
			}
			if err := r.write(name, All(), false); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetDefault resets every parameter except the baseline to its
// default selection. A default that does not apply selects the first
// option instead.
func (r *Registry) SetDefault() error {
	return r.transact(func() error {
		for _, name := range r.names {
			if name == Baseline {
				continue
			}
			p := r.params[name]
			p.Locked = false
			if len(p.Options) == 0 {
				continue
			}
			err := r.transact(func() error {
				return r.write(name, r.defaultFor(p), false)
			})
			if err == nil {
				continue
			}
			if err := r.write(name, Index(0), false); err != nil {
				return fmt.Errorf("setting default of %s: %w", name, err)
			}
		}
		return nil
	})
}

func (r *Registry) defaultFor(p *Parameter) Selection {
	if sel, ok := r.cat.Defaults[p.Name]; ok {
		return sel
	}
	if p.Kind == Variable && strings.HasSuffix(p.Name, r.cat.VersionSuffix) {
		return r.cat.VersionDefault
	}
	for _, s := range r.cat.Settings {
		if s.Name == p.Name {
			return s.Default
		}
	}
	if p.Multi {
		return First(1)
	}
	return Index(0)
}
