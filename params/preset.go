// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import "fmt"

// LoadPreset resets r to its defaults and runs the named preset of the
// catalog with arg. If the preset fails, r is left unchanged.
func (r *Registry) LoadPreset(name, arg string) error {
	p, ok := r.cat.preset(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownPreset, name)
	}
	return r.transact(func() error {
		if err := r.SetDefault(); err != nil {
			return err
		}
		if err := p.Run(r, arg); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		return nil
	})
}

// PresetNames returns the names of the presets of the catalog.
func (r *Registry) PresetNames() []string {
	var names []string
	for _, p := range r.cat.Presets {
		names = append(names, p.Name)
	}
	return names
}

type assign struct {
	name string
	sel  Selection
}

// setAll performs the writes in order.
func (r *Registry) setAll(writes ...assign) error {
	for _, w := range writes {
		if err := r.write(w.name, w.sel, false); err != nil {
			return err
		}
	}
	return nil
}

func stockPresets(c *Catalog) []Preset {
	version := c.PrimaryVersion()
	config := c.Primary + "-config"

	allVersions := func(r *Registry) error {
		err := r.setAll(
			assign{X, Label(version)},
			assign{Type, Label(AllSystems)},
			assign{"measure", Label("real time")},
			assign{ToZero, Label("yes")},
			assign{Dataset, All()},
		)
		if err != nil {
			return err
		}
		if err := r.SelectAll(); err != nil {
			return err
		}
		if _, ok := r.params[config]; ok {
			return r.write(config, Index(0), false)
		}
		return nil
	}

	versionComparator := func(r *Registry, commit string) error {
		err := r.setAll(
			assign{X, Label("bench")},
			assign{Type, Label(Comparator)},
			assign{"measure", Label("real time")},
			assign{Series, Label(version)},
			assign{SortX, Label("yes")},
		)
		if err != nil {
			return err
		}
		if err := r.SelectAll(); err != nil {
			return err
		}
		t := r.trees[c.Primary]
		if t == nil {
			return fmt.Errorf("dataset %s is not loaded", c.Primary)
		}
		if commit == "" {
			last, err := t.LastCategory(version)
			if err != nil {
				return err
			}
			commit = last
		}
		i, err := t.IndexOf(version, commit)
		if err != nil {
			return err
		}
		return r.write(version, Index(i), false)
	}

	return []Preset{
		{"Default", func(r *Registry, arg string) error { return nil }},
		{"AvgBenchAllVersion", func(r *Registry, arg string) error {
			return allVersions(r)
		}},
		{"benchAllVersion", func(r *Registry, arg string) error {
			if err := allVersions(r); err != nil {
				return err
			}
			return r.write("bench", Index(0), false)
		}},
		{"SystemComparator", func(r *Registry, arg string) error {
			err := r.setAll(
				assign{X, Label(Dataset)},
				assign{Type, Label(OrderedBars)},
				assign{"measure", Label("real time")},
				assign{Series, Label("bench")},
				assign{SortX, Label("yes")},
			)
			if err != nil {
				return err
			}
			if err := r.SelectAll(); err != nil {
				return err
			}
			return r.setAll(
				assign{Dataset, All()},
				assign{"bench", Index(0)},
			)
		}},
		{"VersionComparator", versionComparator},
		{"head", func(r *Registry, arg string) error {
			if err := versionComparator(r, arg); err != nil {
				return err
			}
			return r.write(Type, Label(Head), false)
		}},
		{"tail", func(r *Registry, arg string) error {
			if err := versionComparator(r, arg); err != nil {
				return err
			}
			return r.write(Type, Label(Tail), false)
		}},
	}
}
