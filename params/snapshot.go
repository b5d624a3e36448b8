// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import "fmt"

// A Snapshot is the full state of a Registry, in parameter order. It
// shares no memory with the Registry and can be encoded as JSON.
type Snapshot []*Parameter

// Snapshot returns a deep copy of the state of r.
func (r *Registry) Snapshot() Snapshot {
	s := make(Snapshot, 0, len(r.names))
	for _, name := range r.names {
		s = append(s, r.params[name].Clone())
	}
	return s
}

// Get returns the named parameter of s, or nil.
func (s Snapshot) Get(name string) *Parameter {
	for _, p := range s {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Restore installs the state in s, bypassing locks.
//
// If reconciled is false, Restore then reapplies the lock policy,
// recomputes the axis options, and resynchronizes the baseline. If
// reconciled is true, s is trusted to be consistent, as a Snapshot of
// a Registry is, and the baseline in s is kept as is.
//
// s must name exactly the parameters of r. If it does not, or if a
// selection does not fit its options, Restore returns an error and r
// is unchanged.
func (r *Registry) Restore(s Snapshot, reconciled bool) error {
	if len(s) != len(r.names) {
		return fmt.Errorf("snapshot has %d parameters, want %d", len(s), len(r.names))
	}
	params := make(map[string]*Parameter, len(s))
	for _, p := range s {
		if p == nil {
			return fmt.Errorf("snapshot has a nil parameter")
		}
		if _, ok := r.params[p.Name]; !ok {
			return fmt.Errorf("snapshot: %w %q", ErrUnknownParameter, p.Name)
		}
		if _, dup := params[p.Name]; dup {
			return fmt.Errorf("snapshot has parameter %s twice", p.Name)
		}
		if err := p.check(); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		params[p.Name] = p.Clone()
	}
	if err := r.checkVariables(params); err != nil {
		return err
	}

	return r.transact(func() error {
		r.params = params
		if reconciled {
			r.prevSeries = r.value(Series)
			return nil
		}
		if err := r.RecomputeAxisOptions(); err != nil {
			return err
		}
		if err := r.ApplyLockPolicy(); err != nil {
			return err
		}
		return r.syncBaseline()
	})
}

// checkVariables reports whether params keeps the options of the
// dataset variables of r, which are fixed by the datasets.
func (r *Registry) checkVariables(params map[string]*Parameter) error {
	for _, name := range r.names {
		cur, p := r.params[name], params[name]
		if cur.Kind != Variable {
			continue
		}
		if len(cur.Options) != len(p.Options) {
			return fmt.Errorf("snapshot: variable %s has %d options, want %d", name, len(p.Options), len(cur.Options))
		}
		for i := range cur.Options {
			if cur.Options[i] != p.Options[i] {
				return fmt.Errorf("snapshot: variable %s: %w %q", name, ErrUnknownOption, p.Options[i])
			}
		}
	}
	return nil
}
