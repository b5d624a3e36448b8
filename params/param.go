// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package params implements the registry of named parameters that
// drive queries over benchmark datasets.
//
// A parameter is either a variable, backed by a dimension of one or
// more datasets, or a setting that only affects how results are
// computed and displayed. Each parameter has an ordered list of
// options and a selection: a mask for multi-choice parameters or a
// single index otherwise.
//
// Parameters depend on each other. The plot type can lock settings to
// fixed values, the selected datasets restrict which variables may be
// used as the x and series axes, and the baseline parameter is a clone
// of whichever variable is the series axis. A Registry keeps these
// constraints satisfied after every write. Writes are validated before
// any state changes, and a write that fails leaves the registry
// untouched.
//
// A Registry is not safe for concurrent use. Each session should own
// its own Registry; the datasets it was built from can be shared.
package params

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownParameter is returned for writes and reads of a
	// parameter name that is not in the registry.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrUnknownOption is returned when a selection names an
	// option a parameter does not have.
	ErrUnknownOption = errors.New("unknown option")
	// ErrLocked is returned when a user write targets a locked
	// parameter.
	ErrLocked = errors.New("parameter is locked")
	// ErrUnknownPreset is returned by LoadPreset for an unknown
	// preset name.
	ErrUnknownPreset = errors.New("unknown preset")
)

// A Kind distinguishes variables from settings.
type Kind int

const (
	// Variable parameters select categories of a dataset dimension,
	// or datasets themselves.
	Variable Kind = iota
	// Setting parameters configure how results are computed.
	Setting
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Setting:
		return "setting"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "variable":
		*k = Variable
	case "setting":
		*k = Setting
	default:
		return fmt.Errorf("unknown parameter kind %q", b)
	}
	return nil
}

// A Parameter is the state of one named parameter.
type Parameter struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	Options []string `json:"options"`

	// Multi reports whether several options may be selected. If
	// so, Active is the selection mask; otherwise Index is the
	// selected option.
	Multi  bool   `json:"multiOption"`
	Active []bool `json:"active,omitempty"`
	Index  int    `json:"index"`

	// Locked parameters reject user writes.
	Locked bool `json:"lock"`

	// FreeText parameters accept any label, which replaces their
	// options.
	FreeText bool `json:"freeText,omitempty"`

	// Metas holds one metadata string per option, for variables of
	// a version-like dimension.
	Metas []string `json:"metas,omitempty"`

	// Datasets lists the datasets a variable is compatible with.
	Datasets []string `json:"datasets,omitempty"`
}

// Clone returns a deep copy of p.
func (p *Parameter) Clone() *Parameter {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	c.Active = append([]bool(nil), p.Active...)
	c.Metas = append([]string(nil), p.Metas...)
	c.Datasets = append([]string(nil), p.Datasets...)
	return &c
}

// Selected returns the selected options of p, in option order.
func (p *Parameter) Selected() []string {
	var out []string
	for _, i := range p.Indexes() {
		out = append(out, p.Options[i])
	}
	return out
}

// Indexes returns the indexes of the selected options of p.
func (p *Parameter) Indexes() []int {
	if !p.Multi {
		if p.Index < 0 || p.Index >= len(p.Options) {
			return nil
		}
		return []int{p.Index}
	}
	var out []int
	for i, on := range p.Active {
		if on {
			out = append(out, i)
		}
	}
	return out
}

// Value returns the selected option of a single-choice parameter, or
// "" if there is none.
func (p *Parameter) Value() string {
	if p.Multi || p.Index < 0 || p.Index >= len(p.Options) {
		return ""
	}
	return p.Options[p.Index]
}

// HasMeta reports whether p carries per-option metadata.
func (p *Parameter) HasMeta() bool {
	return len(p.Metas) > 0
}

// CompatibleWith reports whether variable p exists in dataset.
func (p *Parameter) CompatibleWith(dataset string) bool {
	for _, d := range p.Datasets {
		if d == dataset {
			return true
		}
	}
	return false
}

// Status summarizes the selection of p as "None", "All", "Multiple",
// or the single selected option.
func (p *Parameter) Status() string {
	sel := p.Selected()
	switch {
	case len(sel) == 1:
		return sel[0]
	case len(sel) == 0:
		return "None"
	case len(sel) == len(p.Options):
		return "All"
	}
	return "Multiple"
}

// check reports whether the selection state of p fits its options.
func (p *Parameter) check() error {
	if p.Multi {
		if len(p.Active) != len(p.Options) {
			return fmt.Errorf("parameter %s: %d selection flags for %d options", p.Name, len(p.Active), len(p.Options))
		}
		return nil
	}
	if len(p.Options) > 0 && (p.Index < 0 || p.Index >= len(p.Options)) {
		return fmt.Errorf("parameter %s: %w index %d", p.Name, ErrUnknownOption, p.Index)
	}
	return nil
}

func (p *Parameter) indexOf(label string) int {
	for i, o := range p.Options {
		if o == label {
			return i
		}
	}
	return -1
}

func (p *Parameter) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", p.Name, p.Status())
	if p.Locked {
		b.WriteString(" (locked)")
	}
	return b.String()
}
