// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type selKind int

const (
	selIndex selKind = iota
	selLabel
	selLabels
	selAll
	selFirst
	selLast
)

// A Selection describes which options of a parameter to select.
//
// The zero Selection selects the first option.
type Selection struct {
	kind   selKind
	n      int
	labels []string
}

// Index selects the option at index i. Negative indexes count from the
// end, so Index(-1) selects the last option.
func Index(i int) Selection {
	return Selection{kind: selIndex, n: i}
}

// Label selects the option with the given label.
func Label(label string) Selection {
	return Selection{kind: selLabel, labels: []string{label}}
}

// Labels selects the options with the given labels. It only applies to
// multi-choice parameters.
func Labels(labels ...string) Selection {
	return Selection{kind: selLabels, labels: labels}
}

// All selects every option of a multi-choice parameter.
func All() Selection {
	return Selection{kind: selAll}
}

// First selects the first n options of a multi-choice parameter, or
// all of them if there are fewer.
func First(n int) Selection {
	return Selection{kind: selFirst, n: n}
}

// Last selects the last n options of a multi-choice parameter, or all
// of them if there are fewer.
func Last(n int) Selection {
	return Selection{kind: selLast, n: n}
}

func (s Selection) String() string {
	switch s.kind {
	case selIndex:
		return strconv.Itoa(s.n)
	case selLabel:
		return strconv.Quote(s.labels[0])
	case selLabels:
		return fmt.Sprintf("%q", s.labels)
	case selAll:
		return "all"
	case selFirst:
		return fmt.Sprintf("first %d", s.n)
	case selLast:
		return fmt.Sprintf("last %d", s.n)
	}
	return "?"
}

// ParseSelection parses the command-line form of a selection: "all",
// an integer index, a comma-separated list of labels, or a single
// label.
func ParseSelection(s string) Selection {
	if s == "all" {
		return All()
	}
	if i, err := strconv.Atoi(s); err == nil {
		return Index(i)
	}
	if strings.Contains(s, ",") {
		return Labels(strings.Split(s, ",")...)
	}
	return Label(s)
}

// UnmarshalJSON decodes a selection from a JSON number (an index), the
// string "all", any other string (a label), or an array of strings.
func (s *Selection) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("empty selection")
	}
	switch b[0] {
	case '"':
		var label string
		if err := json.Unmarshal(b, &label); err != nil {
			return err
		}
		if label == "all" {
			*s = All()
		} else {
			*s = Label(label)
		}
	case '[':
		var labels []string
		if err := json.Unmarshal(b, &labels); err != nil {
			return err
		}
		*s = Labels(labels...)
	default:
		var i int
		if err := json.Unmarshal(b, &i); err != nil {
			return fmt.Errorf("selection %s is not an index, a label or a list of labels", b)
		}
		*s = Index(i)
	}
	return nil
}

// MarshalJSON encodes s in the form read by UnmarshalJSON. First and
// Last selections have no JSON form.
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case selIndex:
		return json.Marshal(s.n)
	case selLabel:
		return json.Marshal(s.labels[0])
	case selLabels:
		if s.labels == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.labels)
	case selAll:
		return []byte(`"all"`), nil
	}
	return nil, fmt.Errorf("selection %v cannot be encoded as JSON", s)
}

// apply applies s to p, which the caller owns. On error, p may be
// partially modified.
func (s Selection) apply(p *Parameter) error {
	if s.kind == selIndex {
		i := s.n
		if i < 0 {
			i += len(p.Options)
		}
		if i < 0 || i >= len(p.Options) {
			return fmt.Errorf("parameter %s: %w: index %d of %d options", p.Name, ErrUnknownOption, s.n, len(p.Options))
		}
		s = Label(p.Options[i])
	}

	if p.FreeText && s.kind == selLabel {
		p.Options = []string{s.labels[0]}
		p.Index = 0
		return nil
	}

	if !p.Multi {
		if s.kind != selLabel && !(s.kind == selLabels && len(s.labels) == 1) {
			return fmt.Errorf("parameter %s: %w: takes a single option, not %v", p.Name, ErrUnknownOption, s)
		}
		idx := p.indexOf(s.labels[0])
		if idx < 0 {
			return fmt.Errorf("parameter %s: %w %q", p.Name, ErrUnknownOption, s.labels[0])
		}
		p.Index = idx
		return nil
	}

	mask := make([]bool, len(p.Options))
	switch s.kind {
	case selAll:
		for i := range mask {
			mask[i] = true
		}
	case selFirst:
		for i := 0; i < s.n && i < len(mask); i++ {
			mask[i] = true
		}
	case selLast:
		for i := len(mask) - s.n; i < len(mask); i++ {
			if i >= 0 {
				mask[i] = true
			}
		}
	case selLabel, selLabels:
		for _, label := range s.labels {
			idx := p.indexOf(label)
			if idx < 0 {
				return fmt.Errorf("parameter %s: %w %q", p.Name, ErrUnknownOption, label)
			}
			mask[idx] = true
		}
	}
	p.Active = mask
	return nil
}
