// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/perf/forensics/cattree"
	"golang.org/x/perf/forensics/params"
)

var displayNames = map[string]string{
	"bench":             "Benchmarks",
	"measure":           "Y axis",
	params.Type:         "Plot Type",
	params.X:            "X axis",
	params.Series:       "Z axis (traces)",
	params.ToZero:       "Sticky Zero",
	params.Norm:         "Normalization",
	params.YScale:       "Y Scale",
	params.SortX:        "Sort X",
	params.BaselineMode: "Baseline Mode",
}

// DisplayName returns the name of a parameter as shown to users. The
// version variable of system "gambit" is shown as "Gambit Revisions";
// other names have their words capitalized.
func DisplayName(name string) string {
	if d, ok := displayNames[name]; ok {
		return d
	}
	if sys, ok := strings.CutSuffix(name, cattree.VersionSuffix); ok && sys != "" {
		return capitalize(sys) + " Revisions"
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	r, n := utf8.DecodeRuneInString(w)
	if n == 0 {
		return w
	}
	return string(unicode.ToUpper(r)) + w[n:]
}
