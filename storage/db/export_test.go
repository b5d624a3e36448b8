// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db

import "time"

var SplitQueryWords = splitQueryWords

// SetNow makes new uploads take their date from t. It returns a
// function that restores the previous clock.
func SetNow(t time.Time) (restore func()) {
	prev := now
	now = func() time.Time { return t }
	return func() { now = prev }
}
