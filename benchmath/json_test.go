// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchmath

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestMatrixJSON(t *testing.T) {
	m := Matrix{{1, math.NaN(), 2.5}, {math.NaN(), -3, 0}}
	b, err := json.Marshal(struct{ M Matrix }{m})
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"M":[[1,null,2.5],[null,-3,0]]}`
	if string(b) != want {
		t.Errorf("Marshal = %s, want %s", b, want)
	}

	var got struct{ M Matrix }
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, got.M, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("Unmarshal mismatch (-want +got):\n%s", diff)
	}

	if err := json.Unmarshal([]byte(`[[1,"x"]]`), &got.M); err == nil {
		t.Errorf("Unmarshal of a string value succeeded")
	}
}
