// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package links

import "testing"

func TestAddSiteAccumulates(t *testing.T) {
	var l L
	l.AddSite(4)
	l.AddSite(12)
	if len(l.Sites) != 2 || l.Sites[0] != 4 || l.Sites[1] != 12 {
		t.Fatalf("Sites = %v, want [4 12]", l.Sites)
	}
}

func TestSetAddrThenFinalAddr(t *testing.T) {
	var l L
	l.SetAddr(100)
	if got := l.FinalAddr(); got != 100 {
		t.Fatalf("FinalAddr() = %d, want 100", got)
	}
}

func TestSetAddrTwicePanics(t *testing.T) {
	var l L
	l.SetAddr(100)
	defer func() {
		if recover() == nil {
			t.Fatal("SetAddr called twice should panic")
		}
	}()
	l.SetAddr(200)
}

func TestFinalAddrBeforeSetPanics(t *testing.T) {
	var l L
	defer func() {
		if recover() == nil {
			t.Fatal("FinalAddr before SetAddr should panic")
		}
	}()
	l.FinalAddr()
}

func TestContains(t *testing.T) {
	var l L
	l.AddSite(4)
	l.AddSite(10)

	if i, ok := l.Contains(4, 3); !ok || i != 0 {
		t.Fatalf("Contains(4, 3) = (%d, %v), want (0, true)", i, ok)
	}
	if i, ok := l.Contains(6, 3); !ok || i != 0 {
		t.Fatalf("Contains(6, 3) = (%d, %v), want (0, true) (within [4,7))", i, ok)
	}
	if _, ok := l.Contains(7, 3); ok {
		t.Fatal("Contains(7, 3) = true, want false (outside [4,7))")
	}
	if i, ok := l.Contains(10, 2); !ok || i != 1 {
		t.Fatalf("Contains(10, 2) = (%d, %v), want (1, true)", i, ok)
	}
	if _, ok := l.Contains(100, 1); ok {
		t.Fatal("Contains(100, 1) = true, want false (no matching site)")
	}
}
