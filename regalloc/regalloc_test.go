// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package regalloc

import "testing"

func TestAllocatorInit(t *testing.T) {
	for _, avail := range []uint64{0xffffffffffffffff, 0, 123456789} {
		t.Logf("avail: 0x%016x", avail)

		var a Allocator
		a.Init(avail)

		a.AssertNoneAllocated()
	}
}

func TestAlloc(t *testing.T) {
	for _, avail := range []uint64{0xffffffffffffffff, 0xf} {
		t.Logf("avail: 0x%016x", avail)

		var a Allocator
		a.Init(avail)

		r1, ok := a.Alloc(CategoryInt)
		if !ok {
			t.Fatal("expected int register")
		}
		if !a.Allocated(CategoryInt, r1) {
			t.Fatal("r1 should be allocated")
		}

		r2, ok := a.Alloc(CategoryInt)
		if !ok {
			t.Fatal("expected second int register")
		}
		if r1 == r2 {
			t.Fatal("expected distinct registers")
		}

		r1f, ok := a.Alloc(CategoryFloat)
		if !ok {
			t.Fatal("expected float register")
		}
		if !a.Allocated(CategoryFloat, r1f) {
			t.Fatal("r1f should be allocated")
		}

		a.Free(CategoryInt, r1)
		if a.Allocated(CategoryInt, r1) {
			t.Fatal("r1 should be free")
		}

		a.Free(CategoryInt, r2)
		a.Free(CategoryFloat, r1f)
		a.AssertNoneAllocated()
	}
}

func TestAllocExhaustion(t *testing.T) {
	var a Allocator
	a.Init(regMask(CategoryInt, 0) | regMask(CategoryInt, 1))

	r1, ok := a.Alloc(CategoryInt)
	if !ok {
		t.Fatal("expected a register")
	}
	r2, ok := a.Alloc(CategoryInt)
	if !ok {
		t.Fatal("expected a second register")
	}
	if _, ok := a.Alloc(CategoryInt); ok {
		t.Fatal("allocator should be exhausted")
	}

	a.Free(CategoryInt, r1)
	a.Free(CategoryInt, r2)
}

func TestMap(t *testing.T) {
	var m Map
	m.Set(CategoryInt, 3, 42)
	if got := m.Get(CategoryInt, 3); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if got := m.Get(CategoryFloat, 3); got != -1 {
		t.Fatalf("got %d, want -1 for unset mapping", got)
	}
	m.Clear(CategoryInt, 3)
	if got := m.Get(CategoryInt, 3); got != -1 {
		t.Fatalf("got %d, want -1 after Clear", got)
	}
}
