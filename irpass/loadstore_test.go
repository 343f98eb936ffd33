// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irpass

import (
	"testing"

	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/trap"
)

// A second load of the same context offset with no intervening store
// forwards the first load's value instead of reloading.
func TestLoadStoreEliminationForwardsRedundantLoad(t *testing.T) {
	var b ir.Builder
	b.Reset()

	first := b.LoadContext(ir.I32, 4)
	second := b.LoadContext(ir.I32, 4)
	b.StoreContext(8, ir.ValueOf(second))
	b.Branch(0)

	LoadStoreElimination{}.Run(&b)

	ins := b.At(second)
	if ins.Op != ir.OpCopy {
		t.Fatalf("second load's Op = %s, want copy", ins.Op)
	}
	if ins.Args[0].Ref != first {
		t.Fatalf("second load's forwarded source = %v, want %v", ins.Args[0].Ref, first)
	}
}

// A store immediately overwritten by another store to the same offset,
// with no intervening load, is dead and tombstoned.
func TestLoadStoreEliminationKillsDeadStore(t *testing.T) {
	var b ir.Builder
	b.Reset()

	v1 := b.ConstI32(1)
	v2 := b.ConstI32(2)
	first := b.StoreContext(4, ir.ValueOf(v1))
	b.StoreContext(4, ir.ValueOf(v2))
	b.Branch(0)

	LoadStoreElimination{}.Run(&b)

	if b.At(first).Op != ir.OpNop {
		t.Fatalf("overwritten store's Op = %s, want nop", b.At(first).Op)
	}
}

// A load separated from a prior load by a store to a different offset
// still forwards; only a store to the SAME offset (or a Fallback)
// invalidates the cached value.
func TestLoadStoreEliminationSurvivesUnrelatedStore(t *testing.T) {
	var b ir.Builder
	b.Reset()

	first := b.LoadContext(ir.I32, 4)
	b.StoreContext(8, ir.ValueOf(b.ConstI32(0)))
	second := b.LoadContext(ir.I32, 4)
	b.Branch(0)

	LoadStoreElimination{}.Run(&b)

	ins := b.At(second)
	if ins.Op != ir.OpCopy || ins.Args[0].Ref != first {
		t.Fatalf("load across an unrelated store not forwarded: Op=%s", ins.Op)
	}
}

// OpFallback is opaque to the pass and invalidates every cached context
// value, since the dictionary's interpreter routine may write any field.
func TestLoadStoreEliminationInvalidatedByFallback(t *testing.T) {
	var b ir.Builder
	b.Reset()

	b.LoadContext(ir.I32, 4)
	b.Fallback(0xFFFD, 0, trap.IllegalInstruction)
	second := b.LoadContext(ir.I32, 4)
	b.Branch(0)

	LoadStoreElimination{}.Run(&b)

	if b.At(second).Op != ir.OpLoadContext {
		t.Fatalf("load after a fallback was forwarded (Op=%s), want a real reload", b.At(second).Op)
	}
}
