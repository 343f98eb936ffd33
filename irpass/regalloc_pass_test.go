// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irpass

import (
	"testing"

	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/regalloc"
	"github.com/kestrel-jit/sh4jit/trap"
)

type fakeRegisterFile struct {
	numInt, numFloat int
	clobbered        []regalloc.Reg
}

func (f fakeRegisterFile) NumRegisters(cat regalloc.Category) int {
	if cat == regalloc.CategoryFloat {
		return f.numFloat
	}
	return f.numInt
}

// ClobberedByCall reports f.clobbered for CategoryInt and nothing for
// CategoryFloat, letting a test opt into exercising the call-eviction path
// without disturbing the other tests' register budgets.
func (f fakeRegisterFile) ClobberedByCall(cat regalloc.Category) []regalloc.Reg {
	if cat == regalloc.CategoryFloat {
		return nil
	}
	return f.clobbered
}

// With ample registers, every value-producing instruction in a short
// block gets a live register and none spill.
func TestRegisterAllocationAllocatesWithinBudget(t *testing.T) {
	var b ir.Builder
	b.Reset()

	v1 := b.ConstI32(1)
	v2 := b.ConstI32(2)
	sum := b.Binary(ir.OpAdd, ir.I32, ir.ValueOf(v1), ir.ValueOf(v2))
	b.StoreContext(4, ir.ValueOf(sum))
	b.Branch(0)

	NewRegisterAllocation(fakeRegisterFile{numInt: 8, numFloat: 8}).Run(&b)

	for _, ref := range []ir.Ref{v1, v2, sum} {
		ins := b.At(ref)
		if !ins.InReg || ins.Spilled {
			t.Fatalf("instruction %v not allocated a register: InReg=%v Spilled=%v", ref, ins.InReg, ins.Spilled)
		}
	}
}

// When live values outnumber the available integer registers, the
// allocator spills the overflow to a stack slot rather than failing.
func TestRegisterAllocationSpillsUnderPressure(t *testing.T) {
	var b ir.Builder
	b.Reset()

	const n = 4
	var vals []ir.Ref
	for i := 0; i < n; i++ {
		vals = append(vals, b.ConstI32(int32(i)))
	}
	// Keep every value live simultaneously by storing them all at the end,
	// after every Const has been emitted: none are freed early.
	for i, v := range vals {
		b.StoreContext(int32(i*4), ir.ValueOf(v))
	}
	b.Branch(0)

	NewRegisterAllocation(fakeRegisterFile{numInt: 2, numFloat: 2}).Run(&b)

	var spilled int
	for _, v := range vals {
		if b.At(v).Spilled {
			spilled++
		}
	}
	if spilled == 0 {
		t.Fatal("expected at least one spilled value with only 2 integer registers for 4 live values")
	}
}

// After running over every block, no register is left marked allocated:
// AssertNoneAllocated would otherwise panic, so a clean Run is itself the
// assertion that register lifetimes were tracked correctly.
func TestRegisterAllocationFreesAtBlockEnd(t *testing.T) {
	var b ir.Builder
	b.Reset()

	v := b.ConstI32(1)
	b.StoreContext(4, ir.ValueOf(v))
	b.Branch(0)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Run panicked (register leaked past block end): %v", r)
		}
	}()
	NewRegisterAllocation(fakeRegisterFile{numInt: 8, numFloat: 8}).Run(&b)
}

// A value held in a register a call-like instruction clobbers, and still
// needed afterward, is evicted to a spill slot rather than left to be
// corrupted by the call.
func TestRegisterAllocationEvictsAcrossCall(t *testing.T) {
	var b ir.Builder
	b.Reset()

	v1 := b.ConstI32(1) // Must survive the fallback call below.
	v2 := b.ConstI32(2)
	b.StoreContext(8, ir.ValueOf(v2)) // v2's last use: frees its register first.
	b.Fallback(0x0009, 0, trap.IllegalInstruction)
	b.StoreContext(4, ir.ValueOf(v1)) // v1's last use, after the call.
	b.Branch(0)

	regs := fakeRegisterFile{numInt: 2, numFloat: 2, clobbered: []regalloc.Reg{0, 1}}
	NewRegisterAllocation(regs).Run(&b)

	ins := b.At(v1)
	if ins.InReg || !ins.Spilled {
		t.Fatalf("v1 InReg=%v Spilled=%v, want evicted to a spill slot across the call", ins.InReg, ins.Spilled)
	}
}
