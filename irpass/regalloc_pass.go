// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package irpass

import (
	"github.com/kestrel-jit/sh4jit/ir"
	"github.com/kestrel-jit/sh4jit/regalloc"
)

// RegisterFile is the subset of a backend's published register file the
// allocator needs: how many physical registers exist in each category, and
// which ones a call-like instruction clobbers. The full descriptor array
// (names, calling-convention role) is consumed directly by the backend
// during assembly, not by this pass.
type RegisterFile interface {
	NumRegisters(cat regalloc.Category) int
	ClobberedByCall(cat regalloc.Category) []regalloc.Reg
}

// isCallLike reports whether ins lowers to a call into hand-written thunk
// code at assembly time (OpFallback always; OpLoadGuest/OpStoreGuest only
// on the slowmem path), and so clobbers the backend's fixed call-argument
// registers per RegisterFile.ClobberedByCall.
func isCallLike(ins *ir.Instr) bool {
	switch ins.Op {
	case ir.OpFallback:
		return true
	case ir.OpLoadGuest, ir.OpStoreGuest:
		return ins.Aux&ir.FastmemBit == 0
	default:
		return false
	}
}

// RegisterAllocation assigns IR values to a backend's physical register
// set, spilling to a growing set of stack slots when a block's live set
// exceeds the available registers (spec.md §4.C). It receives the
// backend's register descriptor array at construction; constructing a new
// RegisterAllocation is how a caller "reruns" allocation against a reset
// backend.
type RegisterAllocation struct {
	regs RegisterFile
}

// NewRegisterAllocation pass targeting regs.
func NewRegisterAllocation(regs RegisterFile) *RegisterAllocation {
	return &RegisterAllocation{regs: regs}
}

func (*RegisterAllocation) Name() string { return "register-allocation" }

func catOf(t ir.Type) regalloc.Category {
	if t.Float() {
		return regalloc.CategoryFloat
	}
	return regalloc.CategoryInt
}

// clobbered names a register reserved across a call-like instruction, so
// it can be freed again once that instruction's normal allocation and
// free-at-last-use bookkeeping has run.
type clobbered struct {
	cat regalloc.Category
	r   regalloc.Reg
}

func (p *RegisterAllocation) Run(b *ir.Builder) {
	avail := regalloc.AvailMask(p.regs.NumRegisters(regalloc.CategoryInt), p.regs.NumRegisters(regalloc.CategoryFloat))

	for bi := range b.Blocks {
		instrs := b.Blocks[bi].Instrs
		lastUse := make([]int, len(instrs))
		for i := range lastUse {
			lastUse[i] = -1
		}
		for ii, ins := range instrs {
			for _, a := range ins.Args {
				if !a.IsConst && a.Ref.Block == bi {
					lastUse[a.Ref.Instr] = ii
				}
			}
		}

		var alloc regalloc.Allocator
		alloc.Init(avail)
		var nextSpill int32
		var heldBy regalloc.Map // zero value: no register holds a value, same as Clear.

		for i := range instrs {
			ins := &instrs[i]
			if ins.Op == ir.OpNop {
				continue
			}

			var reserved []clobbered
			if isCallLike(ins) {
				for _, cat := range [...]regalloc.Category{regalloc.CategoryInt, regalloc.CategoryFloat} {
					for _, r := range p.regs.ClobberedByCall(cat) {
						if !alloc.Allocated(cat, r) {
							alloc.SetAllocated(cat, r)
							reserved = append(reserved, clobbered{cat, r})
							continue
						}
						held := heldBy.Get(cat, r)
						if held < 0 || lastUse[held] == i {
							// Either untracked (the allocator's own scratch
							// use) or one of this instruction's own operands,
							// about to be freed below: leave it alone.
							continue
						}
						// A value that must survive past this call sits in a
						// register the call clobbers: evict it to a spill
						// slot and reserve the register for the call.
						victim := &instrs[held]
						victim.InReg = false
						victim.Spilled = true
						victim.SpillSlot = nextSpill
						nextSpill++
						alloc.Free(cat, r)
						heldBy.Clear(cat, r)
						alloc.AllocSpecific(cat, r)
						reserved = append(reserved, clobbered{cat, r})
					}
				}
			}

			if ins.Type != ir.TypeNone {
				cat := catOf(ins.Type)
				if r, ok := alloc.Alloc(cat); ok {
					ins.Reg = r
					ins.RegCat = cat
					ins.InReg = true
					heldBy.Set(cat, r, i)
				} else {
					ins.Spilled = true
					ins.SpillSlot = nextSpill
					nextSpill++
				}
			}

			for _, a := range ins.Args {
				if a.IsConst || a.Ref.Block != bi {
					continue
				}
				if lastUse[a.Ref.Instr] == i {
					src := &instrs[a.Ref.Instr]
					if src.InReg {
						alloc.Free(src.RegCat, src.Reg)
						heldBy.Clear(src.RegCat, src.Reg)
					}
				}
			}

			for _, res := range reserved {
				alloc.Free(res.cat, res.r)
			}
		}

		alloc.AssertNoneAllocated()
	}
}
