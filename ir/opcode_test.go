// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"testing"

	"github.com/kestrel-jit/sh4jit/trap"
)

func TestFallbackAuxRoundTrip(t *testing.T) {
	cases := []struct {
		word uint16
		kind trap.ID
	}{
		{0xFFFD, trap.IllegalInstruction},
		{0x000B, trap.SlotIllegalInstruction},
		{0x0000, trap.Breakpoint},
	}

	for _, c := range cases {
		aux := FallbackAux(c.word, c.kind)
		if got := FallbackOpcodeWord(aux); got != c.word {
			t.Errorf("FallbackOpcodeWord(FallbackAux(0x%04x, %v)) = 0x%04x, want 0x%04x", c.word, c.kind, got, c.word)
		}
		if got := FallbackTrap(aux); got != c.kind {
			t.Errorf("FallbackTrap(FallbackAux(0x%04x, %v)) = %v, want %v", c.word, c.kind, got, c.kind)
		}
	}
}

func TestOpcodeIsBranch(t *testing.T) {
	branches := []Opcode{OpBranch, OpBranchCond, OpBranchIndirect}
	for _, op := range branches {
		if !op.IsBranch() {
			t.Errorf("%s.IsBranch() = false, want true", op)
		}
	}

	nonBranches := []Opcode{OpNop, OpCopy, OpConst, OpAdd, OpFallback, OpLoadGuest}
	for _, op := range nonBranches {
		if op.IsBranch() {
			t.Errorf("%s.IsBranch() = true, want false", op)
		}
	}
}

func TestOpcodeHasSideEffect(t *testing.T) {
	sideEffecting := []Opcode{OpStoreContext, OpStoreGuest, OpFallback, OpBranch, OpBranchCond, OpBranchIndirect}
	for _, op := range sideEffecting {
		if !op.HasSideEffect() {
			t.Errorf("%s.HasSideEffect() = false, want true", op)
		}
	}

	pure := []Opcode{OpNop, OpConst, OpLoadContext, OpLoadGuest, OpAdd, OpCmpEq}
	for _, op := range pure {
		if op.HasSideEffect() {
			t.Errorf("%s.HasSideEffect() = true, want false", op)
		}
	}
}

func TestFastmemBitIsAuxHighBit(t *testing.T) {
	// FastmemBit occupies the Aux high bit; Load/StoreGuest never pack a
	// trap.ID into Aux, so this is just a sanity check that the constant
	// is what emitLoadGuest/emitStoreGuest (backend/amd64) expect.
	if FastmemBit != 1<<31 {
		t.Fatalf("FastmemBit = 0x%x, want 0x80000000", FastmemBit)
	}
}
