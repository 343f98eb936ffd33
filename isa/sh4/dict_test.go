// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

import "testing"

func TestLookupKnownOpcodes(t *testing.T) {
	cases := []struct {
		word  uint16
		name  string
		flags OpFlag
	}{
		{0x0009, "nop", 0},
		{0x000B, "rts", Delayed | Branch},
		{0xA000, "bra", Delayed | Branch},
		{0x8B00, "bf", Branch},
		{0x8900, "bt", Branch},
		{0x8F00, "bf/s", Delayed | Branch},
		{0x8D00, "bt/s", Delayed | Branch},
		{0xE123, "mov #imm,Rn", 0},
		{0x6002, "mov.l @Rm,Rn", 0},
		{0x2002, "mov.l Rm,@Rn", 0},
		{0x406A, "lds.l @Rm+,fpscr", SetFPSCR},
		{0x4007, "ldc.l @Rm+,sr", SetSR},
	}

	for _, c := range cases {
		def := Lookup(c.word)
		if def.Name != c.name {
			t.Errorf("Lookup(0x%04x).Name = %q, want %q", c.word, def.Name, c.name)
		}
		if def.Flags != c.flags {
			t.Errorf("Lookup(0x%04x).Flags = %v, want %v", c.word, def.Flags, c.flags)
		}
	}
}

func TestLookupUnregisteredIsIllegal(t *testing.T) {
	def := Lookup(0xFFFD)
	if def.Flags&Invalid == 0 {
		t.Fatalf("Lookup(0xFFFD).Flags = %v, want Invalid set", def.Flags)
	}
	if def != illegalDef {
		t.Fatalf("Lookup of an unregistered word did not return illegalDef")
	}
}

func TestFieldExtractors(t *testing.T) {
	if n := fieldN(0x0A34); n != 0xA {
		t.Errorf("fieldN(0x0A34) = %d, want 10", n)
	}
	if m := fieldM(0x0A34); m != 0x3 {
		t.Errorf("fieldM(0x0A34) = %d, want 3", m)
	}
	if v := imm8(0x00FF); v != -1 {
		t.Errorf("imm8(0x00FF) = %d, want -1", v)
	}
	if v := disp8(0x00FF); v != -1 {
		t.Errorf("disp8(0x00FF) = %d, want -1", v)
	}
	if v := disp12(0x0FFF); v != -1 {
		t.Errorf("disp12(0x0FFF) = %d, want -1", v)
	}
}

func TestContextOffsetsAreDistinctAndAligned(t *testing.T) {
	offsets := map[int32]string{}
	add := func(off int32, name string) {
		if prev, ok := offsets[off]; ok {
			t.Errorf("offset %d used by both %s and %s", off, prev, name)
		}
		offsets[off] = name
		if off%4 != 0 {
			t.Errorf("%s offset %d is not 4-byte aligned", name, off)
		}
	}
	add(PCOffset(), "PC")
	add(PROffset(), "PR")
	add(FPSCROffset(), "FPSCR")
	add(SROffset(), "SR")
	add(TOffset(), "T")
	for i := 0; i < 16; i++ {
		add(GPROffset(i), "GPR[n]")
	}
}
