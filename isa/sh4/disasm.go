// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

import "fmt"

func disasmNop(addr uint32, instr uint16) string { return "nop" }
func disasmRTS(addr uint32, instr uint16) string { return "rts" }

func disasmBRA(addr uint32, instr uint16) string {
	return fmt.Sprintf("bra 0x%08x", branchTarget(addr, disp12(instr)))
}

func disasmBF(addr uint32, instr uint16) string {
	return fmt.Sprintf("bf 0x%08x", branchTarget(addr, disp8(instr)))
}

func disasmBT(addr uint32, instr uint16) string {
	return fmt.Sprintf("bt 0x%08x", branchTarget(addr, disp8(instr)))
}

func disasmBFS(addr uint32, instr uint16) string {
	return fmt.Sprintf("bf/s 0x%08x", branchTarget(addr, disp8(instr)))
}

func disasmBTS(addr uint32, instr uint16) string {
	return fmt.Sprintf("bt/s 0x%08x", branchTarget(addr, disp8(instr)))
}

func disasmMovImm(addr uint32, instr uint16) string {
	return fmt.Sprintf("mov #%d,r%d", imm8(instr), fieldN(instr))
}

func disasmMovLoad(addr uint32, instr uint16) string {
	return fmt.Sprintf("mov.l @r%d,r%d", fieldM(instr), fieldN(instr))
}

func disasmMovStore(addr uint32, instr uint16) string {
	return fmt.Sprintf("mov.l r%d,@r%d", fieldM(instr), fieldN(instr))
}

func disasmLdsFPSCR(addr uint32, instr uint16) string {
	return fmt.Sprintf("lds.l @r%d+,fpscr", fieldM(instr))
}

func disasmLdcSR(addr uint32, instr uint16) string {
	return fmt.Sprintf("ldc.l @r%d+,sr", fieldM(instr))
}
