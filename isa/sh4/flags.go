// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sh4

// OpFlag bits describe a single decoded instruction, per spec.md §4.A.
type OpFlag uint8

const (
	// Invalid opcode is not implemented or ill-formed; ends the block.
	Invalid OpFlag = 1 << iota
	// Delayed: the next 16-bit word is a delay slot, translated as part
	// of this instruction. A delay slot instruction must not itself be
	// Delayed (spec.md §4.A's hard check).
	Delayed
	// Branch may redirect control flow; ends the block.
	Branch
	// SetFPSCR writes FPSCR, whose mode bits were sampled into the block's
	// flags at translation time; ends the block to force re-translation
	// under the new FPU mode.
	SetFPSCR
	// SetSR writes SR; ends the block.
	SetSR
)

// Flags are the per-block translation flags of spec.md §3/§6: FASTMEM
// permits direct pointer loads/stores with fault recovery, SLOWMEM
// disallows it, and DOUBLE_PR/DOUBLE_SZ are FPSCR precision/size modes
// captured at translation time.
type Flags uint32

const (
	FASTMEM Flags = 1 << iota
	SLOWMEM
	DOUBLE_PR
	DOUBLE_SZ
)
