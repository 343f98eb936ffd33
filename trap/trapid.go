// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trap enumerates the guest-visible fault identifiers that the
// backend's fallback and illegal-instruction sequences can raise.
package trap

import (
	"fmt"
)

// ID identifies a condition detected by translated code that cannot be
// resolved without leaving the block, as opposed to a fastmem exception,
// which is resolved entirely by the code cache (see cache.Cache.HandleFault).
type ID int

const (
	IllegalInstruction = ID(iota) // INVALID opcode; ends the block.
	SlotIllegalInstruction        // INVALID opcode in a delay slot.
	FPUDisabled                   // FP instruction while FPU disabled in SR.
	DivideByZero
	Breakpoint // Recoverable (portable); used by debugger fallbacks.

	NumTraps
)

func (id ID) String() string {
	switch id {
	case IllegalInstruction:
		return "illegal instruction"
	case SlotIllegalInstruction:
		return "slot illegal instruction"
	case FPUDisabled:
		return "fpu disabled"
	case DivideByZero:
		return "divide by zero"
	case Breakpoint:
		return "breakpoint"
	default:
		return fmt.Sprintf("unknown trap %d", id)
	}
}

func (id ID) Error() string {
	return "trap: " + id.String()
}
