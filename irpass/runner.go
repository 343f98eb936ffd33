// Copyright (c) 2026 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package irpass implements the optimizer pipeline of spec.md §4.C: a
// fixed, ordered sequence of deterministic, purely functional passes over
// an ir.Builder's blocks. Passes never remove side-effecting instructions
// (memory ops, fallbacks, branches) or the block's terminator, and they
// tombstone rather than physically delete dead instructions so that Refs
// taken before the pass ran remain valid for the remainder of the
// compilation.
package irpass

import "github.com/kestrel-jit/sh4jit/ir"

// Pass transforms b's IR in place.
type Pass interface {
	Run(b *ir.Builder)
	Name() string
}

// Pipeline is the ordered sequence of passes run once per compilation.
// Construction order is load/store elimination, dead code elimination,
// register allocation (spec.md §4.C); Runner does not reorder or skip
// passes.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds a Pipeline with the given passes run in order.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

// Run executes every pass over b in construction order.
func (p *Pipeline) Run(b *ir.Builder) {
	for _, pass := range p.passes {
		pass.Run(b)
	}
}
