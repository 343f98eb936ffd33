// Copyright (c) 2018 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

// Fixed is a fixed-capacity buffer backed by a pre-allocated slice. The
// backend's code region is a Fixed wrapping a page-aligned executable
// mapping; the cursor never moves backward except via Reset or
// ResizeBytes.
type Fixed struct {
	b []byte
}

func NewFixed(b []byte) *Fixed     { return &Fixed{b[:0]} }
func (f *Fixed) Bytes() []byte     { return f.b }
func (f *Fixed) Len() int          { return len(f.b) }
func (f *Fixed) Cap() int          { return cap(f.b) }
func (f *Fixed) PutByte(b byte)    { f.Extend(1)[0] = b }
func (f *Fixed) PutBytes(b []byte) { copy(f.Extend(len(b)), b) }

// Extend panics with ErrSizeLimit if n bytes will not fit. TryExtend is the
// non-panicking form; the backend's assembler instead recovers the
// ErrSizeLimit panic.
func (f *Fixed) Extend(n int) []byte {
	b, ok := f.TryExtend(n)
	if !ok {
		panic(ErrSizeLimit)
	}
	return b
}

// TryExtend reports whether n more bytes fit in the buffer, without
// panicking. On failure the buffer is left unchanged.
func (f *Fixed) TryExtend(n int) (b []byte, ok bool) {
	offset := len(f.b)
	size := offset + n
	if size > cap(f.b) {
		return nil, false
	}
	f.b = f.b[:size]
	return f.b[offset:], true
}

// Reset rewinds the cursor to the start of the buffer. Every byte slice
// previously returned by Bytes, Extend, or TryExtend becomes invalid: the
// region will be overwritten by the next compilation.
func (f *Fixed) Reset() {
	f.b = f.b[:0]
}

func (f *Fixed) ResizeBytes(n int) []byte {
	f.b = f.b[:n]
	return f.b
}
