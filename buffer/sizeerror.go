// Copyright (c) 2018 the sh4jit authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer implements the fixed-capacity byte buffer used for the
// backend's code region.
package buffer

type sizeError string

func (s sizeError) Error() string { return string(s) }

// ErrSizeLimit is panicked by Fixed.Extend (and so by PutByte/PutBytes) on
// overflow. The backend's assembler recovers it to report an overflow;
// TryExtend reports the same condition without panicking.
var ErrSizeLimit = sizeError("buffer size limit exceeded")
