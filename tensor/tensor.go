// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tensor provides the dense, row-major array types that back the
// analysis pipeline's data model: a 3D frame cube indexed [t,y,x] and a 2D
// map indexed [y,x]. Both guarantee C-contiguous storage regardless of how
// they were constructed.
package tensor

import "fmt"

// FrameCube is a dense [T,H,W] array of frame intensities, row-major
// contiguous: element (t,y,x) lives at Values[t*H*W + y*W + x].
type FrameCube struct {
	T, H, W int
	Values  []float32
}

// NewFrameCube allocates a zeroed cube of the given shape.
func NewFrameCube(t, h, w int) FrameCube {
	return FrameCube{T: t, H: h, W: w, Values: make([]float32, t*h*w)}
}

// NewFrameCubeFrom copies src into a contiguous cube of shape [t,h,w].
// src must already be in row-major [t,y,x] order; callers responsible for
// de-interleaving other layouts before calling this.
func NewFrameCubeFrom(t, h, w int, src []float32) (FrameCube, error) {
	if len(src) != t*h*w {
		return FrameCube{}, fmt.Errorf("tensor: frame cube shape [%d,%d,%d] needs %d values, got %d", t, h, w, t*h*w, len(src))
	}
	vals := make([]float32, len(src))
	copy(vals, src)
	return FrameCube{T: t, H: h, W: w, Values: vals}, nil
}

// At returns the value at (t,y,x).
func (c FrameCube) At(t, y, x int) float32 {
	return c.Values[(t*c.H+y)*c.W+x]
}

// Set assigns the value at (t,y,x).
func (c FrameCube) Set(t, y, x int, v float32) {
	c.Values[(t*c.H+y)*c.W+x] = v
}

// Pixels returns H*W, the number of spatial pixels.
func (c FrameCube) Pixels() int { return c.H * c.W }

// IsContiguous reports whether Values has exactly the length the shape
// implies — true for any FrameCube constructed through this package.
func (c FrameCube) IsContiguous() bool {
	return len(c.Values) == c.T*c.H*c.W
}

// Map2D is a dense [H,W] array, row-major contiguous: element (y,x) lives
// at Values[y*W+x].
type Map2D struct {
	H, W   int
	Values []float32
}

// NewMap2D allocates a zeroed map of the given shape.
func NewMap2D(h, w int) Map2D {
	return Map2D{H: h, W: w, Values: make([]float32, h*w)}
}

// NewMap2DFrom copies src (row-major [y,x]) into a new contiguous map.
func NewMap2DFrom(h, w int, src []float32) (Map2D, error) {
	if len(src) != h*w {
		return Map2D{}, fmt.Errorf("tensor: map shape [%d,%d] needs %d values, got %d", h, w, h*w, len(src))
	}
	vals := make([]float32, len(src))
	copy(vals, src)
	return Map2D{H: h, W: w, Values: vals}, nil
}

// At returns the value at (y,x).
func (m Map2D) At(y, x int) float32 {
	return m.Values[y*m.W+x]
}

// Set assigns the value at (y,x).
func (m Map2D) Set(y, x int, v float32) {
	m.Values[y*m.W+x] = v
}

// SameShape reports whether m and o have identical dimensions.
func (m Map2D) SameShape(o Map2D) bool {
	return m.H == o.H && m.W == o.W
}

// Clone returns a deep, independently-owned copy.
func (m Map2D) Clone() Map2D {
	out := NewMap2D(m.H, m.W)
	copy(out.Values, m.Values)
	return out
}

// IsContiguous reports whether Values has exactly the length the shape
// implies.
func (m Map2D) IsContiguous() bool {
	return len(m.Values) == m.H*m.W
}

// MapI32 is a dense [H,W] array of int32 labels, row-major contiguous.
// Used only for AreaMap, where labels must not be float-rounded.
type MapI32 struct {
	H, W   int
	Values []int32
}

// NewMapI32 allocates a zeroed label map of the given shape.
func NewMapI32(h, w int) MapI32 {
	return MapI32{H: h, W: w, Values: make([]int32, h*w)}
}

// At returns the label at (y,x).
func (m MapI32) At(y, x int) int32 {
	return m.Values[y*m.W+x]
}

// Set assigns the label at (y,x).
func (m MapI32) Set(y, x int, v int32) {
	m.Values[y*m.W+x] = v
}

// MapU8 is a dense [H,W] array of uint8, row-major contiguous. Used for
// BoundaryMap (0/1 values).
type MapU8 struct {
	H, W   int
	Values []uint8
}

// NewMapU8 allocates a zeroed map of the given shape.
func NewMapU8(h, w int) MapU8 {
	return MapU8{H: h, W: w, Values: make([]uint8, h*w)}
}

// At returns the value at (y,x).
func (m MapU8) At(y, x int) uint8 {
	return m.Values[y*m.W+x]
}

// Set assigns the value at (y,x).
func (m MapU8) Set(y, x int, v uint8) {
	m.Values[y*m.W+x] = v
}
