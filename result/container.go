// Copyright (c) 2019, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package result

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/kimlab-isi/retinocore/isierrors"
	"github.com/kimlab-isi/retinocore/tensor"
)

// containerMagic identifies the self-describing container format.
const containerMagic uint32 = 0x49534931 // "ISI1"

const containerVersion uint8 = 1

// dtype tags, one per Map2D/MapI32/MapU8 element type the container
// stores.
const (
	dtypeFloat32 uint8 = iota
	dtypeInt32
	dtypeUint8
)

// dataset is one named, shaped, typed array within a container.
type dataset struct {
	name   string
	h, w   int
	dtype  uint8
	values []byte // raw little-endian element bytes, pre-compression
}

// Container is the in-memory form of a persisted AnalysisResult: one
// dataset per field, each stored C-contiguous, addressable by the
// dataset names spec.md §6.2 requires (azimuth_map, elevation_map,
// raw_vfs_map, coherence_vfs_map, magnitude_vfs_map,
// statistical_vfs_map, boundary_map, area_map, and the per-direction
// phase_maps/magnitude_maps/coherence_maps groups).
type Container struct {
	datasets map[string]dataset
	order    []string
}

// NewContainer returns an empty container.
func NewContainer() *Container {
	return &Container{datasets: make(map[string]dataset)}
}

func (c *Container) putFloat32(name string, m tensor.Map2D) {
	c.put(dataset{name: name, h: m.H, w: m.W, dtype: dtypeFloat32, values: float32sToBytes(m.Values)})
}

func (c *Container) putInt32(name string, m tensor.MapI32) {
	c.put(dataset{name: name, h: m.H, w: m.W, dtype: dtypeInt32, values: int32sToBytes(m.Values)})
}

func (c *Container) putUint8(name string, m tensor.MapU8) {
	c.put(dataset{name: name, h: m.H, w: m.W, dtype: dtypeUint8, values: append([]byte(nil), m.Values...)})
}

func (c *Container) put(d dataset) {
	if _, exists := c.datasets[d.name]; !exists {
		c.order = append(c.order, d.name)
	}
	c.datasets[d.name] = d
}

// Float32Map retrieves a previously-stored Map2D dataset by name.
func (c *Container) Float32Map(name string) (tensor.Map2D, bool) {
	d, ok := c.datasets[name]
	if !ok || d.dtype != dtypeFloat32 {
		return tensor.Map2D{}, false
	}
	return tensor.Map2D{H: d.h, W: d.w, Values: bytesToFloat32s(d.values)}, true
}

// Int32Map retrieves a previously-stored MapI32 dataset by name.
func (c *Container) Int32Map(name string) (tensor.MapI32, bool) {
	d, ok := c.datasets[name]
	if !ok || d.dtype != dtypeInt32 {
		return tensor.MapI32{}, false
	}
	return tensor.MapI32{H: d.h, W: d.w, Values: bytesToInt32s(d.values)}, true
}

// Uint8Map retrieves a previously-stored MapU8 dataset by name.
func (c *Container) Uint8Map(name string) (tensor.MapU8, bool) {
	d, ok := c.datasets[name]
	if !ok || d.dtype != dtypeUint8 {
		return tensor.MapU8{}, false
	}
	return tensor.MapU8{H: d.h, W: d.w, Values: append([]byte(nil), d.values...)}, true
}

// Names lists the datasets present, in insertion order.
func (c *Container) Names() []string {
	return append([]string(nil), c.order...)
}

// ToContainer assembles a Container from an AnalysisResult, populating
// every dataset named in spec.md §6.2 that is present in the result.
func ToContainer(res *AnalysisResult) *Container {
	c := NewContainer()
	if res.HasAzimuth {
		c.putFloat32("azimuth_map", res.Azimuth)
	}
	if res.HasElevation {
		c.putFloat32("elevation_map", res.Elevation)
	}
	c.putFloat32("raw_vfs_map", res.RawVFS)
	if res.HasCoherenceVFS {
		c.putFloat32("coherence_vfs_map", res.CoherenceVFS)
	}
	c.putFloat32("magnitude_vfs_map", res.MagnitudeVFS)
	c.putFloat32("statistical_vfs_map", res.StatisticalVFS)
	c.putUint8("boundary_map", res.Boundary)
	c.putInt32("area_map", res.Area)

	for _, d := range AllDirections {
		if res.Phase.Has(d) {
			c.putFloat32("phase_maps/"+string(d), fieldFor(res.Phase, d))
		}
		if res.Magnitude.Has(d) {
			c.putFloat32("magnitude_maps/"+string(d), fieldFor(res.Magnitude, d))
		}
		if res.Coherence.Has(d) {
			c.putFloat32("coherence_maps/"+string(d), fieldFor(res.Coherence, d))
		}
	}
	return c
}

func fieldFor(b DirectionBundle[tensor.Map2D], d Direction) tensor.Map2D {
	switch d {
	case LR:
		return b.LR
	case RL:
		return b.RL
	case TB:
		return b.TB
	default:
		return b.BT
	}
}

// Save atomically persists c to path: encode to a temp file in the same
// directory, fsync, then rename over path, removing any stale temp file
// or pre-existing target first.
func Save(c *Container, path string) error {
	dir := filepath.Dir(path)
	tmp := path + ".tmp"

	_ = os.Remove(tmp)

	f, err := os.Create(tmp)
	if err != nil {
		return &isierrors.PersistenceFailureError{Path: path, Err: err}
	}

	if err := encode(c, f); err != nil {
		f.Close()
		os.Remove(tmp)
		return &isierrors.PersistenceFailureError{Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return &isierrors.PersistenceFailureError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return &isierrors.PersistenceFailureError{Path: path, Err: err}
	}

	_ = os.Remove(path)
	if err := os.Rename(tmp, path); err != nil {
		return &isierrors.PersistenceFailureError{Path: path, Err: err}
	}

	if dirF, err := os.Open(dir); err == nil {
		_ = dirF.Sync()
		dirF.Close()
	}
	return nil
}

// Load reads a container previously written by Save.
func Load(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &isierrors.PersistenceFailureError{Path: path, Err: err}
	}
	defer f.Close()
	c, err := decode(f)
	if err != nil {
		return nil, &isierrors.PersistenceFailureError{Path: path, Err: err}
	}
	return c, nil
}

func encode(c *Container, w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, containerMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, containerVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.order))); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	for _, name := range c.order {
		d := c.datasets[name]
		nameBytes := []byte(name)
		if err := binary.Write(w, binary.LittleEndian, uint16(len(nameBytes))); err != nil {
			return err
		}
		if _, err := w.Write(nameBytes); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, d.dtype); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(d.h)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(d.w)); err != nil {
			return err
		}
		compressed := enc.EncodeAll(d.values, nil)
		if err := binary.Write(w, binary.LittleEndian, uint64(len(compressed))); err != nil {
			return err
		}
		if _, err := w.Write(compressed); err != nil {
			return err
		}
	}
	return nil
}

func decode(r io.Reader) (*Container, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != containerMagic {
		return nil, os.ErrInvalid
	}
	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	c := NewContainer()
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, err
		}
		var dtype uint8
		if err := binary.Read(r, binary.LittleEndian, &dtype); err != nil {
			return nil, err
		}
		var h, w uint32
		if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
			return nil, err
		}
		var compLen uint64
		if err := binary.Read(r, binary.LittleEndian, &compLen); err != nil {
			return nil, err
		}
		compressed := make([]byte, compLen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		values, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, err
		}
		c.put(dataset{name: string(nameBytes), h: int(h), w: int(w), dtype: dtype, values: values})
	}
	return c, nil
}

func float32sToBytes(vals []float32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(vals) * 4)
	for _, v := range vals {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func bytesToFloat32s(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	r := bytes.NewReader(b)
	binary.Read(r, binary.LittleEndian, out)
	return out
}

func int32sToBytes(vals []int32) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(len(vals) * 4)
	for _, v := range vals {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func bytesToInt32s(b []byte) []int32 {
	n := len(b) / 4
	out := make([]int32, n)
	r := bytes.NewReader(b)
	binary.Read(r, binary.LittleEndian, out)
	return out
}
