// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package raster holds the spatial arithmetic applied to feature and label arrays before they
// are written out as training tiles: strided resampling, reflect padding and tiling.
//
// A Raster is stored as raw little-endian elements in row-major (height, width[, channels])
// order. Every operation here only moves whole pixels around, so it never needs to know the
// numeric type of the elements.
package raster

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/juju/errors"
)

var itemSizes = map[string]int{
	"|b1": 1,
	"|i1": 1,
	"|u1": 1,
	"<i2": 2,
	"<u2": 2,
	"<i4": 4,
	"<u4": 4,
	"<f4": 4,
	"<i8": 8,
	"<u8": 8,
	"<f8": 8,
}

// ItemSize returns the size in bytes of one element of a NumPy type descriptor.
func ItemSize(dtype string) (int, error) {
	size, ok := itemSizes[dtype]
	if !ok {
		return 0, errors.NotSupportedf("dtype %q", dtype)
	}
	return size, nil
}

// Raster is a 2-D (label) or 3-D (feature) array. Channels is zero for a 2-D raster.
type Raster struct {
	Height   int
	Width    int
	Channels int
	Dtype    string
	Data     []byte

	itemSize int
}

// New creates a zero-filled raster.
func New(height, width, channels int, dtype string) (*Raster, error) {
	if height < 0 || width < 0 || channels < 0 {
		return nil, errors.NotValidf("shape (%d, %d, %d)", height, width, channels)
	}
	itemSize, err := ItemSize(dtype)
	if err != nil {
		return nil, errors.Trace(err)
	}
	r := &Raster{
		Height:   height,
		Width:    width,
		Channels: channels,
		Dtype:    dtype,
		itemSize: itemSize,
	}
	r.Data = make([]byte, height*width*r.PixelSize())
	return r, nil
}

// FromBytes wraps raw little-endian elements into a raster. The data is not copied.
func FromBytes(height, width, channels int, dtype string, data []byte) (*Raster, error) {
	if height < 0 || width < 0 || channels < 0 {
		return nil, errors.NotValidf("shape (%d, %d, %d)", height, width, channels)
	}
	itemSize, err := ItemSize(dtype)
	if err != nil {
		return nil, errors.Trace(err)
	}
	r := &Raster{
		Height:   height,
		Width:    width,
		Channels: channels,
		Dtype:    dtype,
		Data:     data,
		itemSize: itemSize,
	}
	if expected := height * width * r.PixelSize(); len(data) != expected {
		return nil, errors.NotValidf("data of %d bytes for shape %v (expect %d bytes)", len(data), r.Shape(), expected)
	}
	return r, nil
}

// Shape returns the NumPy shape of the raster.
func (r *Raster) Shape() []int {
	return shapeOf(r.Height, r.Width, r.Channels)
}

func shapeOf(height, width, channels int) []int {
	if channels == 0 {
		return []int{height, width}
	}
	return []int{height, width, channels}
}

// PixelSize returns the number of bytes of one (y, x) position across all channels.
func (r *Raster) PixelSize() int {
	return r.itemSize * max(r.Channels, 1)
}

func (r *Raster) pixel(y, x int) []byte {
	size := r.PixelSize()
	offset := (y*r.Width + x) * size
	return r.Data[offset : offset+size]
}

func (r *Raster) String() string {
	return fmt.Sprintf("raster%v[%s]", r.Shape(), r.Dtype)
}

// Crop returns a copy of the window [top, top+height) x [left, left+width).
func (r *Raster) Crop(top, left, height, width int) (*Raster, error) {
	if top < 0 || left < 0 || height < 0 || width < 0 || top+height > r.Height || left+width > r.Width {
		return nil, errors.NotValidf("window (%d, %d, %d, %d) of %v", top, left, height, width, r)
	}
	out, err := New(height, width, r.Channels, r.Dtype)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rowSize := width * r.PixelSize()
	for y := 0; y < height; y++ {
		start := ((top+y)*r.Width + left) * r.PixelSize()
		copy(out.Data[y*rowSize:(y+1)*rowSize], r.Data[start:start+rowSize])
	}
	return out, nil
}

// Equal reports whether two rasters have the same shape, dtype and content.
func (r *Raster) Equal(other *Raster) bool {
	return r.Height == other.Height && r.Width == other.Width && r.Channels == other.Channels &&
		r.Dtype == other.Dtype && bytes.Equal(r.Data, other.Data)
}

// Number is the set of element types that can be converted to and from rasters.
type Number interface {
	~bool | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// DtypeOf returns the NumPy type descriptor of T.
func DtypeOf[T Number]() string {
	var zero T
	switch any(zero).(type) {
	case bool:
		return "|b1"
	case int8:
		return "|i1"
	case uint8:
		return "|u1"
	case int16:
		return "<i2"
	case uint16:
		return "<u2"
	case int32:
		return "<i4"
	case uint32:
		return "<u4"
	case float32:
		return "<f4"
	case int64:
		return "<i8"
	case uint64:
		return "<u8"
	case float64:
		return "<f8"
	default:
		panic(fmt.Sprintf("unsupported element type %T", zero))
	}
}

// FromSlice creates a raster from row-major values.
func FromSlice[T Number](height, width, channels int, values []T) (*Raster, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, values); err != nil {
		return nil, errors.Trace(err)
	}
	return FromBytes(height, width, channels, DtypeOf[T](), buf.Bytes())
}

// Values decodes the elements of a raster as T. T must match the dtype of the raster.
func Values[T Number](r *Raster) ([]T, error) {
	if dtype := DtypeOf[T](); dtype != r.Dtype {
		return nil, errors.NotValidf("read %s raster as %s", r.Dtype, dtype)
	}
	values := make([]T, len(r.Data)/r.itemSize)
	if err := binary.Read(bytes.NewReader(r.Data), binary.LittleEndian, values); err != nil {
		return nil, errors.Trace(err)
	}
	return values, nil
}
