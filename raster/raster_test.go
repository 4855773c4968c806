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

package raster

import (
	"testing"

	"github.com/floodnet/datamaker/common/log"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sequence(height, width, channels int) *Raster {
	n := height * width * max(channels, 1)
	r, err := FromSlice(height, width, channels, lo.Map(lo.Range(n), func(v, _ int) int32 { return int32(v) }))
	if err != nil {
		panic(err)
	}
	return r
}

func TestNew(t *testing.T) {
	r, err := New(3, 4, 2, "<f4")
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 4, 2}, r.Shape())
	assert.Equal(t, 8, r.PixelSize())
	assert.Len(t, r.Data, 3*4*2*4)

	r, err = New(3, 4, 0, "|u1")
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 4}, r.Shape())
	assert.Equal(t, 1, r.PixelSize())

	_, err = New(3, 4, 0, "<U8")
	assert.Error(t, err)
	_, err = New(-1, 4, 0, "<f4")
	assert.Error(t, err)
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(2, 2, 0, "<f4", make([]byte, 16))
	assert.NoError(t, err)
	_, err = FromBytes(2, 2, 0, "<f4", make([]byte, 15))
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	r, err := FromSlice(2, 2, 0, []float32{1.5, -2, 3, 4})
	assert.NoError(t, err)
	assert.Equal(t, "<f4", r.Dtype)
	values, err := Values[float32](r)
	assert.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2, 3, 4}, values)
	_, err = Values[float64](r)
	assert.Error(t, err)
}

func TestCrop(t *testing.T) {
	r := sequence(4, 4, 0)
	c, err := r.Crop(1, 2, 2, 2)
	assert.NoError(t, err)
	values, err := Values[int32](c)
	assert.NoError(t, err)
	assert.Equal(t, []int32{6, 7, 10, 11}, values)
	_, err = r.Crop(3, 3, 2, 2)
	assert.Error(t, err)
}

func TestResample(t *testing.T) {
	r := sequence(7, 5, 0)
	out, err := Resample(r, 3)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 2}, out.Shape())
	values, err := Values[int32](out)
	assert.NoError(t, err)
	// rows 0, 3, 6 and columns 0, 3
	assert.Equal(t, []int32{0, 3, 15, 18, 30, 33}, values)

	// channel axis is preserved
	r = sequence(4, 4, 3)
	out, err = Resample(r, 2)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, out.Shape())
	values, err = Values[int32](out)
	assert.NoError(t, err)
	assert.Equal(t, []int32{0, 1, 2, 6, 7, 8, 24, 25, 26, 30, 31, 32}, values)

	// factor 1 is the identity
	out, err = Resample(r, 1)
	assert.NoError(t, err)
	assert.True(t, r.Equal(out))
}

func TestResampleShape(t *testing.T) {
	for _, dim := range []int{5, 6, 9, 10, 11, 503} {
		for _, factor := range []int{1, 2, 3, 5} {
			r, err := New(dim, dim+1, 2, "|u1")
			assert.NoError(t, err)
			out, err := Resample(r, factor)
			assert.NoError(t, err)
			assert.Equal(t, (dim+factor-1)/factor, out.Height)
			assert.Equal(t, (dim+factor)/factor, out.Width)
			assert.Equal(t, 2, out.Channels)
		}
	}
}

func TestResampleInvalid(t *testing.T) {
	r := sequence(4, 6, 0)
	_, err := Resample(r, 0)
	assert.Error(t, err)
	_, err = Resample(r, 5)
	assert.Error(t, err)
	_, err = Resample(r, 4)
	assert.NoError(t, err)
}

func TestComputePadding(t *testing.T) {
	assert.Equal(t, Padding{Top: 13, Bottom: 14, Left: 13, Right: 14}, ComputePadding(101, 101, 64))
	assert.Equal(t, Padding{Top: 0, Bottom: 0, Left: 2, Right: 2}, ComputePadding(64, 124, 64))
	assert.Equal(t, Padding{}, ComputePadding(128, 64, 64))
}

func TestPad(t *testing.T) {
	r, err := FromSlice(3, 3, 0, []int32{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
	})
	assert.NoError(t, err)
	out, padding, err := Pad(r, 4)
	assert.NoError(t, err)
	assert.Equal(t, Padding{Bottom: 1, Right: 1}, padding)
	values, err := Values[int32](out)
	assert.NoError(t, err)
	assert.Equal(t, []int32{
		1, 2, 3, 2,
		4, 5, 6, 5,
		7, 8, 9, 8,
		4, 5, 6, 5,
	}, values)

	// pad wider than the raster keeps mirroring
	r, err = FromSlice(1, 2, 0, []int32{1, 2})
	assert.NoError(t, err)
	out, padding, err = Pad(r, 5)
	assert.NoError(t, err)
	assert.Equal(t, Padding{Top: 2, Bottom: 2, Left: 1, Right: 2}, padding)
	values, err = Values[int32](out)
	assert.NoError(t, err)
	for y := 0; y < 5; y++ {
		assert.Equal(t, []int32{2, 1, 2, 1, 2}, values[y*5:(y+1)*5])
	}
}

func TestPadChannels(t *testing.T) {
	r := sequence(2, 3, 2)
	out, padding, err := Pad(r, 4)
	assert.NoError(t, err)
	assert.Equal(t, []int{4, 4, 2}, out.Shape())
	assert.Equal(t, Padding{Top: 1, Bottom: 1, Left: 0, Right: 1}, padding)
	values, err := Values[int32](out)
	assert.NoError(t, err)
	// first padded row mirrors row 1, column 3 mirrors column 1
	assert.Equal(t, []int32{6, 7, 8, 9, 10, 11, 8, 9}, values[:8])
}

func TestPadOddNotice(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	defer log.ReplaceLogger(zap.New(core))()

	// 3x3 to 4x4 pads one row and one column
	_, _, err := Pad(sequence(3, 3, 0), 4)
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("odd height").Len())
	assert.Equal(t, 1, logs.FilterMessage("odd width").Len())
	entry := logs.FilterMessage("odd height").All()[0]
	assert.EqualValues(t, 3, entry.ContextMap()["height"])
	assert.EqualValues(t, 1, entry.ContextMap()["pad"])

	// 2x3 to 4x4 pads two rows and one column
	logs.TakeAll()
	_, _, err = Pad(sequence(2, 3, 0), 4)
	assert.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("odd height").Len())
	assert.Equal(t, 1, logs.FilterMessage("odd width").Len())

	// even padding is silent
	logs.TakeAll()
	_, _, err = Pad(sequence(2, 2, 0), 4)
	assert.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestPadRoundTrip(t *testing.T) {
	for _, shape := range [][3]int{{5, 7, 0}, {64, 64, 0}, {65, 3, 4}, {101, 101, 4}} {
		r := sequence(shape[0], shape[1], shape[2])
		out, padding, err := Pad(r, 64)
		assert.NoError(t, err)
		assert.Zero(t, out.Height%64)
		assert.Zero(t, out.Width%64)
		assert.Equal(t, ComputePadding(shape[0], shape[1], 64), padding)
		cropped, err := Unpad(out, padding)
		assert.NoError(t, err)
		assert.True(t, r.Equal(cropped))
	}
}

func TestSplitMerge(t *testing.T) {
	r := sequence(6, 9, 2)
	tiles, err := Split(r, 3)
	assert.NoError(t, err)
	assert.Len(t, tiles, 6)
	for i, tile := range tiles {
		assert.Equal(t, i/3, tile.Row)
		assert.Equal(t, i%3, tile.Col)
		assert.Equal(t, []int{3, 3, 2}, tile.Raster.Shape())
	}
	values, err := Values[int32](tiles[4].Raster)
	assert.NoError(t, err)
	// tile (1, 1) starts at pixel (3, 3)
	assert.Equal(t, int32((3*9+3)*2), values[0])

	merged, err := Merge(tiles, 2, 3)
	assert.NoError(t, err)
	assert.True(t, r.Equal(merged))

	_, err = Split(sequence(6, 8, 0), 3)
	assert.Error(t, err)
	_, err = Merge(tiles, 3, 3)
	assert.Error(t, err)
}

func TestFeaturePipelineShapes(t *testing.T) {
	r, err := New(503, 503, 4, "<f4")
	assert.NoError(t, err)
	resampled, err := Resample(r, 5)
	assert.NoError(t, err)
	assert.Equal(t, []int{101, 101, 4}, resampled.Shape())
	padded, padding, err := Pad(resampled, 64)
	assert.NoError(t, err)
	assert.Equal(t, []int{128, 128, 4}, padded.Shape())
	assert.Equal(t, Padding{Top: 13, Bottom: 14, Left: 13, Right: 14}, padding)
	tiles, err := Split(padded, 64)
	assert.NoError(t, err)
	assert.Len(t, tiles, 4)
	for _, tile := range tiles {
		assert.Equal(t, []int{64, 64, 4}, tile.Raster.Shape())
	}
}
