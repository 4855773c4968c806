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
	"github.com/floodnet/datamaker/common/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Padding is the number of rows or columns added on each edge.
type Padding struct {
	Top    int
	Bottom int
	Left   int
	Right  int
}

// ComputePadding returns the padding that grows (height, width) to the nearest multiples of
// size. An odd amount puts the extra row at the bottom and the extra column at the right.
func ComputePadding(height, width, size int) Padding {
	heightPad := ceilMultiple(height, size) - height
	widthPad := ceilMultiple(width, size) - width
	return Padding{
		Top:    heightPad / 2,
		Bottom: heightPad - heightPad/2,
		Left:   widthPad / 2,
		Right:  widthPad - widthPad/2,
	}
}

func ceilMultiple(n, size int) int {
	return (n + size - 1) / size * size
}

// Pad grows the spatial axes of a raster to multiples of size with reflect padding: values
// are mirrored about the edge pixel, which is not repeated. The channel axis is untouched.
func Pad(r *Raster, size int) (*Raster, Padding, error) {
	if size < 1 {
		return nil, Padding{}, errors.NotValidf("tile size %d", size)
	}
	if r.Height == 0 || r.Width == 0 {
		return nil, Padding{}, errors.NotValidf("pad empty %v", r)
	}
	padding := ComputePadding(r.Height, r.Width, size)
	if (padding.Top+padding.Bottom)%2 == 1 {
		log.Logger().Info("odd height", zap.Int("height", r.Height), zap.Int("pad", padding.Top+padding.Bottom))
	}
	if (padding.Left+padding.Right)%2 == 1 {
		log.Logger().Info("odd width", zap.Int("width", r.Width), zap.Int("pad", padding.Left+padding.Right))
	}
	out, err := New(r.Height+padding.Top+padding.Bottom, r.Width+padding.Left+padding.Right, r.Channels, r.Dtype)
	if err != nil {
		return nil, Padding{}, errors.Trace(err)
	}
	for y := 0; y < out.Height; y++ {
		srcY := reflectIndex(y-padding.Top, r.Height)
		for x := 0; x < out.Width; x++ {
			srcX := reflectIndex(x-padding.Left, r.Width)
			copy(out.pixel(y, x), r.pixel(srcY, srcX))
		}
	}
	if out.Height%size != 0 || out.Width%size != 0 {
		panic("padded raster is not a multiple of the tile size")
	}
	return out, padding, nil
}

// reflectIndex maps i onto [0, n) by mirroring about the first and last element.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// Unpad removes the padding added by Pad. It is the inverse of Pad and exists to
// verify that padding keeps the original pixels in place.
func Unpad(r *Raster, padding Padding) (*Raster, error) {
	return r.Crop(padding.Top, padding.Left,
		r.Height-padding.Top-padding.Bottom,
		r.Width-padding.Left-padding.Right)
}
