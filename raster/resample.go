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
	"github.com/juju/errors"
)

// Resample keeps every factor-th row and column starting at (0, 0). The channel axis is
// preserved. Output dimensions are ceil(dim/factor).
func Resample(r *Raster, factor int) (*Raster, error) {
	if factor < 1 {
		return nil, errors.NotValidf("resample factor %d", factor)
	}
	if factor > r.Height || factor > r.Width {
		return nil, errors.NotValidf("resample factor %d for %v", factor, r)
	}
	height := (r.Height + factor - 1) / factor
	width := (r.Width + factor - 1) / factor
	out, err := New(height, width, r.Channels, r.Dtype)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			copy(out.pixel(y, x), r.pixel(y*factor, x*factor))
		}
	}
	return out, nil
}
