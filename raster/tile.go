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

// Tile is a size x size block of a padded raster at grid position (Row, Col).
type Tile struct {
	Row    int
	Col    int
	Raster *Raster
}

// Split cuts a raster whose dimensions are multiples of size into non-overlapping tiles,
// in row-major order.
func Split(r *Raster, size int) ([]Tile, error) {
	if size < 1 {
		return nil, errors.NotValidf("tile size %d", size)
	}
	if r.Height%size != 0 || r.Width%size != 0 {
		return nil, errors.NotValidf("%v is not a multiple of tile size %d", r, size)
	}
	rows, cols := r.Height/size, r.Width/size
	tiles := make([]Tile, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			block, err := r.Crop(y*size, x*size, size, size)
			if err != nil {
				return nil, errors.Trace(err)
			}
			tiles = append(tiles, Tile{Row: y, Col: x, Raster: block})
		}
	}
	return tiles, nil
}

// Merge reassembles tiles produced by Split. It is the inverse of Split and exists
// to verify that tiling loses no pixels.
func Merge(tiles []Tile, rows, cols int) (*Raster, error) {
	if len(tiles) != rows*cols || len(tiles) == 0 {
		return nil, errors.NotValidf("%d tiles for a %dx%d grid", len(tiles), rows, cols)
	}
	first := tiles[0].Raster
	size := first.Height
	out, err := New(rows*size, cols*size, first.Channels, first.Dtype)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, tile := range tiles {
		if tile.Row < 0 || tile.Row >= rows || tile.Col < 0 || tile.Col >= cols ||
			tile.Raster.Height != size || tile.Raster.Width != size ||
			tile.Raster.Channels != first.Channels || tile.Raster.Dtype != first.Dtype {
			return nil, errors.NotValidf("tile %v at (%d, %d)", tile.Raster, tile.Row, tile.Col)
		}
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				copy(out.pixel(tile.Row*size+y, tile.Col*size+x), tile.Raster.pixel(y, x))
			}
		}
	}
	return out, nil
}
