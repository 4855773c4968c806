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

// Package dataset defines the on-disk schema shared by the tiling and splitting
// stages: tile file names, tile groups, raw source discovery and the run manifest.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// Extension of every array file.
const Extension = ".npy"

type Role string

const (
	RoleFeatures Role = "features"
	RoleLabel    Role = "label"
)

// Tile describes a tile file in the scratch directory. Tiles are named
// <prefix>_y_<row>_x_<col>_<role>.npy.
type Tile struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
	Region int    `json:"region"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Role   Role   `json:"role"`
}

// TileName returns the file name of a tile.
func TileName(prefix string, row, col int, role Role) string {
	return fmt.Sprintf("%s_y_%d_x_%d_%s%s", prefix, row, col, role, Extension)
}

// NewTile creates the descriptor of a tile cut from the source identified by prefix.
func NewTile(prefix string, row, col int, role Role) (Tile, error) {
	region, err := ParseRegion(prefix)
	if err != nil {
		return Tile{}, errors.Trace(err)
	}
	return Tile{
		Name:   TileName(prefix, row, col, role),
		Prefix: prefix,
		Region: region,
		Row:    row,
		Col:    col,
		Role:   role,
	}, nil
}

// ParseRegion extracts the region number from a source identifier. The region is
// the second "_" separated token, e.g. 1 for "Region_1".
func ParseRegion(name string) (int, error) {
	tokens := strings.Split(name, "_")
	if len(tokens) < 2 {
		return 0, errors.NotValidf("region of %q", name)
	}
	region, err := strconv.Atoi(tokens[1])
	if err != nil {
		return 0, errors.NotValidf("region of %q", name)
	}
	return region, nil
}

// ParseTileName recovers the descriptor of a tile from its file name.
func ParseTileName(name string) (Tile, error) {
	base, ok := strings.CutSuffix(name, Extension)
	if !ok {
		return Tile{}, errors.NotValidf("tile name %q", name)
	}
	tokens := strings.Split(base, "_")
	n := len(tokens)
	if n < 6 || tokens[n-5] != "y" || tokens[n-3] != "x" {
		return Tile{}, errors.NotValidf("tile name %q", name)
	}
	role := Role(tokens[n-1])
	if role != RoleFeatures && role != RoleLabel {
		return Tile{}, errors.NotValidf("role of tile %q", name)
	}
	row, err := strconv.Atoi(tokens[n-4])
	if err != nil || row < 0 {
		return Tile{}, errors.NotValidf("row of tile %q", name)
	}
	col, err := strconv.Atoi(tokens[n-2])
	if err != nil || col < 0 {
		return Tile{}, errors.NotValidf("column of tile %q", name)
	}
	prefix := strings.Join(tokens[:n-5], "_")
	region, err := ParseRegion(prefix)
	if err != nil {
		return Tile{}, errors.Annotatef(err, "tile %q", name)
	}
	return Tile{
		Name:   name,
		Prefix: prefix,
		Region: region,
		Row:    row,
		Col:    col,
		Role:   role,
	}, nil
}

// Key identifies the group of a tile: its name without the role suffix.
func (t Tile) Key() string {
	return fmt.Sprintf("%s_y_%d_x_%d", t.Prefix, t.Row, t.Col)
}

// Group is a feature tile and its label tile. Members of a group always land in
// the same split.
type Group struct {
	Key    string `json:"key"`
	Region int    `json:"region"`
	Tiles  []Tile `json:"tiles"`
}

// Names of files in the group.
func (g Group) Names() []string {
	return lo.Map(g.Tiles, func(t Tile, _ int) string { return t.Name })
}

// GroupTiles groups tiles by key. Groups are ordered by region, prefix, row and
// column, and tiles within a group by role, so the result does not depend on the
// order of the input.
func GroupTiles(tiles []Tile) []Group {
	byKey := lo.GroupBy(tiles, func(t Tile) string { return t.Key() })
	groups := make([]Group, 0, len(byKey))
	for key, members := range byKey {
		members = lo.UniqBy(members, func(t Tile) string { return t.Name })
		sort.Slice(members, func(i, j int) bool { return members[i].Role < members[j].Role })
		groups = append(groups, Group{Key: key, Region: members[0].Region, Tiles: members})
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].Tiles[0], groups[j].Tiles[0]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.Prefix != b.Prefix {
			return a.Prefix < b.Prefix
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return groups
}

// Regions returns observed regions in ascending order.
func Regions(groups []Group) []int {
	regions := mapset.NewThreadUnsafeSet[int]()
	for _, group := range groups {
		regions.Add(group.Region)
	}
	sorted := regions.ToSlice()
	sort.Ints(sorted)
	return sorted
}
