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

// Package split distributes tile groups into train and test trees.
package split

import (
	"strconv"
	"strings"

	"github.com/floodnet/datamaker/common/util"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/dataset"
	"github.com/samber/lo"
)

// Fold assigns groups to the train and test directories of a tree.
type Fold struct {
	Name  string
	Train []dataset.Group
	Test  []dataset.Group
}

// Splitter splits shuffled groups into folds. Every group lands in exactly one
// side of each fold.
type Splitter func(groups []dataset.Group) []Fold

// NewLeaveOneRegionOutSplitter creates a splitter yielding one fold per observed
// region, which tests on that region and trains on all the others.
func NewLeaveOneRegionOutSplitter() Splitter {
	return func(groups []dataset.Group) []Fold {
		regions := dataset.Regions(groups)
		folds := make([]Fold, 0, len(regions))
		for _, region := range regions {
			fold := Fold{Name: TreeName(regions, region)}
			for _, group := range groups {
				if group.Region == region {
					fold.Test = append(fold.Test, group)
				} else {
					fold.Train = append(fold.Train, group)
				}
			}
			folds = append(folds, fold)
		}
		return folds
	}
}

// NewRatioSplitter creates a splitter yielding a single fold, which trains on the
// leading share of groups and tests on the rest.
func NewRatioSplitter(name string, trainRatio float64) Splitter {
	return func(groups []dataset.Group) []Fold {
		trainSize := int(float64(len(groups)) * trainRatio)
		return []Fold{{
			Name:  name,
			Train: groups[:trainSize],
			Test:  groups[trainSize:],
		}}
	}
}

// TreeName names the tree testing on a region, e.g. Region_2_3_TRAIN_Region_1_TEST
// for region 1 out of {1, 2, 3}.
func TreeName(regions []int, test int) string {
	tokens := []string{"Region"}
	for _, region := range lo.Without(regions, test) {
		tokens = append(tokens, strconv.Itoa(region))
	}
	tokens = append(tokens, "TRAIN", "Region", strconv.Itoa(test), "TEST")
	return strings.Join(tokens, "_")
}

// Plan groups tiles, shuffles the groups once with the configured seed and splits
// them by every scheme: leave one region out, then the combined ratio split.
func Plan(tiles []dataset.Tile, cfg *config.Config) []Fold {
	groups := dataset.GroupTiles(tiles)
	groups = util.Shuffle(util.NewRandomGenerator(cfg.Split.Seed), groups)
	folds := NewLeaveOneRegionOutSplitter()(groups)
	return append(folds, NewRatioSplitter(cfg.Output.CombinedName, cfg.Split.TrainRatio)(groups)...)
}
