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

package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/storage/blob"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Source is a raw feature file and its paired label file.
type Source struct {
	Prefix   string `json:"prefix"`
	Features string `json:"features"`
	Label    string `json:"label"`
}

// SourcePrefix returns the leading n bytes of a file name, which identify the
// source region. Shorter names are returned whole.
func SourcePrefix(name string, n int) string {
	if len(name) <= n {
		return name
	}
	return name[:n]
}

// IsFeatureFile reports whether a file name is a feature raster.
func IsFeatureFile(name string, cfg config.InputConfig) bool {
	return strings.HasSuffix(name, cfg.Extension) && strings.Contains(name, cfg.FeatureMarker)
}

// LabelName returns the name of the label paired with a feature file.
func LabelName(feature string, prefixLength int, suffix string) string {
	return SourcePrefix(feature, prefixLength) + suffix
}

// DiscoverSources lists feature files at the top level of the input store in name
// order, each paired with its label. Labels are not checked for existence. Tile
// names are derived from the prefix, so only the first feature file of a prefix is
// kept and later ones are returned as skipped.
func DiscoverSources(store blob.Store, cfg config.InputConfig, prefixLength int) ([]Source, []Skipped, error) {
	names, err := store.List()
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	var features []string
	for _, name := range names {
		if strings.Contains(name, "/") || !IsFeatureFile(name, cfg) {
			continue
		}
		features = append(features, name)
	}
	sort.Strings(features)

	var (
		sources []Source
		skipped []Skipped
	)
	owners := make(map[string]string)
	for _, name := range features {
		source := Source{
			Prefix:   SourcePrefix(name, prefixLength),
			Features: name,
			Label:    LabelName(name, prefixLength, cfg.LabelSuffix),
		}
		if owner, exist := owners[source.Prefix]; exist {
			log.Logger().Warn("skip features with duplicate prefix",
				zap.String("features", name),
				zap.String("prefix", source.Prefix),
				zap.String("kept", owner))
			skipped = append(skipped, Skipped{
				Features: name,
				Label:    source.Label,
				Reason:   fmt.Sprintf("prefix %s already used by %s", source.Prefix, owner),
			})
			continue
		}
		owners[source.Prefix] = name
		sources = append(sources, source)
	}
	return sources, skipped, nil
}

// ListTiles discovers tiles at the top level of a store. Files without the array
// extension are ignored and a malformed tile name is an error.
func ListTiles(store blob.Store) ([]Tile, error) {
	names, err := store.List()
	if err != nil {
		return nil, errors.Trace(err)
	}
	var tiles []Tile
	for _, name := range names {
		if strings.Contains(name, "/") || !strings.HasSuffix(name, Extension) {
			continue
		}
		tile, err := ParseTileName(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		tiles = append(tiles, tile)
	}
	return tiles, nil
}
