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

// Package pipeline turns raw feature and label rasters into aligned tiles.
package pipeline

import (
	"context"

	"github.com/floodnet/datamaker/common/encoding"
	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/common/parallel"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/dataset"
	"github.com/floodnet/datamaker/raster"
	"github.com/floodnet/datamaker/storage/blob"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Pipeline struct {
	Config *config.Config
	// Input holds raw rasters.
	Input blob.Store
	// Scratch receives every tile in a flat namespace.
	Scratch blob.Store
	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool
}

// outcome of a single source
type outcome struct {
	tiles   []dataset.Tile
	skipped *dataset.Skipped
}

// Run tiles every feature file of the input store together with its label. A
// feature file without label, or whose prefix is taken by an earlier feature file,
// is skipped and recorded in the manifest. Any other failure aborts the run. Tiles are listed in source order, then row-major order
// with the feature tile before the label tile.
func (p *Pipeline) Run(ctx context.Context) (*dataset.Manifest, error) {
	sources, duplicates, err := dataset.DiscoverSources(p.Input, p.Config.Input, p.Config.Tiling.PrefixLength)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = p.Scratch.MakeDir(""); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Info("start tiling",
		zap.Int("n_sources", len(sources)),
		zap.Int("n_jobs", p.Config.Jobs),
		zap.Int("tile_size", p.Config.Tiling.TileSize),
		zap.Int("resample_factor", p.Config.Tiling.ResampleFactor))

	var bar *progressbar.ProgressBar
	if p.ShowProgress {
		bar = progressbar.Default(int64(len(sources)), "tiling")
	} else {
		bar = progressbar.DefaultSilent(int64(len(sources)), "tiling")
	}
	outcomes := make([]outcome, len(sources))
	numTiles := atomic.NewInt64(0)
	err = parallel.Parallel(ctx, len(sources), p.Config.Jobs, func(_, jobId int) error {
		source := sources[jobId]
		tiles, err := p.tileSource(source)
		if errors.Is(err, errors.NotFound) {
			log.Logger().Warn("skip features without label",
				zap.String("features", source.Features),
				zap.String("label", source.Label),
				zap.Error(err))
			outcomes[jobId].skipped = &dataset.Skipped{
				Features: source.Features,
				Label:    source.Label,
				Reason:   err.Error(),
			}
		} else if err != nil {
			return errors.Annotatef(err, "tile %s", source.Features)
		} else {
			outcomes[jobId].tiles = tiles
			numTiles.Add(int64(len(tiles)))
		}
		_ = bar.Add(1)
		return nil
	})
	_ = bar.Finish()
	if err != nil {
		return nil, errors.Trace(err)
	}

	manifest := dataset.NewManifest(p.Config.Tiling.TileSize, p.Config.Tiling.ResampleFactor, p.Config.Split.Seed)
	manifest.Skipped = append(manifest.Skipped, duplicates...)
	for _, o := range outcomes {
		manifest.Tiles = append(manifest.Tiles, o.tiles...)
		if o.skipped != nil {
			manifest.Skipped = append(manifest.Skipped, *o.skipped)
		}
	}
	log.Logger().Info("complete tiling",
		zap.Int("n_sources", len(sources)),
		zap.Int("n_skipped", len(manifest.Skipped)),
		zap.Int64("n_tiles", numTiles.Load()))
	return manifest, nil
}

// tileSource resamples, pads and tiles a feature raster and its label in lockstep.
// A missing label is reported as errors.NotFound before anything is written.
func (p *Pipeline) tileSource(source dataset.Source) ([]dataset.Tile, error) {
	if _, err := dataset.ParseRegion(source.Prefix); err != nil {
		return nil, errors.Trace(err)
	}
	features, err := p.load(source.Features)
	if err != nil {
		if errors.Is(err, errors.NotFound) {
			// only a missing label is skipped
			return nil, errors.Errorf("features %s disappeared: %v", source.Features, err)
		}
		return nil, errors.Trace(err)
	}
	label, err := p.load(source.Label)
	if err != nil {
		return nil, errors.Trace(err)
	}

	tileSize := p.Config.Tiling.TileSize
	factor := p.Config.Tiling.ResampleFactor
	if features, err = raster.Resample(features, factor); err != nil {
		return nil, errors.Annotatef(err, "resample %s", source.Features)
	}
	if label, err = raster.Resample(label, factor); err != nil {
		return nil, errors.Annotatef(err, "resample %s", source.Label)
	}
	if features.Height != label.Height || features.Width != label.Width {
		return nil, errors.NotValidf("extent of %s (%dx%d) and %s (%dx%d)",
			source.Features, features.Height, features.Width,
			source.Label, label.Height, label.Width)
	}
	if features, _, err = raster.Pad(features, tileSize); err != nil {
		return nil, errors.Trace(err)
	}
	if label, _, err = raster.Pad(label, tileSize); err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("padded source",
		zap.String("features", source.Features),
		zap.Ints("features_shape", features.Shape()),
		zap.Ints("label_shape", label.Shape()))

	featureTiles, err := raster.Split(features, tileSize)
	if err != nil {
		return nil, errors.Trace(err)
	}
	labelTiles, err := raster.Split(label, tileSize)
	if err != nil {
		return nil, errors.Trace(err)
	}
	tiles := make([]dataset.Tile, 0, 2*len(featureTiles))
	for i := range featureTiles {
		for _, t := range []struct {
			tile raster.Tile
			role dataset.Role
		}{
			{featureTiles[i], dataset.RoleFeatures},
			{labelTiles[i], dataset.RoleLabel},
		} {
			tile, err := dataset.NewTile(source.Prefix, t.tile.Row, t.tile.Col, t.role)
			if err != nil {
				return nil, errors.Trace(err)
			}
			if err = p.save(tile.Name, t.tile.Raster); err != nil {
				return nil, errors.Trace(err)
			}
			tiles = append(tiles, tile)
		}
	}
	return tiles, nil
}

func (p *Pipeline) load(name string) (*raster.Raster, error) {
	r, err := p.Input.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	data, err := encoding.LoadRaster(r)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", name)
	}
	return data, nil
}

func (p *Pipeline) save(name string, data *raster.Raster) error {
	w, err := p.Scratch.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	if err = encoding.SaveRaster(w, data); err != nil {
		_ = w.Close()
		return errors.Annotatef(err, "save %s", name)
	}
	return errors.Trace(w.Close())
}
