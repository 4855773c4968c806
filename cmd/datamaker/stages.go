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

package main

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/dataset"
	"github.com/floodnet/datamaker/pipeline"
	"github.com/floodnet/datamaker/split"
	"github.com/floodnet/datamaker/storage/blob"
	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// tileStage tiles raw rasters into the scratch directory and records the tiles in
// a manifest next to them.
func tileStage(ctx context.Context, conf *config.Config, showProgress bool) (*dataset.Manifest, error) {
	scratch := blob.NewPOSIX(conf.Output.ScratchDir)
	p := &pipeline.Pipeline{
		Config:       conf,
		Input:        blob.NewPOSIX(conf.Input.Dir),
		Scratch:      scratch,
		ShowProgress: showProgress,
	}
	manifest, err := p.Run(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = manifest.Write(scratch, conf.Output.Manifest); err != nil {
		return nil, errors.Trace(err)
	}
	return manifest, nil
}

// scanScratch rebuilds the manifest of a previous tiling run from the scratch
// directory. Tiles are always rediscovered from file names, the stored manifest
// only contributes the run identity and skipped sources.
func scanScratch(conf *config.Config) (*dataset.Manifest, error) {
	if _, err := os.Stat(conf.Output.ScratchDir); err != nil {
		return nil, errors.Trace(err)
	}
	scratch := blob.NewPOSIX(conf.Output.ScratchDir)
	manifest, err := dataset.LoadManifest(scratch, conf.Output.Manifest)
	if errors.Is(err, errors.NotFound) {
		log.Logger().Info("no manifest in scratch directory, start a new run",
			zap.String("scratch_dir", conf.Output.ScratchDir))
		manifest = dataset.NewManifest(conf.Tiling.TileSize, conf.Tiling.ResampleFactor, conf.Split.Seed)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	manifest.Seed = conf.Split.Seed
	if manifest.Tiles, err = dataset.ListTiles(scratch); err != nil {
		return nil, errors.Trace(err)
	}
	return manifest, nil
}

// splitStage distributes the tiles of a manifest into the split trees and writes
// the manifest, now carrying fold summaries, to the destination store.
func splitStage(ctx context.Context, conf *config.Config, manifest *dataset.Manifest, showProgress bool) error {
	dest, err := blob.NewStore(conf.Storage, conf.Output.SplitDir)
	if err != nil {
		return errors.Trace(err)
	}
	distributor := &split.Distributor{
		Config:       conf,
		Scratch:      blob.NewPOSIX(conf.Output.ScratchDir),
		Dest:         dest,
		ShowProgress: showProgress,
	}
	folds := split.Plan(manifest.Tiles, conf)
	if manifest.Folds, err = distributor.Distribute(ctx, folds); err != nil {
		return errors.Trace(err)
	}
	log.Logger().Info("complete splitting",
		zap.String("run_id", manifest.RunID),
		zap.Int("n_folds", len(manifest.Folds)))
	return errors.Trace(manifest.Write(dest, conf.Output.Manifest))
}

func printSummary(w io.Writer, manifest *dataset.Manifest) {
	table := tablewriter.NewWriter(w)
	table.Header("Tree", "Train groups", "Test groups", "Files")
	for _, fold := range manifest.Folds {
		_ = table.Append([]string{
			fold.Name,
			strconv.Itoa(fold.TrainGroups),
			strconv.Itoa(fold.TestGroups),
			strconv.Itoa(fold.Files),
		})
	}
	_ = table.Render()
}
