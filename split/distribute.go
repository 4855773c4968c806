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

package split

import (
	"context"
	"path"

	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/common/parallel"
	"github.com/floodnet/datamaker/config"
	"github.com/floodnet/datamaker/dataset"
	"github.com/floodnet/datamaker/storage/blob"
	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Distributor struct {
	Config *config.Config
	// Scratch holds tiles. It is never modified.
	Scratch blob.Store
	// Dest receives the trees.
	Dest blob.Store
	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool
}

// MakeDirs creates the train and test directories of every fold, even if a side
// receives no groups.
func (d *Distributor) MakeDirs(folds []Fold) error {
	for _, fold := range folds {
		for _, dir := range []string{d.Config.Output.TrainDir, d.Config.Output.TestDir} {
			if err := d.Dest.MakeDir(path.Join(fold.Name, dir)); err != nil {
				return errors.Trace(err)
			}
		}
	}
	return nil
}

// Distribute copies every group of every fold from the scratch store to its tree.
// All files of a group are copied to the same side.
func (d *Distributor) Distribute(ctx context.Context, folds []Fold) ([]dataset.Fold, error) {
	if err := d.MakeDirs(folds); err != nil {
		return nil, errors.Trace(err)
	}
	summaries := make([]dataset.Fold, 0, len(folds))
	for _, fold := range folds {
		log.Logger().Info("distribute fold",
			zap.String("name", fold.Name),
			zap.Int("n_train_groups", len(fold.Train)),
			zap.Int("n_test_groups", len(fold.Test)))
		type assignment struct {
			group dataset.Group
			dir   string
		}
		assignments := make([]assignment, 0, len(fold.Train)+len(fold.Test))
		for _, group := range fold.Train {
			assignments = append(assignments, assignment{group, path.Join(fold.Name, d.Config.Output.TrainDir)})
		}
		for _, group := range fold.Test {
			assignments = append(assignments, assignment{group, path.Join(fold.Name, d.Config.Output.TestDir)})
		}

		var bar *progressbar.ProgressBar
		if d.ShowProgress {
			bar = progressbar.Default(int64(len(assignments)), fold.Name)
		} else {
			bar = progressbar.DefaultSilent(int64(len(assignments)), fold.Name)
		}
		numFiles := atomic.NewInt64(0)
		err := parallel.Parallel(ctx, len(assignments), d.Config.Jobs, func(_, jobId int) error {
			a := assignments[jobId]
			for _, name := range a.group.Names() {
				if err := blob.Copy(ctx, d.Scratch, name, d.Dest, path.Join(a.dir, name), d.Config.Storage.MaxTries); err != nil {
					return errors.Annotatef(err, "copy %s to %s", name, a.dir)
				}
				numFiles.Inc()
			}
			_ = bar.Add(1)
			return nil
		})
		_ = bar.Finish()
		if err != nil {
			return nil, errors.Trace(err)
		}
		summaries = append(summaries, dataset.Fold{
			Name:        fold.Name,
			TrainGroups: len(fold.Train),
			TestGroups:  len(fold.Test),
			Files:       int(numFiles.Load()),
		})
	}
	return summaries, nil
}
