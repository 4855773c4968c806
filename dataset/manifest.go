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
	"encoding/json"
	"io"
	"time"

	"github.com/floodnet/datamaker/storage/blob"
	"github.com/google/uuid"
	"github.com/juju/errors"
)

// Skipped records a feature file left out of a run.
type Skipped struct {
	Features string `json:"features"`
	Label    string `json:"label"`
	Reason   string `json:"reason"`
}

// Fold records the outcome of one split tree.
type Fold struct {
	Name        string `json:"name"`
	TrainGroups int    `json:"train_groups"`
	TestGroups  int    `json:"test_groups"`
	Files       int    `json:"files"`
}

// Manifest is the record of a run. It carries the tiles produced by the tiling
// stage to the splitting stage and is persisted next to the outputs.
type Manifest struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	TileSize       int       `json:"tile_size"`
	ResampleFactor int       `json:"resample_factor"`
	Seed           int64     `json:"seed"`
	Tiles          []Tile    `json:"tiles,omitempty"`
	Skipped        []Skipped `json:"skipped,omitempty"`
	Folds          []Fold    `json:"folds,omitempty"`
}

func NewManifest(tileSize, resampleFactor int, seed int64) *Manifest {
	return &Manifest{
		RunID:          uuid.New().String(),
		CreatedAt:      time.Now().UTC(),
		TileSize:       tileSize,
		ResampleFactor: resampleFactor,
		Seed:           seed,
	}
}

// LoadManifest loads a manifest from a store. The manifest is checked against
// ManifestSchema before it is decoded.
func LoadManifest(store blob.Store, name string) (*Manifest, error) {
	r, err := store.Open(name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = validateManifest(data); err != nil {
		return nil, errors.Annotatef(err, "manifest %s", name)
	}
	var manifest Manifest
	if err = json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Annotatef(err, "manifest %s", name)
	}
	return &manifest, nil
}

// Write the manifest to a store.
func (m *Manifest) Write(store blob.Store, name string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Trace(err)
	}
	w, err := store.Create(name)
	if err != nil {
		return errors.Trace(err)
	}
	if _, err = w.Write(data); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	return errors.Trace(w.Close())
}
