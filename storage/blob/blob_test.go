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

package blob

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"testing/iotest"
	"testing/synctest"

	"github.com/floodnet/datamaker/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStore fails the first few writes.
type flakyStore struct {
	*POSIX
	failures int
	creates  int
}

func (s *flakyStore) Create(name string) (io.WriteCloser, error) {
	s.creates++
	if s.creates <= s.failures {
		return nil, errors.New("connection reset")
	}
	return s.POSIX.Create(name)
}

// countingStore counts opened blobs.
type countingStore struct {
	*POSIX
	opens int
}

func (s *countingStore) Open(name string) (io.ReadCloser, error) {
	s.opens++
	return s.POSIX.Open(name)
}

// truncatedStore serves blobs that break after the first few bytes.
type truncatedStore struct {
	*POSIX
}

func (s *truncatedStore) Open(name string) (io.ReadCloser, error) {
	r, err := s.POSIX.Open(name)
	if err != nil {
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{io.MultiReader(io.LimitReader(r, 2), iotest.ErrReader(errors.New("unexpected EOF"))), r}, nil
}

func writeBlob(t *testing.T, store Store, name, content string) {
	w, err := store.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func readBlob(t *testing.T, store Store, name string) string {
	r, err := store.Open(name)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestCopy(t *testing.T) {
	src := NewPOSIX(t.TempDir())
	dst := NewPOSIX(t.TempDir())
	writeBlob(t, src, "Region_1_y_0_x_0_features.npy", "tile")

	err := Copy(context.Background(), src, "Region_1_y_0_x_0_features.npy", dst, "train/Region_1_y_0_x_0_features.npy", 3)
	assert.NoError(t, err)
	assert.Equal(t, "tile", readBlob(t, dst, "train/Region_1_y_0_x_0_features.npy"))
	// copy by value
	assert.Equal(t, "tile", readBlob(t, src, "Region_1_y_0_x_0_features.npy"))
}

func TestCopyMissingSource(t *testing.T) {
	src := &countingStore{POSIX: NewPOSIX(t.TempDir())}
	dst := NewPOSIX(t.TempDir())
	err := Copy(context.Background(), src, "missing.npy", dst, "missing.npy", 3)
	assert.True(t, errors.Is(err, errors.NotFound))
	assert.Equal(t, 1, src.opens)
}

func TestCopyRetry(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := NewPOSIX(t.TempDir())
		writeBlob(t, src, "tile.npy", "tile")

		dst := &flakyStore{POSIX: NewPOSIX(t.TempDir()), failures: 2}
		err := Copy(context.Background(), src, "tile.npy", dst, "tile.npy", 3)
		assert.NoError(t, err)
		assert.Equal(t, 3, dst.creates)
		assert.Equal(t, "tile", readBlob(t, dst, "tile.npy"))

		dst = &flakyStore{POSIX: NewPOSIX(t.TempDir()), failures: 3}
		err = Copy(context.Background(), src, "tile.npy", dst, "tile.npy", 3)
		assert.ErrorContains(t, err, "connection reset")
		assert.Equal(t, 3, dst.creates)
	})
}

func TestCopyRemovesPartialBlob(t *testing.T) {
	src := &truncatedStore{POSIX: NewPOSIX(t.TempDir())}
	writeBlob(t, src, "tile.npy", "tile")
	dst := NewPOSIX(t.TempDir())

	err := Copy(context.Background(), src, "tile.npy", dst, "train/tile.npy", 1)
	assert.ErrorContains(t, err, "unexpected EOF")
	_, err = dst.Open("train/tile.npy")
	assert.True(t, errors.Is(err, errors.NotFound))
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "split")
	store, err := NewStore(config.StorageConfig{Type: config.StoragePOSIX}, dir)
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)

	_, err = NewStore(config.StorageConfig{Type: "ftp"}, dir)
	assert.True(t, errors.Is(err, errors.NotSupported))
}
