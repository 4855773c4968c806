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
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/floodnet/datamaker/common/log"
	"github.com/floodnet/datamaker/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Store is a namespace of blobs addressed by slash separated names.
type Store interface {
	// Open a blob for reading. A missing blob is reported as errors.NotFound.
	Open(name string) (io.ReadCloser, error)
	// Create a blob for writing. Close blocks until the blob is persisted and returns
	// the error of the upload, if any.
	Create(name string) (io.WriteCloser, error)
	// List names of all blobs in the store.
	List() ([]string, error)
	// Remove a blob.
	Remove(name string) error
	// MakeDir creates a directory. Object stores have no directories, so it is a
	// no-op there.
	MakeDir(name string) error
}

// NewStore creates the store selected by the configuration. The directory is the
// root of a POSIX store and is ignored by object stores, which use their own prefix.
func NewStore(cfg config.StorageConfig, dir string) (Store, error) {
	switch cfg.Type {
	case config.StoragePOSIX, "":
		return NewPOSIX(dir), nil
	case config.StorageS3:
		return NewS3(cfg.S3)
	case config.StorageGCS:
		return NewGCS(cfg.GCS)
	case config.StorageAzure:
		return NewAzureBlob(cfg.Azure)
	default:
		return nil, errors.NotSupportedf("storage type %q", cfg.Type)
	}
}

// Copy a blob from one store to another by value. Transient failures are retried
// up to maxTries times with exponential backoff. A missing source is not retried. A
// destination left half written by a failed attempt is removed.
func Copy(ctx context.Context, src Store, srcName string, dst Store, dstName string, maxTries int) error {
	if maxTries < 1 {
		maxTries = 1
	}
	_, err := backoff.Retry(ctx, func() (int64, error) {
		r, err := src.Open(srcName)
		if err != nil {
			if errors.Is(err, errors.NotFound) {
				return 0, backoff.Permanent(err)
			}
			return 0, err
		}
		defer r.Close()
		w, err := dst.Create(dstName)
		if err != nil {
			return 0, err
		}
		n, err := io.Copy(w, r)
		if err != nil {
			// drop the partial destination so a failed copy leaves nothing behind
			_ = w.Close()
			if rmErr := dst.Remove(dstName); rmErr != nil {
				log.Logger().Warn("failed to remove partial blob", zap.String("dst", dstName), zap.Error(rmErr))
			}
			return 0, err
		}
		return n, w.Close()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxTries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Logger().Warn("failed to copy blob, retrying",
				zap.String("src", srcName),
				zap.String("dst", dstName),
				zap.Duration("next", next),
				zap.Error(err))
		}))
	return errors.Trace(err)
}

// pipeWriter feeds an upload running in another goroutine.
type pipeWriter struct {
	*io.PipeWriter
	done chan struct{}
	err  error
}

func newPipeWriter(upload func(r io.Reader) error) *pipeWriter {
	pr, pw := io.Pipe()
	w := &pipeWriter{PipeWriter: pw, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		w.err = upload(pr)
		// unblock the writer if the upload stopped early
		_ = pr.CloseWithError(errors.Annotate(w.err, "upload aborted"))
	}()
	return w
}

func (w *pipeWriter) Close() error {
	if err := w.PipeWriter.Close(); err != nil {
		return errors.Trace(err)
	}
	<-w.done
	return errors.Trace(w.err)
}
