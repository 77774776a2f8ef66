/*******************************************************************************
*
* Copyright 2024 Instructure, Inc.
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

// Package cache materializes a dump's artifacts onto local disk, skipping
// artifacts that are already fully cached.
package cache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sapcc/go-bits/logg"

	"github.com/instructure/canvas-data-loader/internal/canvasapi"
)

// Downloader fetches dump file listings and streams artifact bodies to
// disk. It is satisfied by *canvasapi.Client; tests substitute a fake.
type Downloader interface {
	ListFiles(ctx context.Context, dumpID string) (*canvasapi.FilesInDump, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

// defaultMaxConcurrency bounds how many artifact files download at once per
// dump, matching the spec's recommendation of a small fixed cap.
const defaultMaxConcurrency = 8

// Err wraps a download or filesystem failure encountered while caching a
// dump's artifacts.
type Err struct{ Inner error }

func (e *Err) Error() string { return fmt.Sprintf("cache: %s", e.Inner) }
func (e *Err) Unwrap() error  { return e.Inner }

// Cache materializes dump artifacts under SaveLocation.
type Cache struct {
	api            Downloader
	SaveLocation   string
	MaxConcurrency int
}

// New constructs a Cache that downloads through api and stores files under
// saveLocation.
func New(api Downloader, saveLocation string) *Cache {
	return &Cache{api: api, SaveLocation: saveLocation, MaxConcurrency: defaultMaxConcurrency}
}

// DumpDir returns the directory a dump's artifacts are stored under.
func (c *Cache) DumpDir(dumpID string) string {
	return filepath.Join(c.SaveLocation, dumpID)
}

// DownloadDump materializes every artifact for dumpID onto disk, skipping
// any artifact whose first file is already present (invariant I5).
func (c *Cache) DownloadDump(ctx context.Context, dumpID string) error {
	dir := c.DumpDir(dumpID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Err{Inner: err}
	}

	files, err := c.api.ListFiles(ctx, dumpID)
	if err != nil {
		return &Err{Inner: err}
	}

	type job struct {
		url      string
		filename string
	}
	var jobs []job
	for _, artifact := range files.ArtifactsByTable {
		if len(artifact.Files) == 0 {
			continue
		}
		firstPath := filepath.Join(dir, artifact.Files[0].Filename)
		if _, err := os.Stat(firstPath); err == nil {
			logg.Debug("cache: %s already exists, skipping artifact %s", firstPath, artifact.TableName)
			continue
		}
		for _, f := range artifact.Files {
			jobs = append(jobs, job{url: f.URL, filename: f.Filename})
		}
	}

	sem := semaphore.NewWeighted(int64(c.MaxConcurrency))
	group, groupCtx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var downloadErrs error

	for _, j := range jobs {
		j := j
		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			destPath := filepath.Join(dir, j.filename)
			if err := downloadOne(groupCtx, c.api, j.url, destPath); err != nil {
				mu.Lock()
				downloadErrs = multierror.Append(downloadErrs, err)
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return &Err{Inner: downloadErrs}
	}
	return nil
}

func downloadOne(ctx context.Context, api Downloader, url, destPath string) error {
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return api.Download(ctx, url, f)
}
