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

// Package importer is the heart of the loader: it decodes downloaded
// artifacts and loads their rows into the configured backend, observing the
// volatile-table drop/rebuild policy and the delete-then-insert upsert
// policy for everything else.
package importer

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sapcc/go-bits/logg"

	"github.com/instructure/canvas-data-loader/internal/backend"
	"github.com/instructure/canvas-data-loader/internal/canvasapi"
	"github.com/instructure/canvas-data-loader/internal/dbtype"
)

// defaultMaxConcurrency bounds how many files load in parallel. It is a
// small fixed cap and does not vary with the number of CPUs.
const defaultMaxConcurrency = 8

// TableDefFetcher fetches a table's schema definition. Satisfied by
// *canvasapi.Client; tests substitute a fake.
type TableDefFetcher interface {
	FindTableDef(ctx context.Context, name string) (*canvasapi.TableDef, error)
}

// ArtifactCache materializes a dump's downloaded files onto local disk
// before Process enumerates them. Satisfied by *cache.Cache.
type ArtifactCache interface {
	DownloadDump(ctx context.Context, dumpID string) error
	DumpDir(dumpID string) string
}

// ErrImportFailed is returned by Process when any file in the load phase
// set the has-failed flag. The run controller writes a "failure" ledger
// entry for this and for any other error Process returns.
var ErrImportFailed = fmt.Errorf("importer: one or more files failed to import")

// Importer loads one dump's artifacts into a Backend.
type Importer struct {
	API            TableDefFetcher
	Cache          ArtifactCache
	DB             backend.Backend
	MaxConcurrency int
}

// New constructs an Importer.
func New(api TableDefFetcher, cache ArtifactCache, db backend.Backend) *Importer {
	return &Importer{API: api, Cache: cache, DB: db, MaxConcurrency: defaultMaxConcurrency}
}

// Process downloads, decodes and loads every artifact belonging to dumpID.
// When allVolatile is true every table is treated as volatile for this run
// (used when the schema version has changed since the last run).
func (imp *Importer) Process(ctx context.Context, dumpID string, allVolatile bool) error {
	if err := imp.Cache.DownloadDump(ctx, dumpID); err != nil {
		return err
	}

	dir := imp.Cache.DumpDir(dumpID)
	matches, err := filepath.Glob(filepath.Join(dir, "*.gz"))
	if err != nil {
		return fmt.Errorf("importer: globbing %s: %w", dir, err)
	}

	type fileJob struct {
		path  string
		parts fileNameParts
	}
	var jobs []fileJob
	for _, path := range matches {
		parts, ok := parseFileName(filepath.Base(path))
		if !ok {
			logg.Debug("importer: ignoring unrecognized filename %s", path)
			continue
		}
		jobs = append(jobs, fileJob{path: path, parts: parts})
	}

	var hasFailed atomic.Bool

	// Drop phase: serial, happens-before the load phase.
	dropped := make(map[string]bool)
	for _, j := range jobs {
		if hasFailed.Load() {
			break
		}
		table := j.parts.Table
		if dropped[table] || !isVolatile(table, allVolatile) {
			continue
		}
		if err := imp.DB.DropTable(table); err != nil {
			logg.Error("importer: drop_table %s: %s", table, err)
			hasFailed.Store(true)
			break
		}
		dropped[table] = true
	}

	// Load phase: bounded parallel fan-out across files.
	sem := semaphore.NewWeighted(int64(imp.MaxConcurrency))
	group, groupCtx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		j := j
		if hasFailed.Load() {
			break
		}
		if err := sem.Acquire(groupCtx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			if hasFailed.Load() {
				return nil
			}
			if err := imp.loadFile(groupCtx, j.path, j.parts, allVolatile); err != nil {
				logg.Error("importer: %s: %s", j.path, err)
				hasFailed.Store(true)
			}
			return nil
		})
	}
	_ = group.Wait()

	if hasFailed.Load() {
		return ErrImportFailed
	}
	return nil
}

func (imp *Importer) loadFile(ctx context.Context, path string, parts fileNameParts, allVolatile bool) error {
	tableDef, err := imp.API.FindTableDef(ctx, parts.Table)
	if err != nil {
		return fmt.Errorf("fetching table definition: %w", err)
	}
	if tableDef == nil {
		return fmt.Errorf("no table definition found for %q", parts.Table)
	}

	kind := dbtype.Kind(imp.DB.PluginTypeID())
	columnNames := make([]string, len(tableDef.Columns))
	columns := make([]backend.Column, len(tableDef.Columns))
	for i, col := range tableDef.Columns {
		sqlType, err := dbtype.Map(col.Type, kind)
		if err != nil {
			return fmt.Errorf("mapping column %s.%s: %w", parts.Table, col.Name, err)
		}
		columnNames[i] = col.Name
		columns[i] = backend.Column{Name: col.Name, SQLType: sqlType, CastAs: dbtype.CastAs(sqlType, kind)}
	}

	if err := imp.DB.CreateTable(parts.Table, columns); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	body, err := readGzipFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	logg.Debug("importer: decoded %s (%d bytes): %s", path, len(body), truncateForLog(body))

	volatile := isVolatile(parts.Table, allVolatile)

	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(columnNames) {
			return fmt.Errorf("row in %s has %d fields, expected %d", path, len(fields), len(columnNames))
		}

		rowByName := make(map[string]*string, len(columnNames))
		values := make([]*string, len(columnNames))
		for i, name := range columnNames {
			field := fields[i]
			var v *string
			if field != `\N` {
				fieldCopy := field
				v = &fieldCopy
			}
			values[i] = v
			rowByName[name] = v
		}

		if volatile {
			if err := imp.DB.InsertRow(parts.Table, columns, values); err != nil {
				return fmt.Errorf("inserting row: %w", err)
			}
			continue
		}

		idCol, ok := idLikeColumn(parts.Table, rowByName)
		if !ok {
			return fmt.Errorf("no id-like column found for table %s", parts.Table)
		}
		idVal := rowByName[idCol]
		if idVal == nil {
			return fmt.Errorf("id-like column %s is null for table %s", idCol, parts.Table)
		}
		idCastAs := ""
		for i, name := range columnNames {
			if name == idCol {
				idCastAs = columns[i].CastAs
				break
			}
		}
		if err := imp.DB.DeleteByColumn(parts.Table, idCol, *idVal, idCastAs); err != nil {
			return fmt.Errorf("deleting existing row: %w", err)
		}
		if err := imp.DB.InsertRow(parts.Table, columns, values); err != nil {
			return fmt.Errorf("inserting row: %w", err)
		}
	}

	return nil
}

// truncateForLog bounds how much of a decoded artifact body reaches the
// debug log, so that large files don't flood it.
const maxLoggedBodyBytes = 512

func truncateForLog(body string) string {
	if len(body) <= maxLoggedBodyBytes {
		return body
	}
	return body[:maxLoggedBodyBytes] + "..."
}

// readGzipFile fully buffers and decompresses path, matching the
// reference implementation's fully-buffered (non-streaming) decode.
func readGzipFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", err
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
