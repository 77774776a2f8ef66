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

// Package loader wires together the API client, progress ledger, backend
// and importer into the Run Controller: the strictly sequential, oldest-
// dump-first driver of the whole pipeline.
package loader

import (
	"context"
	"sort"

	"github.com/sapcc/go-bits/logg"

	"github.com/instructure/canvas-data-loader/internal/canvasapi"
	"github.com/instructure/canvas-data-loader/internal/ledger"
)

// API is the subset of *canvasapi.Client the controller needs.
type API interface {
	ListDumps(ctx context.Context) ([]canvasapi.Dump, error)
	GetLatestSchema(ctx context.Context) (*canvasapi.Schema, error)
	ListFiles(ctx context.Context, dumpID string) (*canvasapi.FilesInDump, error)
}

// Ledger is the subset of *ledger.Ledger the controller needs.
type Ledger interface {
	Status(dumpID string) (Status, error)
	SetStatus(dumpID string, status Status) error
	LastVersionProcessed() (string, error)
	SetLastVersionProcessed(version string) error
}

// Status is an alias of ledger.Status so callers can satisfy the Ledger
// interface with a *ledger.Ledger directly, without an adapter type.
type Status = ledger.Status

const (
	StatusInProgress = ledger.StatusInProgress
	StatusSuccessful = ledger.StatusSuccessful
	StatusFailure    = ledger.StatusFailure
	StatusOutOfDate  = ledger.StatusOutOfDate
)

// Importer is the subset of *importer.Importer the controller needs.
type Importer interface {
	Process(ctx context.Context, dumpID string, allVolatile bool) error
}

// Controller drives the per-dump state machine described by the run
// controller design: iterate dumps oldest-first, consult the ledger, drive
// the importer, and record the outcome.
type Controller struct {
	API      API
	Ledger   Ledger
	Importer Importer
	Config   Configuration
}

// New constructs a Controller.
func New(api API, ledgerStore Ledger, imp Importer, cfg Configuration) *Controller {
	return &Controller{API: api, Ledger: ledgerStore, Importer: imp, Config: cfg}
}

// Run iterates every known dump in ascending creation order, skipping dumps
// that are unfinished, already processed, or out of date, and otherwise
// driving the importer to load it. It returns an error if any dump in this
// run ended in failure.
func (c *Controller) Run(ctx context.Context) error {
	dumps, err := c.API.ListDumps(ctx)
	if err != nil {
		return Wrap(KindNetwork, err)
	}
	latest, err := c.API.GetLatestSchema(ctx)
	if err != nil {
		return Wrap(KindNetwork, err)
	}
	lastVersionProcessed, err := c.Ledger.LastVersionProcessed()
	if err != nil {
		return Wrap(KindLedger, err)
	}

	sort.Slice(dumps, func(i, j int) bool { return dumps[i].CreatedAt.Before(dumps[j].CreatedAt) })
	if c.Config.OnlyLoadFinal && len(dumps) > 1 {
		dumps = dumps[len(dumps)-1:]
	}

	schemaChanged := lastVersionProcessed != "" && lastVersionProcessed != latest.Version
	anyFailed := false

	for _, dump := range dumps {
		if anyFailed {
			if err := c.Ledger.SetStatus(dump.DumpID, StatusFailure); err != nil {
				return Wrap(KindLedger, err)
			}
			continue
		}

		if !dump.Finished {
			continue
		}

		status, err := c.Ledger.Status(dump.DumpID)
		if err != nil {
			return Wrap(KindLedger, err)
		}
		if status == StatusSuccessful || status == StatusOutOfDate {
			continue
		}

		if dump.SchemaVersion != latest.Version {
			if err := c.Ledger.SetStatus(dump.DumpID, StatusOutOfDate); err != nil {
				return Wrap(KindLedger, err)
			}
			continue
		}

		files, err := c.API.ListFiles(ctx, dump.DumpID)
		if err != nil {
			logg.Error("loader: could not list files for dump %s: %s", dump.DumpID, err.Error())
			if err := c.Ledger.SetStatus(dump.DumpID, StatusFailure); err != nil {
				return Wrap(KindLedger, err)
			}
			anyFailed = true
			continue
		}
		if c.Config.SkipHistoricalImports && canvasapi.IsHistoricalRefresh(files) {
			if err := c.Ledger.SetStatus(dump.DumpID, StatusSuccessful); err != nil {
				return Wrap(KindLedger, err)
			}
			continue
		}

		if err := c.Ledger.SetStatus(dump.DumpID, StatusInProgress); err != nil {
			return Wrap(KindLedger, err)
		}

		allVolatile := c.Config.AllTablesVolatile || schemaChanged
		processErr := c.Importer.Process(ctx, dump.DumpID, allVolatile)
		if processErr != nil {
			logg.Error("loader: dump %s failed: %s", dump.DumpID, processErr.Error())
			if err := c.Ledger.SetStatus(dump.DumpID, StatusFailure); err != nil {
				return Wrap(KindLedger, err)
			}
			anyFailed = true
			continue
		}
		if err := c.Ledger.SetStatus(dump.DumpID, StatusSuccessful); err != nil {
			return Wrap(KindLedger, err)
		}
	}

	if err := c.Ledger.SetLastVersionProcessed(latest.Version); err != nil {
		return Wrap(KindLedger, err)
	}

	if anyFailed {
		return Wrap(KindImportFailed, ErrRunHadFailures)
	}
	return nil
}
