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

// Package runcmd implements the "run" subcommand: a single pass over every
// known Canvas Data dump, loading anything new into the configured backend.
package runcmd

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/httpee"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/spf13/cobra"

	"github.com/instructure/canvas-data-loader/internal/backend"
	_ "github.com/instructure/canvas-data-loader/internal/backend/mysql"
	_ "github.com/instructure/canvas-data-loader/internal/backend/postgres"
	"github.com/instructure/canvas-data-loader/internal/cache"
	"github.com/instructure/canvas-data-loader/internal/canvasapi"
	"github.com/instructure/canvas-data-loader/internal/importer"
	"github.com/instructure/canvas-data-loader/internal/ledger"
	"github.com/instructure/canvas-data-loader/internal/loader"
)

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single incremental load pass over all known dumps.",
		Long:  "Run a single incremental load pass over all known dumps. Configuration is read from config/default.{yaml,json,...}, an optional config/local override, and CDL_-prefixed environment variables.",
		Args:  cobra.NoArgs,
		Run:   Run,
	}
	parent.AddCommand(cmd)
}

// Run performs a single incremental load pass over all known dumps. It is
// the cobra handler for the "run" subcommand, and is also invoked directly
// by the root command so that a no-argument invocation of the binary
// performs a run without requiring "run" to be named explicitly.
func Run(cmd *cobra.Command, args []string) {
	logg.Info("starting canvas-data-loader")
	cfg := loader.ParseConfiguration()

	ctx := httpee.ContextWithSIGINT(context.Background())

	api := canvasapi.New(cfg.CanvasDataAPIKey, cfg.CanvasDataAPISecret)

	l := must.Return(ledger.Open(cfg.LedgerLocation))
	defer l.Close()

	db := must.Return(backend.Open(backend.KindFromConfig(cfg.DatabaseType), cfg.DatabaseURL))
	defer db.Close()

	dumpCache := cache.New(api, cfg.SaveLocation)
	imp := importer.New(api, dumpCache, db)
	controller := loader.New(api, l, imp, cfg)

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		logg.Info("listening on %s", cfg.ListenAddress)
		if err := httpee.ListenAndServeContext(ctx, cfg.ListenAddress, nil); err != nil {
			logg.Error("error returned from httpee.ListenAndServeContext(): %s", err.Error())
		}
	}()

	if err := controller.Run(ctx); err != nil {
		logg.Fatal("run finished with errors: %s", err.Error())
	}
	logg.Info("run finished successfully")
}
