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

package main

import (
	"os"

	"github.com/sapcc/go-bits/logg"
	"github.com/spf13/cobra"

	runcmd "github.com/instructure/canvas-data-loader/cmd/run"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

func main() {
	logg.ShowDebug = os.Getenv("CDL_DEBUG") == "true"

	rootCmd := &cobra.Command{
		Use:     "canvas-data-loader",
		Short:   "Incremental loader for Canvas Data dumps",
		Long:    "canvas-data-loader fetches Canvas Data dumps over the vendor HTTPS API and loads them incrementally into a relational warehouse.",
		Version: version,
		Args:    cobra.NoArgs,
		Run:     runcmd.Run,
	}
	runcmd.AddCommandTo(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logg.Fatal(err.Error())
	}
}
