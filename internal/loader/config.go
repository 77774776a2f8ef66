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

package loader

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/sapcc/go-bits/logg"
)

// Configuration contains all configuration values needed to run the loader.
// Composition order (later layers win): config/default, optional
// config/local, then CDL_-prefixed environment variables.
type Configuration struct {
	DatabaseURL            string
	DatabaseType           string
	CanvasDataAPIKey       string
	CanvasDataAPISecret    string
	SaveLocation           string
	LedgerLocation         string
	SkipHistoricalImports  bool
	OnlyLoadFinal          bool
	AllTablesVolatile      bool
	ListenAddress          string
}

// ParseConfiguration loads the layered configuration as described above and
// aborts the process if a required value is missing.
func ParseConfiguration() Configuration {
	v := viper.New()
	v.SetConfigName("default")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		logg.Fatal("could not find default configuration file: %s", err.Error())
	}

	local := viper.New()
	local.SetConfigName("local")
	local.AddConfigPath("config")
	if err := local.ReadInConfig(); err == nil {
		if mergeErr := v.MergeConfigMap(local.AllSettings()); mergeErr != nil {
			logg.Fatal("could not merge config/local: %s", mergeErr.Error())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logg.Fatal("could not read config/local: %s", err.Error())
		}
	}

	v.SetEnvPrefix("cdl")
	// Replace dots with underscores for env var mapping, so CDL_DATABASE_URL
	// maps to the nested key "database.url".
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Configuration{
		DatabaseURL:           mustGetString(v, "database.url"),
		DatabaseType:          v.GetString("database.db_type"),
		CanvasDataAPIKey:      mustGetString(v, "canvasdataauth.api_key"),
		CanvasDataAPISecret:   mustGetString(v, "canvasdataauth.api_secret"),
		SaveLocation:          mustGetString(v, "save_location"),
		LedgerLocation:        mustGetString(v, "rocksdb_location"),
		SkipHistoricalImports: v.GetBool("skip_historical_imports"),
		OnlyLoadFinal:         v.GetBool("only_load_final"),
		AllTablesVolatile:     v.GetBool("all_tables_volatile"),
		ListenAddress:         getenvOrDefault("CDL_LISTEN_ADDRESS", ":8080"),
	}
	return cfg
}

// mustGetString is like v.GetString, but aborts with an error message if the
// given configuration key resolves to an empty value.
func mustGetString(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		logg.Fatal("missing required configuration value: %s", key)
	}
	return val
}

// getenvOrDefault is like os.Getenv but it also takes a default value which
// is returned if the given environment variable is missing or empty.
func getenvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		val = defaultVal
	}
	return val
}
