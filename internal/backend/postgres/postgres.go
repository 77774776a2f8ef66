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

// Package postgres implements backend.Backend against PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq" //nolint:revive // registers the "postgres" sql.DB driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sapcc/go-bits/sqlext"

	"github.com/dlmiddlecote/sqlstats"

	"github.com/instructure/canvas-data-loader/internal/backend"
)

func init() {
	backend.Registry.Add(func() backend.Backend { return &Driver{} })
}

// Driver is the PostgreSQL implementation of backend.Backend.
type Driver struct {
	db *sql.DB
}

// PluginTypeID implements backend.Backend (and pluggable.Plugin).
func (d *Driver) PluginTypeID() string { return "postgres" }

// Init opens a bounded connection pool against dsn.
func (d *Driver) Init(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return &backend.Err{Op: "open", Inner: err}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	if err := db.Ping(); err != nil {
		return &backend.Err{Op: "ping", Inner: err}
	}
	prometheus.MustRegister(sqlstats.NewStatsCollector("canvasdataloader", db))
	d.db = db
	return nil
}

// Close implements backend.Backend.
func (d *Driver) Close() error { return d.db.Close() }

// DropTable implements backend.Backend.
func (d *Driver) DropTable(name string) error {
	_, err := d.db.Exec(sqlext.SimplifyWhitespace(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, name)))
	if err != nil {
		return &backend.Err{Op: "drop_table", Inner: err}
	}
	return nil
}

// CreateTable implements backend.Backend.
func (d *Driver) CreateTable(name string, columns []backend.Column) error {
	var defs []string
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%s %s", backend.RewriteReservedColumn(col.Name), col.SQLType))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", name, strings.Join(defs, ",\n"))
	if _, err := d.db.Exec(stmt); err != nil {
		return &backend.Err{Op: "create_table", Inner: err}
	}
	return nil
}

// DeleteByColumn implements backend.Backend.
func (d *Driver) DeleteByColumn(name, column, value, castAs string) error {
	literal := backend.QuoteLiteral(value)
	if castAs != "" {
		literal = literal + "::" + castAs
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s", name, column, literal)
	if _, err := d.db.Exec(stmt); err != nil {
		return &backend.Err{Op: "delete_by_column", Inner: err}
	}
	return nil
}

// InsertRow implements backend.Backend.
func (d *Driver) InsertRow(name string, columns []backend.Column, values []*string) error {
	var names []string
	var literals []string
	for i, col := range columns {
		names = append(names, backend.RewriteReservedColumn(col.Name))
		v := values[i]
		if v == nil {
			literals = append(literals, "NULL")
			continue
		}
		literal := backend.QuoteLiteral(*v)
		if col.CastAs != "" {
			literal = literal + "::" + col.CastAs
		}
		literals = append(literals, literal)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(names, ","), strings.Join(literals, ","))
	if _, err := d.db.Exec(stmt); err != nil {
		return &backend.Err{Op: "insert_row", Inner: err}
	}
	return nil
}
