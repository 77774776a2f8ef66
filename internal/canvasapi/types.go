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

// Package canvasapi is a client for the Canvas Data HTTPS API: listing
// dumps, fetching the table schema, and listing a dump's downloadable
// artifacts.
package canvasapi

import "time"

// Dump describes one entry from the list-dumps endpoint.
type Dump struct {
	DumpID        string    `json:"dumpId"`
	Sequence      int64     `json:"sequence"`
	AccountID     string    `json:"accountId"`
	NumFiles      int64     `json:"numFiles"`
	Finished      bool      `json:"finished"`
	Expires       int64     `json:"expires"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CreatedAt     time.Time `json:"createdAt"`
	SchemaVersion string    `json:"schemaVersion"`
}

// Schema is the versioned table catalogue returned by /api/schema/latest.
type Schema struct {
	Version string               `json:"version"`
	Tables  map[string]TableDef  `json:"schema"`
}

// TableDef describes one table in a Schema.
type TableDef struct {
	DWType      string      `json:"dw_type"`
	Description *string     `json:"description,omitempty"`
	Hints       map[string]string `json:"hints"`
	Incremental bool        `json:"incremental"`
	TableName   string      `json:"tableName"`
	Columns     []ColumnDef `json:"columns"`
}

// ColumnDef describes one column within a TableDef. Field order within the
// enclosing TableDef.Columns slice is significant: it defines TSV column
// order for that table.
type ColumnDef struct {
	Type        string             `json:"type"`
	Description *string            `json:"description,omitempty"`
	Name        string             `json:"name"`
	Length      *int64             `json:"length,omitempty"`
	Dimension   *DimensionDef      `json:"dimension,omitempty"`
}

// DimensionDef carries optional dimension-reference metadata for a column.
type DimensionDef struct {
	Name string  `json:"name"`
	ID   string  `json:"id"`
	Role *string `json:"role,omitempty"`
}

// FilesInDump is the response from /api/account/self/file/byDump/<id>.
type FilesInDump struct {
	AccountID        string                     `json:"accountId"`
	Expires          int64                      `json:"expires"`
	Sequence         int64                      `json:"sequence"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
	SchemaVersion    string                     `json:"schemaVersion"`
	NumFiles         int64                      `json:"numFiles"`
	CreatedAt        time.Time                  `json:"createdAt"`
	DumpID           string                     `json:"dumpId"`
	Finished         bool                       `json:"finished"`
	ArtifactsByTable map[string]ArtifactByTable `json:"artifactsByTable"`
}

// ArtifactByTable is the list of files backing one table within a dump.
type ArtifactByTable struct {
	TableName string       `json:"tableName"`
	Partial   bool         `json:"partial"`
	Files     []BasicFile  `json:"files"`
}

// BasicFile is a single downloadable file: its source URL and the filename
// it should be saved under.
type BasicFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}
