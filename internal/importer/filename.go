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

package importer

import "strings"

// fileNameParts is the decomposition of a downloaded artifact filename of
// the form "<table>-<shard>-<hash>.<ext>".
type fileNameParts struct {
	Table string
	Shard string
	Hash  string
	Ext   string
}

// parseFileName splits a filename into its table/shard/hash/extension
// parts. It returns ok=false for any filename that doesn't have exactly
// three dash-separated segments, or whose third segment has no dot -
// such filenames are ignored rather than treated as an error.
func parseFileName(name string) (parts fileNameParts, ok bool) {
	segments := strings.Split(name, "-")
	if len(segments) != 3 {
		return fileNameParts{}, false
	}
	hashAndExt := strings.SplitN(segments[2], ".", 2)
	if len(hashAndExt) != 2 {
		return fileNameParts{}, false
	}
	return fileNameParts{
		Table: segments[0],
		Shard: segments[1],
		Hash:  hashAndExt[0],
		Ext:   hashAndExt[1],
	}, true
}

// idLikeColumn implements the id-like-column resolution heuristic: prefer a
// literal "id" column; otherwise strip the table name back to (but not
// including) its last underscore and look for "<prefix>_id"; failing that,
// strip one more underscore-delimited segment and look again.
func idLikeColumn(table string, columns map[string]*string) (string, bool) {
	if _, ok := columns["id"]; ok {
		return "id", true
	}

	prefix, ok := cutToLastUnderscore(table)
	if !ok {
		return "", false
	}
	if candidate := prefix + "_id"; columnExists(columns, candidate) {
		return candidate, true
	}

	prefix2, ok := cutToLastUnderscore(prefix)
	if !ok {
		return "", false
	}
	if candidate := prefix2 + "_id"; columnExists(columns, candidate) {
		return candidate, true
	}

	return "", false
}

func columnExists(columns map[string]*string, name string) bool {
	_, ok := columns[name]
	return ok
}

func cutToLastUnderscore(s string) (string, bool) {
	idx := strings.LastIndex(s, "_")
	if idx < 0 {
		return "", false
	}
	return s[:idx], true
}
