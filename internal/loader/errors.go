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
	"fmt"
)

// Kind is the closed set of error categories the run controller
// distinguishes when logging and deciding ledger outcomes.
type Kind string

const (
	KindInvalidType   Kind = "InvalidType"
	KindBackendErr    Kind = "BackendErr"
	KindNetwork       Kind = "Network"
	KindDecode        Kind = "Decode"
	KindFileIO        Kind = "FileIO"
	KindImportFailed  Kind = "ImportFailed"
	KindLedger        Kind = "Ledger"
)

// Error is a Kind-tagged wrapper around an underlying cause, in the same
// spirit as a typed error code carrying an optional inner error.
type Error struct {
	Kind  Kind
	Inner error
}

func (e *Error) Error() string {
	if e.Inner == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Inner)
}

func (e *Error) Unwrap() error { return e.Inner }

// Wrap tags err with kind, or returns nil if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Inner: err}
}

// ErrRunHadFailures is the sentinel wrapped by Controller.Run when one or
// more dumps in the run ended in failure, even though the run itself
// completed (every dump was visited and last_version_processed was
// updated).
var ErrRunHadFailures = errors.New("loader: one or more dumps failed during this run")
