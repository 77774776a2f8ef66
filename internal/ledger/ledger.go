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

// Package ledger is the durable progress store: a crash-safe map from dump
// ID to processing status, plus the latest schema version seen by the
// previous run (recorded whether or not that run's dumps succeeded). It is backed by a single embedded BoltDB file so
// that restarts pick up exactly where a previous run left off.
package ledger

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// Status is the recognized value of a dump_processed_<id> entry.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSuccessful Status = "successful"
	StatusFailure    Status = "failure"
	StatusOutOfDate  Status = "out-of-date"
)

var bucketName = []byte("dump_status")

const lastVersionKey = "last_version_processed"

// Err wraps any failure to read or write the progress store.
type Err struct{ Inner error }

func (e *Err) Error() string { return fmt.Sprintf("ledger: %s", e.Inner) }
func (e *Err) Unwrap() error  { return e.Inner }

// Ledger is a durable key-value store recording per-dump outcomes.
type Ledger struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the BoltDB file at path.
func Open(path string) (*Ledger, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, &Err{Inner: err}
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &Err{Inner: err}
	}
	return &Ledger{db: db}, nil
}

// Close releases the underlying BoltDB file.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func dumpKey(dumpID string) []byte {
	return []byte("dump_processed_" + dumpID)
}

// Status returns the recorded status for a dump, or "" if there is none.
func (l *Ledger) Status(dumpID string) (Status, error) {
	var value Status
	err := l.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get(dumpKey(dumpID))
		if raw != nil {
			value = Status(raw)
		}
		return nil
	})
	if err != nil {
		return "", &Err{Inner: err}
	}
	return value, nil
}

// SetStatus records the status for a dump.
func (l *Ledger) SetStatus(dumpID string, status Status) error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(dumpKey(dumpID), []byte(status))
	})
	if err != nil {
		return &Err{Inner: err}
	}
	return nil
}

// LastVersionProcessed returns the schema version recorded from the
// previous run, or "" if this is the first run.
func (l *Ledger) LastVersionProcessed() (string, error) {
	var value string
	err := l.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(lastVersionKey))
		if raw != nil {
			value = string(raw)
		}
		return nil
	})
	if err != nil {
		return "", &Err{Inner: err}
	}
	return value, nil
}

// SetLastVersionProcessed records the schema version just processed.
func (l *Ledger) SetLastVersionProcessed(version string) error {
	err := l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(lastVersionKey), []byte(version))
	})
	if err != nil {
		return &Err{Inner: err}
	}
	return nil
}
