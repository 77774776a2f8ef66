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

package canvasapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sapcc/go-bits/logg"
)

const (
	apiHost    = "portal.inshosteddata.com"
	apiBaseURL = "https://" + apiHost
	contentType = "application/json"
)

// historicalRefreshPattern matches filenames that belong to the "requests"
// table dump, used to detect a historical-refresh-only dump.
var historicalRefreshPattern = regexp.MustCompile(`^requests.*?$`)

// Client talks to the Canvas Data HTTPS API. The zero value is not usable;
// construct with New.
type Client struct {
	apiKey    string
	apiSecret string
	http      *http.Client

	// nowFunc is overridden in tests to make Date-header and auth-header
	// computation deterministic.
	nowFunc func() time.Time
}

// New constructs a Client authenticating with the given API key/secret pair.
func New(apiKey, apiSecret string) *Client {
	return &Client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{},
		nowFunc:   time.Now,
	}
}

// OverrideNowFunc replaces the clock used for Date-header computation. For
// use in tests only.
func (c *Client) OverrideNowFunc(f func() time.Time) {
	c.nowFunc = f
}

// currentDate renders the clock in the millisecond-precision UTC format the
// Canvas Data API requires for both the Date header and the signing string.
func (c *Client) currentDate() string {
	return c.nowFunc().UTC().Format("2006-01-02T15:04:05.000Z")
}

// computeAuthHeader computes the value of the Authorization header for a
// request. The secret is deliberately included both as the HMAC key and as
// the final line of the signed string; this duplication is part of the
// vendor's scheme and must be reproduced exactly.
func (c *Client) computeAuthHeader(method, host, contentType, contentMD5, path, query, date string) string {
	preSign := strings.Join([]string{
		method, host, contentType, contentMD5, path, query, date, c.apiSecret,
	}, "\n")

	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(preSign))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("HMACAuth %s:%s", c.apiKey, sig)
}

// NetworkError wraps a transport-level failure (connection refused, DNS,
// TLS, a non-2xx status code).
type NetworkError struct{ Inner error }

func (e *NetworkError) Error() string { return fmt.Sprintf("canvasapi: network error: %s", e.Inner) }
func (e *NetworkError) Unwrap() error  { return e.Inner }

// DecodeError wraps a JSON-decoding failure of a well-formed HTTP response.
type DecodeError struct{ Inner error }

func (e *DecodeError) Error() string { return fmt.Sprintf("canvasapi: decode error: %s", e.Inner) }
func (e *DecodeError) Unwrap() error  { return e.Inner }

// get issues an authenticated GET against path (which must start with "/")
// and decodes the JSON response body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	date := c.currentDate()
	authHeader := c.computeAuthHeader("GET", apiHost, contentType, "", path, "", date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBaseURL+path, nil)
	if err != nil {
		return &NetworkError{Inner: err}
	}
	req.Header.Set("Date", date)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader)

	logg.Debug("canvasapi: GET %s", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Inner: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Inner: fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Inner: err}
	}
	return nil
}

// ListDumps fetches the full list of dumps visible to this account.
func (c *Client) ListDumps(ctx context.Context) ([]Dump, error) {
	var dumps []Dump
	if err := c.get(ctx, "/api/account/self/dump", &dumps); err != nil {
		return nil, err
	}
	return dumps, nil
}

// GetLatestSchema fetches the current schema definition.
func (c *Client) GetLatestSchema(ctx context.Context) (*Schema, error) {
	var schema Schema
	if err := c.get(ctx, "/api/schema/latest", &schema); err != nil {
		return nil, err
	}
	return &schema, nil
}

// FindTableDef fetches the latest schema and returns the table definition
// whose lower-cased TableName equals name, or nil if there is none.
func (c *Client) FindTableDef(ctx context.Context, name string) (*TableDef, error) {
	schema, err := c.GetLatestSchema(ctx)
	if err != nil {
		return nil, err
	}
	for _, def := range schema.Tables {
		if strings.ToLower(def.TableName) == name {
			result := def
			return &result, nil
		}
	}
	return nil, nil
}

// ListFiles fetches the list of downloadable artifacts for a dump.
func (c *Client) ListFiles(ctx context.Context, dumpID string) (*FilesInDump, error) {
	path := "/api/account/self/file/byDump/" + dumpID
	var files FilesInDump
	if err := c.get(ctx, path, &files); err != nil {
		return nil, err
	}
	return &files, nil
}

// IsHistoricalRefresh reports whether every filename across every artifact
// in resp matches the "requests" table naming convention.
func IsHistoricalRefresh(resp *FilesInDump) bool {
	for _, artifact := range resp.ArtifactsByTable {
		for _, file := range artifact.Files {
			if !historicalRefreshPattern.MatchString(file.Filename) {
				return false
			}
		}
	}
	return true
}

// Download streams the body of a file URL to w. The URL is used verbatim;
// no auth header is added, matching the vendor's pre-signed download links.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{Inner: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Inner: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Inner: fmt.Errorf("unexpected status %d downloading %s", resp.StatusCode, url)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &NetworkError{Inner: err}
	}
	return nil
}
