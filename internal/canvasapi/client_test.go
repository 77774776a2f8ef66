package canvasapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestComputeAuthHeader(t *testing.T) {
	c := New("key123", "sekrit")

	got := c.computeAuthHeader("GET", apiHost, contentType, "", "/api/account/self/dump", "", "2024-01-02T03:04:05.006Z")

	preSign := strings.Join([]string{
		"GET", apiHost, contentType, "", "/api/account/self/dump", "", "2024-01-02T03:04:05.006Z", "sekrit",
	}, "\n")
	mac := hmac.New(sha256.New, []byte("sekrit"))
	mac.Write([]byte(preSign))
	want := fmt.Sprintf("HMACAuth key123:%s", base64.StdEncoding.EncodeToString(mac.Sum(nil)))

	if got != want {
		t.Errorf("computeAuthHeader() = %q, want %q", got, want)
	}
}

func TestCurrentDateFormat(t *testing.T) {
	c := New("k", "s")
	fixed := time.Date(2024, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	c.OverrideNowFunc(func() time.Time { return fixed })

	got := c.currentDate()
	want := "2024-03-04T05:06:07.890Z"
	if got != want {
		t.Errorf("currentDate() = %q, want %q", got, want)
	}
}

func TestIsHistoricalRefresh(t *testing.T) {
	allRequests := &FilesInDump{
		ArtifactsByTable: map[string]ArtifactByTable{
			"requests": {
				Files: []BasicFile{{Filename: "requests-00001-abcd.gz"}, {Filename: "requests-00002-efgh.gz"}},
			},
		},
	}
	if !IsHistoricalRefresh(allRequests) {
		t.Error("expected an all-requests dump to be a historical refresh")
	}

	mixed := &FilesInDump{
		ArtifactsByTable: map[string]ArtifactByTable{
			"requests": {Files: []BasicFile{{Filename: "requests-00001-abcd.gz"}}},
			"users":    {Files: []BasicFile{{Filename: "users-00001-wxyz.gz"}}},
		},
	}
	if IsHistoricalRefresh(mixed) {
		t.Error("expected a mixed dump not to be a historical refresh")
	}
}
