package ledger

import (
	"path/filepath"
	"testing"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	path := filepath.Join(t.TempDir(), "progress.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestStatusRoundTrip(t *testing.T) {
	l := openTestLedger(t)

	status, err := l.Status("dump-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "" {
		t.Fatalf("expected empty status for unseen dump, got %q", status)
	}

	if err := l.SetStatus("dump-1", StatusInProgress); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	status, err = l.Status("dump-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusInProgress {
		t.Fatalf("Status() = %q, want %q", status, StatusInProgress)
	}

	if err := l.SetStatus("dump-1", StatusSuccessful); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	status, _ = l.Status("dump-1")
	if status != StatusSuccessful {
		t.Fatalf("Status() = %q, want %q", status, StatusSuccessful)
	}
}

func TestLastVersionProcessedSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.db")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.SetLastVersionProcessed("v2"); err != nil {
		t.Fatalf("SetLastVersionProcessed: %v", err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	version, err := l2.LastVersionProcessed()
	if err != nil {
		t.Fatalf("LastVersionProcessed: %v", err)
	}
	if version != "v2" {
		t.Fatalf("LastVersionProcessed() = %q, want %q", version, "v2")
	}
}
