package snapshot

import (
	"testing"
	"time"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	first := Snapshot{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Node:      "solver",
		Status:    "conjecture_generated",
		Lemmas: []LemmaRecord{
			{ID: 0, Statement: "s0", Proof: "p0", Status: lemma.StatusPending},
		},
	}
	second := Snapshot{
		Timestamp: first.Timestamp.Add(time.Second),
		Node:      "verifier",
		Status:    "conjecture_verified",
		Lemmas: []LemmaRecord{
			{ID: 0, Statement: "s0", Proof: "p0", Status: lemma.StatusVerified, VerifyRound: 1},
		},
	}

	if err := store.Append("run-1", first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append("run-1", second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snaps, err := store.List("run-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len(snaps) = %d, want 2", len(snaps))
	}
	if snaps[0].Node != "solver" || snaps[1].Node != "verifier" {
		t.Errorf("nodes = %s, %s", snaps[0].Node, snaps[1].Node)
	}
	if snaps[1].Lemmas[0].Status != lemma.StatusVerified {
		t.Errorf("status = %s, want verified", snaps[1].Lemmas[0].Status)
	}
}

func TestFileStoreSessionsAreIsolated(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	if err := store.Append("run-a", Snapshot{Node: "solver"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	snaps, err := store.List("run-b")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("len(snaps) = %d, want 0 for an unused session", len(snaps))
	}
}

func TestSessionRecord(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer store.Close()

	session := NewSession(store, "run-1")
	session.Record("solver", "conjecture_generated", []lemma.Lemma{
		{Statement: "s", Proof: "p", Status: lemma.StatusPending, Dependencies: nil},
	})

	snaps, err := store.List("run-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}
	if snaps[0].Lemmas[0].ID != 0 || snaps[0].Lemmas[0].Statement != "s" {
		t.Errorf("record = %+v", snaps[0].Lemmas[0])
	}
	if snaps[0].Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestNilSessionIsSafe(t *testing.T) {
	var session *Session
	session.Record("solver", "anything", nil)

	if s := NewSession(nil, "run-1"); s != nil {
		t.Error("NewSession(nil, ...) should yield a nil session")
	}
}

func TestNewStoreDisabled(t *testing.T) {
	store, err := NewStore(config.SnapshotConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if store != nil {
		t.Error("disabled config must yield a nil store")
	}
}
