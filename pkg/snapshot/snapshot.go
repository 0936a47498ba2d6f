// Package snapshot persists workflow progress: after each node
// transition a snapshot of the lemma pool is appended to a session,
// backed by either a JSON file per session or a SQL table. Snapshot
// writes are best-effort; failures are logged and never reach the
// workflow.
package snapshot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
)

// LemmaRecord is one lemma as persisted in a snapshot.
type LemmaRecord struct {
	ID           int          `json:"id"`
	Statement    string       `json:"statement"`
	Proof        string       `json:"proof"`
	Dependencies []int        `json:"dependencies,omitempty"`
	Status       lemma.Status `json:"status"`
	Review       string       `json:"review,omitempty"`
	IsTheorem    bool         `json:"is_theorem"`
	VerifyRound  int          `json:"verify_round"`
}

// Snapshot is the pool state after one node transition.
type Snapshot struct {
	Timestamp time.Time     `json:"timestamp"`
	Node      string        `json:"node"`
	Status    string        `json:"status"`
	Lemmas    []LemmaRecord `json:"lemmas"`
}

// Store persists snapshot sessions.
type Store interface {
	// Append adds one snapshot to the named session.
	Append(sessionID string, snap Snapshot) error

	// List returns a session's snapshots in append order.
	List(sessionID string) ([]Snapshot, error)

	Close() error
}

// NewStore builds the configured store. Disabled config returns a nil
// store; callers treat nil as "no snapshots".
func NewStore(cfg config.SnapshotConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case config.SnapshotBackendSQL:
		return NewSQLStore(cfg.Database)
	case config.SnapshotBackendFile, "":
		return NewFileStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}

// Session binds a store to one worker run. It satisfies the workflow's
// recorder contract; Record never fails the caller.
type Session struct {
	store Store
	id    string
}

// NewSession opens a recording session. A nil store yields a nil
// session, which the workflow treats as recording disabled.
func NewSession(store Store, id string) *Session {
	if store == nil {
		return nil
	}
	return &Session{store: store, id: id}
}

// Record appends a snapshot of the given pool view.
func (s *Session) Record(node string, status string, lemmas []lemma.Lemma) {
	if s == nil {
		return
	}

	records := make([]LemmaRecord, len(lemmas))
	for i := range lemmas {
		records[i] = LemmaRecord{
			ID:           i,
			Statement:    lemmas[i].Statement,
			Proof:        lemmas[i].Proof,
			Dependencies: lemmas[i].Dependencies,
			Status:       lemmas[i].Status,
			Review:       lemmas[i].Review,
			IsTheorem:    lemmas[i].IsTheorem,
			VerifyRound:  lemmas[i].VerifyRound,
		}
	}

	snap := Snapshot{
		Timestamp: time.Now().UTC(),
		Node:      node,
		Status:    status,
		Lemmas:    records,
	}
	if err := s.store.Append(s.id, snap); err != nil {
		slog.Warn("Snapshot write failed", "session", s.id, "node", node, "error", err)
	}
}
