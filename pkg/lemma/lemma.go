// Package lemma provides the shared lemma graph: the typed lemma
// record, validation against the graph invariants, reasoning-path
// traversal, and the append-only pool workers share.
package lemma

import (
	"fmt"
	"strings"

	"github.com/alphasolve/alphasolve/pkg/llm"
)

// Status is the lifecycle state of a lemma.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// Lemma is one entry of the lemma graph. Its id is its position in the
// pool; dependencies always point at strictly earlier entries.
type Lemma struct {
	Statement       string        `json:"statement"`
	Proof           string        `json:"proof"`
	Dependencies    []int         `json:"dependencies,omitempty"`
	Status          Status        `json:"status"`
	Review          string        `json:"review,omitempty"`
	IsTheorem       bool          `json:"is_theorem"`
	HistoryMessages []llm.Message `json:"history_messages,omitempty"`
	VerifyRound     int           `json:"verify_round"`
}

// Validate checks a lemma against the graph invariants for the given
// id: a non-empty statement, a known status, strictly backward
// dependencies, and a non-negative verify round.
func Validate(l *Lemma, id int) error {
	if l == nil {
		return fmt.Errorf("lemma %d is nil", id)
	}
	if strings.TrimSpace(l.Statement) == "" {
		return fmt.Errorf("lemma %d has an empty statement", id)
	}
	switch l.Status {
	case StatusPending, StatusVerified, StatusRejected:
	default:
		return fmt.Errorf("lemma %d has unknown status %q", id, l.Status)
	}
	for _, dep := range l.Dependencies {
		if dep < 0 || dep >= id {
			return fmt.Errorf("lemma %d has illegal dependency %d (want 0 <= dep < %d)", id, dep, id)
		}
	}
	if l.VerifyRound < 0 {
		return fmt.Errorf("lemma %d has negative verify_round %d", id, l.VerifyRound)
	}
	return nil
}

// clone returns a deep copy safe to hand across goroutines.
func (l *Lemma) clone() Lemma {
	c := *l
	if l.Dependencies != nil {
		c.Dependencies = append([]int(nil), l.Dependencies...)
	}
	c.HistoryMessages = llm.CloneMessages(l.HistoryMessages)
	return c
}
