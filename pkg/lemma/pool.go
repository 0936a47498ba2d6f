package lemma

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alphasolve/alphasolve/pkg/llm"
)

// Pool is the append-only lemma container shared across workers.
// Appends are the only cross-worker write; readers receive deep copies
// and bound their scans to the length observed at entry, so they
// tolerate the pool growing underneath them.
type Pool struct {
	mu     sync.RWMutex
	lemmas []Lemma
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{}
}

// NewPoolFrom returns a pool seeded with deep copies of the given
// lemmas. Used by the private sharing mode, where each worker starts
// from its own copy of the pool.
func NewPoolFrom(view []Lemma) *Pool {
	p := &Pool{lemmas: make([]Lemma, 0, len(view))}
	for i := range view {
		p.lemmas = append(p.lemmas, view[i].clone())
	}
	return p
}

// Append validates the lemma against its prospective id and appends a
// deep copy, returning the new id. An empty status defaults to
// pending.
func (p *Pool) Append(l *Lemma) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("cannot append nil lemma")
	}
	c := l.clone()
	if c.Status == "" {
		c.Status = StatusPending
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := len(p.lemmas)
	if err := Validate(&c, id); err != nil {
		return 0, err
	}
	p.lemmas = append(p.lemmas, c)
	return id, nil
}

// Get returns a deep copy of the lemma at id.
func (p *Pool) Get(id int) (Lemma, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if id < 0 || id >= len(p.lemmas) {
		return Lemma{}, false
	}
	return p.lemmas[id].clone(), true
}

// Len returns the number of lemmas currently in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.lemmas)
}

// Snapshot returns deep copies of the first n lemmas. A negative n, or
// one beyond the current length, snapshots the whole pool.
func (p *Pool) Snapshot(n int) []Lemma {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if n < 0 || n > len(p.lemmas) {
		n = len(p.lemmas)
	}
	view := make([]Lemma, 0, n)
	for i := 0; i < n; i++ {
		view = append(view, p.lemmas[i].clone())
	}
	return view
}

// VerifiedIDs returns the ids of all verified lemmas in ascending
// order.
func (p *Pool) VerifiedIDs() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var ids []int
	for i := range p.lemmas {
		if p.lemmas[i].Status == StatusVerified {
			ids = append(ids, i)
		}
	}
	return ids
}

// SetStatus applies a legal status transition. Pending lemmas may move
// to any status; verified and rejected lemmas only re-assert
// themselves.
func (p *Pool) SetStatus(id int, s Status) error {
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
	default:
		return fmt.Errorf("unknown status %q", s)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return err
	}
	if l.Status != s && l.Status != StatusPending {
		return fmt.Errorf("illegal status transition %s -> %s for lemma %d", l.Status, s, id)
	}
	l.Status = s
	return nil
}

// SetReview stores the verifier's review text for the lemma. An empty
// string clears it.
func (p *Pool) SetReview(id int, review string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return err
	}
	l.Review = review
	return nil
}

// SetStatementProof replaces the statement and proof together. The
// statement must stay non-empty.
func (p *Pool) SetStatementProof(id int, statement, proof string) error {
	if strings.TrimSpace(statement) == "" {
		return fmt.Errorf("lemma %d statement cannot be empty", id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return err
	}
	l.Statement = statement
	l.Proof = proof
	return nil
}

// SetHistory replaces the stored conversation transcript with a deep
// copy of msgs.
func (p *Pool) SetHistory(id int, msgs []llm.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return err
	}
	l.HistoryMessages = llm.CloneMessages(msgs)
	return nil
}

// IncVerifyRound bumps the verify counter and returns the new value.
func (p *Pool) IncVerifyRound(id int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return 0, err
	}
	l.VerifyRound++
	return l.VerifyRound, nil
}

// SetTheorem flags whether the lemma's statement answers the original
// problem.
func (p *Pool) SetTheorem(id int, isTheorem bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, err := p.at(id)
	if err != nil {
		return err
	}
	l.IsTheorem = isTheorem
	return nil
}

// at returns a pointer into the backing slice; callers hold p.mu.
func (p *Pool) at(id int) (*Lemma, error) {
	if id < 0 || id >= len(p.lemmas) {
		return nil, fmt.Errorf("lemma %d out of range (pool has %d)", id, len(p.lemmas))
	}
	return &p.lemmas[id], nil
}
