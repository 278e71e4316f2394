// Package ledger holds the candidate's in-memory answers and turns them into
// a scored submission.
package ledger

import (
	"errors"
	"sort"
)

// ErrFrozen is returned when an answer is recorded after the session finished.
var ErrFrozen = errors.New("ledger is frozen")

// Ledger maps question ids to the candidate's current response.
// It is not safe for concurrent use; the session loop owns it.
type Ledger struct {
	answers map[string]string
	frozen  bool
}

// New returns an empty, writable ledger.
func New() *Ledger {
	return &Ledger{answers: make(map[string]string)}
}

// Record stores value for questionID, overwriting any earlier answer.
// The value is not validated.
func (l *Ledger) Record(questionID, value string) error {
	if l.frozen {
		return ErrFrozen
	}
	l.answers[questionID] = value
	return nil
}

// Get returns the answer for questionID and whether one was recorded.
func (l *Ledger) Get(questionID string) (string, bool) {
	v, ok := l.answers[questionID]
	return v, ok
}

// Len is the number of answered questions.
func (l *Ledger) Len() int {
	return len(l.answers)
}

// Reset clears all answers and makes the ledger writable again.
func (l *Ledger) Reset() {
	l.answers = make(map[string]string)
	l.frozen = false
}

// Freeze disallows further Record calls.
func (l *Ledger) Freeze() {
	l.frozen = true
}

// Frozen reports whether the ledger accepts writes.
func (l *Ledger) Frozen() bool {
	return l.frozen
}

// Snapshot returns a copy of the answers.
func (l *Ledger) Snapshot() map[string]string {
	out := make(map[string]string, len(l.answers))
	for k, v := range l.answers {
		out[k] = v
	}
	return out
}

// IDs returns the answered question ids in lexical order.
func (l *Ledger) IDs() []string {
	ids := make([]string, 0, len(l.answers))
	for id := range l.answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
