package model

import (
	"fmt"
	"sync"
)

// FailureKind classifies a per-symbol or per-operation failure.
type FailureKind string

const (
	SourceUnavailable   FailureKind = "source_unavailable"
	InsufficientHistory FailureKind = "insufficient_history"
	Unauthorized        FailureKind = "unauthorized"
)

// Failure describes why one symbol (or one operation, when Symbol is empty) was skipped.
type Failure struct {
	Symbol   string      `json:"ticker,omitempty"`
	Kind     FailureKind `json:"kind"`
	Observed int         `json:"observed,omitempty"`
	Required int         `json:"required,omitempty"`
	Err      error       `json:"-"`
}

func (f Failure) Error() string {
	subject := f.Symbol
	if subject == "" {
		subject = "operation"
	}
	if f.Kind == InsufficientHistory {
		return fmt.Sprintf("%s: insufficient history (%d rows, need %d)", subject, f.Observed, f.Required)
	}
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", subject, f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s", subject, f.Kind)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (f Failure) Unwrap() error { return f.Err }

// BatchReport aggregates failures across one batch; safe for concurrent Add.
type BatchReport struct {
	mu       sync.Mutex
	Failures []Failure `json:"failures"`
}

// Add records a failure.
func (r *BatchReport) Add(f Failure) {
	r.mu.Lock()
	r.Failures = append(r.Failures, f)
	r.mu.Unlock()
}

// Merge appends all failures of other.
func (r *BatchReport) Merge(other *BatchReport) {
	if other == nil {
		return
	}
	other.mu.Lock()
	fs := append([]Failure(nil), other.Failures...)
	other.mu.Unlock()
	r.mu.Lock()
	r.Failures = append(r.Failures, fs...)
	r.mu.Unlock()
}

// Len returns the number of recorded failures.
func (r *BatchReport) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures)
}

// Messages renders every failure as a user-visible line.
func (r *BatchReport) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

// Symbols returns the symbols that failed with kind.
func (r *BatchReport) Symbols(kind FailureKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.Failures {
		if f.Kind == kind && f.Symbol != "" {
			out = append(out, f.Symbol)
		}
	}
	return out
}

// Counts tallies failures by kind.
func (r *BatchReport) Counts() map[FailureKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[FailureKind]int)
	for _, f := range r.Failures {
		out[f.Kind]++
	}
	return out
}
