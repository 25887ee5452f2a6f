// Package store persists completed attempts. Each attempt is written to
// two logical tables: chat_logs holds the structured transcript plus
// metadata, feedback holds the survey answers plus metadata. Both are
// keyed by (timestamp, student_id, scenario_id).
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// Recorder durably stores one completed attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, entry model.LogEntry) error
	Close() error
}

// Reader lists recorded attempts, rejoining the two tables by key. Used
// by the export command and the admin endpoint.
type Reader interface {
	ListAttempts(ctx context.Context) ([]model.LogEntry, error)
}

// PersistenceError reports that every store in the fallback chain failed.
// The attempt data is still held in the session; the caller can retry.
type PersistenceError struct {
	Primary  error
	Fallback error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("all stores failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// Fallback tries the primary recorder first and falls back to the
// secondary on failure, so a completed attempt is only lost when both
// stores are down.
type Fallback struct {
	Primary   Recorder
	Secondary Recorder
}

// NewFallback chains two recorders.
func NewFallback(primary, secondary Recorder) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary}
}

func (f *Fallback) RecordAttempt(ctx context.Context, entry model.LogEntry) error {
	primaryErr := f.Primary.RecordAttempt(ctx, entry)
	if primaryErr == nil {
		return nil
	}
	slog.Warn("primary store failed, trying fallback",
		"student", entry.StudentID, "scenario", entry.ScenarioID, "error", primaryErr)

	if err := f.Secondary.RecordAttempt(ctx, entry); err != nil {
		return &PersistenceError{Primary: primaryErr, Fallback: err}
	}
	return nil
}

func (f *Fallback) Close() error {
	err := f.Primary.Close()
	if cerr := f.Secondary.Close(); err == nil {
		err = cerr
	}
	return err
}
