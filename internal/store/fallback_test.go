package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// stubRecorder fails with err when set, otherwise collects entries.
type stubRecorder struct {
	err     error
	entries []model.LogEntry
	closed  bool
}

func (s *stubRecorder) RecordAttempt(_ context.Context, entry model.LogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubRecorder) Close() error {
	s.closed = true
	return nil
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	primary := &stubRecorder{}
	secondary := &stubRecorder{}
	f := NewFallback(primary, secondary)

	if err := f.RecordAttempt(context.Background(), testEntry(t, "mat-1", 1)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if len(primary.entries) != 1 {
		t.Errorf("primary holds %d entries, want 1", len(primary.entries))
	}
	if len(secondary.entries) != 0 {
		t.Errorf("fallback was written despite primary success")
	}
}

func TestFallbackPrimaryFails(t *testing.T) {
	primary := &stubRecorder{err: errors.New("connection refused")}
	secondary := &stubRecorder{}
	f := NewFallback(primary, secondary)

	if err := f.RecordAttempt(context.Background(), testEntry(t, "mat-1", 1)); err != nil {
		t.Fatalf("RecordAttempt: %v (fallback succeeded, want no error)", err)
	}
	if len(secondary.entries) != 1 {
		t.Errorf("fallback holds %d entries, want 1", len(secondary.entries))
	}
}

func TestFallbackChainFails(t *testing.T) {
	primaryErr := errors.New("connection refused")
	fallbackErr := errors.New("disk full")
	f := NewFallback(&stubRecorder{err: primaryErr}, &stubRecorder{err: fallbackErr})

	err := f.RecordAttempt(context.Background(), testEntry(t, "mat-1", 1))
	if err == nil {
		t.Fatal("RecordAttempt succeeded with both stores failing")
	}

	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *PersistenceError", err)
	}
	if !errors.Is(err, primaryErr) || !errors.Is(err, fallbackErr) {
		t.Errorf("PersistenceError does not wrap both causes: %v", err)
	}
}

func TestFallbackCloseClosesBoth(t *testing.T) {
	primary := &stubRecorder{}
	secondary := &stubRecorder{}
	f := NewFallback(primary, secondary)

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !primary.closed || !secondary.closed {
		t.Error("Close did not reach both recorders")
	}
}
