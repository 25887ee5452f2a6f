package store

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestFile(t *testing.T) (*File, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attempts.jsonl")
	f, err := NewFile(path)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f, path
}

func readLines(t *testing.T, path string) []fileRecord {
	t.Helper()
	raw, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer raw.Close()

	var records []fileRecord
	scanner := bufio.NewScanner(raw)
	for scanner.Scan() {
		var rec fileRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("parse line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return records
}

func TestFileRecordAttempt(t *testing.T) {
	f, path := newTestFile(t)

	entry := testEntry(t, "mat-1", 1)
	if err := f.RecordAttempt(context.Background(), entry); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	records := readLines(t, path)
	if len(records) != 2 {
		t.Fatalf("got %d lines, want 2 (chat_log + feedback)", len(records))
	}

	chat, feedback := records[0], records[1]
	if chat.Table != "chat_log" || feedback.Table != "feedback" {
		t.Fatalf("table discriminators = %q, %q", chat.Table, feedback.Table)
	}
	if chat.StudentID != "mat-1" || feedback.StudentID != "mat-1" {
		t.Errorf("student id not carried on both rows")
	}
	if chat.Timestamp == "" || chat.Timestamp != feedback.Timestamp {
		t.Errorf("rows not keyed by the same timestamp: %q vs %q", chat.Timestamp, feedback.Timestamp)
	}
	if len(chat.Messages) != 3 {
		t.Errorf("chat_log has %d messages, want 3", len(chat.Messages))
	}
	if chat.Transcript == "" {
		t.Error("chat_log row missing derived transcript")
	}
	if feedback.Ratings["goal_reached"] != 4 {
		t.Errorf("feedback ratings = %+v", feedback.Ratings)
	}
	if feedback.Comment != "tough but fair" {
		t.Errorf("feedback comment = %q", feedback.Comment)
	}
}

func TestFileAppendsAcrossAttempts(t *testing.T) {
	f, path := newTestFile(t)
	ctx := context.Background()

	if err := f.RecordAttempt(ctx, testEntry(t, "mat-1", 1)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := f.RecordAttempt(ctx, testEntry(t, "mat-2", 2)); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	records := readLines(t, path)
	if len(records) != 4 {
		t.Fatalf("got %d lines, want 4", len(records))
	}
	if records[2].StudentID != "mat-2" {
		t.Errorf("second attempt not appended after the first")
	}
}
