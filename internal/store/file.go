package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// File is the append-only local fallback store: one JSON line per logical
// table row, discriminated by a "table" field. It never reads prior
// content, so a damaged line cannot block new writes.
type File struct {
	mu sync.Mutex
	f  *os.File
}

type fileRecord struct {
	Table       string            `json:"table"`
	Timestamp   string            `json:"timestamp"`
	StudentID   string            `json:"student_id"`
	Language    model.Language    `json:"language"`
	Stage       model.Stage       `json:"batch_stage"`
	ScenarioID  int               `json:"scenario_id"`
	Orientation model.Orientation `json:"orientation"`

	// chat_log rows only
	Messages   []model.Message `json:"messages,omitempty"`
	Transcript string          `json:"transcript,omitempty"`

	// feedback rows only
	Ratings map[string]int `json:"ratings,omitempty"`
	Comment string         `json:"comment,omitempty"`
}

// NewFile opens (creating if needed) the fallback file for appending.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open fallback file: %w", err)
	}
	return &File{f: f}, nil
}

func (s *File) Close() error {
	return s.f.Close()
}

// RecordAttempt appends the chat_log line and the feedback line and syncs
// the file.
func (s *File) RecordAttempt(_ context.Context, entry model.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	records := []fileRecord{
		{
			Table:       "chat_log",
			Timestamp:   ts,
			StudentID:   entry.StudentID,
			Language:    entry.Language,
			Stage:       entry.Stage,
			ScenarioID:  entry.ScenarioID,
			Orientation: entry.Orientation,
			Messages:    entry.Messages,
			Transcript:  model.Transcript(entry.Messages, entry.Language),
		},
		{
			Table:       "feedback",
			Timestamp:   ts,
			StudentID:   entry.StudentID,
			Language:    entry.Language,
			Stage:       entry.Stage,
			ScenarioID:  entry.ScenarioID,
			Orientation: entry.Orientation,
			Ratings:     entry.Answers.Ratings,
			Comment:     entry.Answers.Comment,
		},
	}

	enc := json.NewEncoder(s.f)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("append %s record: %w", rec.Table, err)
		}
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync fallback file: %w", err)
	}
	return nil
}
