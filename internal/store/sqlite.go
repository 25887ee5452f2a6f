package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// SQLite records attempts in a local SQLite database. It is the default
// backend.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		student_id TEXT NOT NULL,
		language TEXT NOT NULL,
		batch_stage TEXT NOT NULL,
		scenario_id INTEGER NOT NULL,
		orientation TEXT NOT NULL,
		messages TEXT NOT NULL,
		transcript TEXT NOT NULL,
		UNIQUE (timestamp, student_id, scenario_id)
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		student_id TEXT NOT NULL,
		language TEXT NOT NULL,
		batch_stage TEXT NOT NULL,
		scenario_id INTEGER NOT NULL,
		orientation TEXT NOT NULL,
		ratings TEXT NOT NULL,
		comment TEXT NOT NULL,
		UNIQUE (timestamp, student_id, scenario_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt writes the chat log row and the feedback row in one
// transaction: either the whole attempt is stored or nothing is.
func (s *SQLite) RecordAttempt(ctx context.Context, entry model.LogEntry) error {
	messages, ratings, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_logs (timestamp, student_id, language, batch_stage, scenario_id, orientation, messages, transcript)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.StudentID, entry.Language, entry.Stage,
		entry.ScenarioID, entry.Orientation, messages,
		model.Transcript(entry.Messages, entry.Language),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback (timestamp, student_id, language, batch_stage, scenario_id, orientation, ratings, comment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.StudentID, entry.Language, entry.Stage,
		entry.ScenarioID, entry.Orientation, ratings, entry.Answers.Comment,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	return tx.Commit()
}

// ListAttempts rejoins chat logs and feedback into full log entries,
// oldest first.
func (s *SQLite) ListAttempts(ctx context.Context) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.timestamp, c.student_id, c.language, c.batch_stage, c.scenario_id, c.orientation,
		        c.messages, f.ratings, f.comment
		 FROM chat_logs c
		 JOIN feedback f ON c.timestamp = f.timestamp
		   AND c.student_id = f.student_id
		   AND c.scenario_id = f.scenario_id
		 ORDER BY c.timestamp, c.id`)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func encodeEntry(entry model.LogEntry) (messages, ratings string, err error) {
	m, err := json.Marshal(entry.Messages)
	if err != nil {
		return "", "", fmt.Errorf("encode messages: %w", err)
	}
	r, err := json.Marshal(entry.Answers.Ratings)
	if err != nil {
		return "", "", fmt.Errorf("encode ratings: %w", err)
	}
	return string(m), string(r), nil
}

func scanAttempts(rows *sql.Rows) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var messages, ratings []byte
		if err := rows.Scan(&e.Timestamp, &e.StudentID, &e.Language, &e.Stage,
			&e.ScenarioID, &e.Orientation, &messages, &ratings, &e.Answers.Comment); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal(messages, &e.Messages); err != nil {
			return nil, fmt.Errorf("decode messages: %w", err)
		}
		if err := json.Unmarshal(ratings, &e.Answers.Ratings); err != nil {
			return nil, fmt.Errorf("decode ratings: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
