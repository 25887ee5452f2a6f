package store

import (
	"context"
	"fmt"

	"database/sql"

	_ "github.com/lib/pq"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
)

// Postgres records attempts in a networked PostgreSQL database, addressed
// by a DATABASE_URL-style connection string.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects and creates the tables if they are missing.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
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
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
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
	_, err := p.db.Exec(schema)
	return err
}

func (p *Postgres) RecordAttempt(ctx context.Context, entry model.LogEntry) error {
	messages, ratings, err := encodeEntry(entry)
	if err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_logs (timestamp, student_id, language, batch_stage, scenario_id, orientation, messages, transcript)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Timestamp, entry.StudentID, entry.Language, entry.Stage,
		entry.ScenarioID, entry.Orientation, messages,
		model.Transcript(entry.Messages, entry.Language),
	)
	if err != nil {
		return fmt.Errorf("insert chat log: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feedback (timestamp, student_id, language, batch_stage, scenario_id, orientation, ratings, comment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.Timestamp, entry.StudentID, entry.Language, entry.Stage,
		entry.ScenarioID, entry.Orientation, ratings, entry.Answers.Comment,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	return tx.Commit()
}

func (p *Postgres) ListAttempts(ctx context.Context) ([]model.LogEntry, error) {
	rows, err := p.db.QueryContext(ctx,
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
