// Package store handles SQLite persistence of the quiz attempt log.
//
// The database is a derived analytics mirror; the memory record stays the
// source of truth for quiz state.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/tutor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for attempt data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			answered_at TEXT NOT NULL,
			subject TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			question TEXT NOT NULL,
			given_answer TEXT NOT NULL,
			answer TEXT NOT NULL,
			correct INTEGER NOT NULL,
			streak_after INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_answered_at ON attempts(answered_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_subject ON attempts(subject);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertAttempt stores one graded attempt.
func (s *Store) InsertAttempt(ctx context.Context, rec model.AttemptRecord) (int64, error) {
	correct := 0
	if rec.Correct {
		correct = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (answered_at, subject, difficulty, question, given_answer, answer, correct, streak_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.AnsweredAt.Format(time.RFC3339Nano),
		rec.Subject,
		rec.Difficulty,
		rec.Question,
		rec.GivenAnswer,
		rec.Answer,
		correct,
		rec.StreakAfter,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListAttempts returns attempts filtered by stats config, oldest first.
func (s *Store) ListAttempts(ctx context.Context, cfg model.StatsConfig) ([]model.AttemptRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, cfg.Subject)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "answered_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT answered_at, subject, difficulty, question, given_answer, answer, correct, streak_after
		FROM attempts
		WHERE %s
		ORDER BY answered_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var attempts []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		var answeredAt string
		var correct int
		if err := rows.Scan(&answeredAt, &rec.Subject, &rec.Difficulty, &rec.Question, &rec.GivenAnswer, &rec.Answer, &correct, &rec.StreakAfter); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, answeredAt)
		if err != nil {
			return nil, err
		}
		rec.AnsweredAt = parsed
		rec.Correct = correct != 0
		attempts = append(attempts, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return attempts, nil
}

// AggregateBy groups attempts by subject or difficulty.
func (s *Store) AggregateBy(ctx context.Context, column string, cfg model.StatsConfig) ([]model.AttemptAggregate, error) {
	if column != "subject" && column != "difficulty" {
		return nil, fmt.Errorf("unsupported aggregate column %q", column)
	}
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Subject != "" {
		clauses = append(clauses, "subject = ?")
		args = append(args, cfg.Subject)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "answered_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT %s, SUM(correct) AS correct, SUM(1 - correct) AS wrong
		FROM attempts
		WHERE %s
		GROUP BY %s
		ORDER BY %s`, column, strings.Join(clauses, " AND "), column, column)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.AttemptAggregate
	for rows.Next() {
		var agg model.AttemptAggregate
		if err := rows.Scan(&agg.Key, &agg.Correct, &agg.Wrong); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
