// Package memory provides the durable single-record profile store.
//
// The record is a single JSON file loaded wholesale at turn start and
// overwritten wholesale after state changes. There is no locking; the app
// assumes a single user with one turn in flight.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/verte-zerg/tutor/internal/model"
)

// Store reads and writes the persistent memory file.
type Store struct {
	path    string
	student string
}

// NewStore creates a store for the given file path. The student name seeds
// the default profile when the file does not exist yet.
func NewStore(path, student string) *Store {
	return &Store{path: path, student: student}
}

// Load reads the memory record, seeding a default profile when absent.
func (s *Store) Load() (*model.Memory, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s.seed(), nil
		}
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}
	var mem model.Memory
	if err := json.Unmarshal(b, &mem); err != nil {
		return nil, fmt.Errorf("failed to decode memory: %w", err)
	}
	return &mem, nil
}

// Save overwrites the memory record.
func (s *Store) Save(mem *model.Memory) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create memory dir: %w", err)
	}
	b, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write memory: %w", err)
	}
	return nil
}

// AppendSummary appends a session summary and persists the record.
func (s *Store) AppendSummary(mem *model.Memory, summary model.SessionSummary) error {
	if summary.Score == "" {
		summary.Score = "n/a"
	}
	if summary.Difficulty == "" {
		summary.Difficulty = model.DifficultyIntermediate
	}
	mem.LastSessions = append(mem.LastSessions, summary)
	return s.Save(mem)
}

func (s *Store) seed() *model.Memory {
	return &model.Memory{
		StudentName:    s.student,
		KnowledgeLevel: model.DifficultyIntermediate,
		LastSessions:   []model.SessionSummary{},
	}
}
