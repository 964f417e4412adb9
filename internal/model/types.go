// Package model defines shared data structures.
package model

import "time"

// Chat roles used throughout the session logs and model requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Difficulty tiers. Medium sits between intermediate and hard and is only
// reachable through the adaptation rule, not the selector.
const (
	DifficultyEasy         = "easy"
	DifficultyIntermediate = "intermediate"
	DifficultyMedium       = "medium"
	DifficultyHard         = "hard"
)

// ChatMessage is one entry of a session log.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is the durable single-record profile shared across all sessions.
type Memory struct {
	StudentName    string                `json:"student_name"`
	KnowledgeLevel string                `json:"knowledge_level"`
	LastSessions   []SessionSummary      `json:"last_sessions"`
	QuizMemory     map[string]*QuizState `json:"quiz_memory,omitempty"`
}

// SessionSummary is an append-only record written when a session ends.
type SessionSummary struct {
	Topic           string `json:"topic"`
	Model           string `json:"model"`
	Datetime        string `json:"datetime"`
	Summary         string `json:"summary"`
	RecommendedNext string `json:"recommended_next"`
	Score           string `json:"score"`
	Difficulty      string `json:"difficulty"`
}

// QuizState tracks per-user quiz progress. CurrentQuiz is non-nil only
// between issuance and grading.
type QuizState struct {
	TopicCounts map[string]int `json:"topic_counts"`
	CurrentQuiz *Quiz          `json:"current_quiz"`
	Correct     int            `json:"correct"`
	Wrong       int            `json:"wrong"`
	Streak      int            `json:"streak"`
	Difficulty  string         `json:"difficulty"`
	AttemptLog  []Attempt      `json:"attempt_log"`
	QuizReady   bool           `json:"quiz_ready"`
}

// Quiz is a single issued question. Immutable once issued; Choices is present
// only in multiple-choice mode.
type Quiz struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Choices  []string `json:"choices,omitempty"`
}

// Attempt is one graded answer, append-only.
type Attempt struct {
	Question      string `json:"question"`
	YourAnswer    string `json:"your_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
}

// AttemptRecord is the analytics-store mirror of a graded attempt.
type AttemptRecord struct {
	AnsweredAt  time.Time
	Subject     string
	Difficulty  string
	Question    string
	GivenAnswer string
	Answer      string
	Correct     bool
	StreakAfter int
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Subject     string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// AttemptAggregate summarizes attempts grouped by one key (subject or
// difficulty) for reporting.
type AttemptAggregate struct {
	Key     string
	Correct int
	Wrong   int
}
