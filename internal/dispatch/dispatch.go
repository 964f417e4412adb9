// Package dispatch routes each incoming chat turn.
//
// A turn is handled by exactly one of four states, checked in priority order
// against freshly loaded memory: quiz-trigger detection, answer resolution,
// quiz issuance, and model forwarding. Memory is loaded at turn start and
// persisted before the turn ends; it is never held open across turns.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/verte-zerg/tutor/internal/chord"
	"github.com/verte-zerg/tutor/internal/llm"
	"github.com/verte-zerg/tutor/internal/memory"
	"github.com/verte-zerg/tutor/internal/model"
	"github.com/verte-zerg/tutor/internal/quiz"
	"github.com/verte-zerg/tutor/internal/session"
	"github.com/verte-zerg/tutor/internal/stats"
	"github.com/verte-zerg/tutor/internal/store"
)

// ContextTurns is the fixed sliding window of history sent to the model.
const ContextTurns = 4

var triggerPhrases = []string{"quiz me", "test me", "challenge me"}

// turnState enumerates the dispatcher's priority cascade.
type turnState int

const (
	stateGradeAnswer turnState = iota
	stateIssueQuiz
	stateForward
)

// TurnInput carries one user submission.
type TurnInput struct {
	Message     string
	ModelID     string
	SessionName string
	Difficulty  string
	History     []model.ChatMessage
}

// TurnEvent is one progressive update of a turn. Non-final events carry the
// cumulative reply so far; the final event additionally carries the updated
// history, any visuals, or a turn-fatal storage error.
type TurnEvent struct {
	Reply   string
	Visuals string
	History []model.ChatMessage
	Final   bool
	Err     error
}

// Dispatcher orchestrates quiz state, persistence, and model forwarding.
type Dispatcher struct {
	Memory   *memory.Store
	Sessions *session.Store
	Engine   *quiz.Engine
	LLM      llm.Streamer
	Chords   chord.Dictionary
	Attempts *store.Store // nil disables the analytics mirror
	Subject  string
	UserID   string

	sessionCorrect int
	sessionTotal   int
	lastStreak     int
}

// Score reports quiz results for the running session.
func (d *Dispatcher) Score() (correct, total int) {
	return d.sessionCorrect, d.sessionTotal
}

// Streak returns the streak value after the most recent graded attempt.
func (d *Dispatcher) Streak() int {
	return d.lastStreak
}

// Turn processes one user message and streams updates until the final event.
// The channel is closed after the final event; consumption is immediate, so
// no backpressure handling is needed.
func (d *Dispatcher) Turn(ctx context.Context, in TurnInput) <-chan TurnEvent {
	out := make(chan TurnEvent, 1)
	go func() {
		defer close(out)
		d.turn(ctx, in, out)
	}()
	return out
}

func (d *Dispatcher) turn(ctx context.Context, in TurnInput, out chan<- TurnEvent) {
	mem, err := d.Memory.Load()
	if err != nil {
		out <- TurnEvent{Final: true, Err: err}
		return
	}
	state := d.Engine.EnsureState(mem, d.UserID)
	if in.Difficulty != "" {
		state.Difficulty = in.Difficulty
	}

	// Trigger detection takes effect on this turn, not a future one.
	if containsTrigger(in.Message) {
		state.QuizReady = true
	}

	switch currentState(state) {
	case stateGradeAnswer:
		d.gradeTurn(ctx, in, mem, state, out)
	case stateIssueQuiz:
		d.issueTurn(in, mem, out)
	default:
		d.forwardTurn(ctx, in, out)
	}
}

func currentState(state *model.QuizState) turnState {
	switch {
	case state.CurrentQuiz != nil:
		return stateGradeAnswer
	case state.QuizReady:
		return stateIssueQuiz
	default:
		return stateForward
	}
}

// gradeTurn consumes the whole turn resolving the outstanding quiz; no model
// call happens.
func (d *Dispatcher) gradeTurn(ctx context.Context, in TurnInput, mem *model.Memory, state *model.QuizState, out chan<- TurnEvent) {
	// Grading may adapt the tier; the mirror records the tier the question
	// was asked at.
	askedDifficulty := state.Difficulty
	correct, feedback := d.Engine.Grade(mem, d.UserID, in.Message)
	d.sessionTotal++
	if correct {
		d.sessionCorrect++
	}
	d.lastStreak = state.Streak
	d.recordAttempt(ctx, state, askedDifficulty)

	history := appendTurn(in.History, in.Message, feedback)
	if err := d.Sessions.Save(in.SessionName, history); err != nil {
		out <- TurnEvent{Final: true, Err: err}
		return
	}
	if err := d.Memory.Save(mem); err != nil {
		out <- TurnEvent{Final: true, Err: err}
		return
	}
	out <- TurnEvent{Reply: feedback, History: history, Final: true}
}

// issueTurn starts a new quiz for the configured subject. Pool misses degrade
// to a failure message in place of the prompt; memory is still persisted so
// the raised quiz_ready flag and the outstanding quiz survive.
func (d *Dispatcher) issueTurn(in TurnInput, mem *model.Memory, out chan<- TurnEvent) {
	text, err := d.Engine.Issue(mem, d.Subject, d.UserID)
	if err != nil {
		text = fmt.Sprintf("❌ Failed to generate quiz: %v", err)
	}
	if err := d.Memory.Save(mem); err != nil {
		out <- TurnEvent{Final: true, Err: err}
		return
	}
	out <- TurnEvent{Reply: text, History: appendTurn(in.History, in.Message, text), Final: true}
}

// forwardTurn streams the model reply, re-emitting every cumulative
// increment, then persists the session log.
func (d *Dispatcher) forwardTurn(ctx context.Context, in TurnInput, out chan<- TurnEvent) {
	withUser := append(copyHistory(in.History), model.ChatMessage{Role: model.RoleUser, Content: in.Message})

	window := withUser
	if len(window) > ContextTurns {
		window = window[len(window)-ContextTurns:]
	}
	msgs := make([]model.ChatMessage, 0, len(window)+1)
	msgs = append(msgs, model.ChatMessage{Role: model.RoleSystem, Content: llm.SystemPrompt(in.ModelID)})
	msgs = append(msgs, window...)

	var buffer string
	for partial := range d.LLM.Stream(ctx, in.ModelID, msgs) {
		buffer = partial
		out <- TurnEvent{Reply: buffer}
	}

	history := append(withUser, model.ChatMessage{Role: model.RoleAssistant, Content: buffer})
	if err := d.Sessions.Save(in.SessionName, history); err != nil {
		out <- TurnEvent{Final: true, Err: err}
		return
	}

	reply := buffer
	visuals := ""
	if in.ModelID == "mistral" {
		reply = chord.StripImages(buffer)
		if chord.MentionsKeywords(in.Message) {
			visuals = d.Chords.Visuals()
		}
	}
	out <- TurnEvent{Reply: reply, Visuals: visuals, History: history, Final: true}
}

// EndSession appends a summary of the finished session to memory and resets
// the per-session score. Sessions with no user message write nothing.
func (d *Dispatcher) EndSession(ctx context.Context, modelID, firstMessage, difficulty string) error {
	if firstMessage == "" {
		return nil
	}
	mem, err := d.Memory.Load()
	if err != nil {
		return err
	}

	score := "n/a"
	if d.sessionTotal > 0 {
		score = fmt.Sprintf("%d/%d", d.sessionCorrect, d.sessionTotal)
	}
	summary := model.SessionSummary{
		Topic:           d.Subject,
		Model:           modelID,
		Datetime:        time.Now().Format("2006-01-02 15:04"),
		Summary:         clip(firstMessage, 80),
		RecommendedNext: d.recommendedNext(ctx),
		Score:           score,
		Difficulty:      difficulty,
	}
	d.sessionCorrect = 0
	d.sessionTotal = 0
	return d.Memory.AppendSummary(mem, summary)
}

// SummarizeRecent renders the read-only recent-sessions view from memory.
func (d *Dispatcher) SummarizeRecent() (string, error) {
	mem, err := d.Memory.Load()
	if err != nil {
		return "", err
	}
	logs := mem.LastSessions
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	lines := make([]string, 0, len(logs))
	for _, s := range logs {
		lines = append(lines, fmt.Sprintf("[%s] %s (%s): %s", s.Datetime, s.Topic, s.Model, clip(s.Summary, 50)))
	}
	return strings.Join(lines, "\n"), nil
}

func (d *Dispatcher) recordAttempt(ctx context.Context, state *model.QuizState, difficulty string) {
	if d.Attempts == nil || len(state.AttemptLog) == 0 {
		return
	}
	last := state.AttemptLog[len(state.AttemptLog)-1]
	rec := model.AttemptRecord{
		AnsweredAt:  time.Now(),
		Subject:     d.Subject,
		Difficulty:  difficulty,
		Question:    last.Question,
		GivenAnswer: last.YourAnswer,
		Answer:      last.CorrectAnswer,
		Correct:     last.Correct,
		StreakAfter: state.Streak,
	}
	if _, err := d.Attempts.InsertAttempt(ctx, rec); err != nil {
		logErrf("failed to record attempt: %v\n", err)
	}
}

func (d *Dispatcher) recommendedNext(ctx context.Context) string {
	if d.Attempts == nil {
		return ""
	}
	aggs, err := d.Attempts.AggregateBy(ctx, "subject", model.StatsConfig{})
	if err != nil {
		logErrf("failed to load attempt aggregates: %v\n", err)
		return ""
	}
	return stats.RecommendedNext(aggs)
}

func containsTrigger(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range triggerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func appendTurn(history []model.ChatMessage, userText, assistantText string) []model.ChatMessage {
	out := copyHistory(history)
	out = append(out, model.ChatMessage{Role: model.RoleUser, Content: userText})
	out = append(out, model.ChatMessage{Role: model.RoleAssistant, Content: assistantText})
	return out
}

func copyHistory(history []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(history))
	copy(out, history)
	return out
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
