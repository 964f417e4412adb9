// Package quiz selects questions, grades answers, and adapts difficulty.
package quiz

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/tutor/internal/model"
)

// Adaptation thresholds on lifetime counters. The hard check runs first, so
// a user with many correct answers is never demoted by the wrong-count branch.
const (
	hardThreshold   = 10
	mediumThreshold = 5
	easyThreshold   = 3
)

const (
	feedbackCorrect   = "✅ Correct!"
	feedbackIncorrect = "❌ Incorrect. The correct answer was: %s"
)

// Engine issues and grades quizzes against a Memory record.
type Engine struct {
	rnd *rand.Rand
}

// New returns an Engine seeded with the current time.
func New() *Engine {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns an Engine with an explicit random source.
func NewWithSource(src rand.Source) *Engine {
	return &Engine{rnd: rand.New(src)}
}

// EnsureState guarantees a QuizState exists for userID. Idempotent; calling
// it again for a known user changes nothing.
func (e *Engine) EnsureState(mem *model.Memory, userID string) *model.QuizState {
	if mem.QuizMemory == nil {
		mem.QuizMemory = map[string]*model.QuizState{}
	}
	state, ok := mem.QuizMemory[userID]
	if !ok {
		state = &model.QuizState{
			TopicCounts: map[string]int{},
			Difficulty:  model.DifficultyIntermediate,
			AttemptLog:  []model.Attempt{},
		}
		mem.QuizMemory[userID] = state
	}
	return state
}

// ModeFor maps a difficulty tier to a quiz mode.
func ModeFor(difficulty string) string {
	if difficulty == model.DifficultyEasy {
		return ModeMultipleChoice
	}
	return ModeTyping
}

// Issue picks one question uniformly at random for (subject, mode derived
// from the user's current difficulty), stores it as the outstanding quiz, and
// returns the display prompt. The pool being empty for the pair is an error;
// no state is mutated in that case.
func (e *Engine) Issue(mem *model.Memory, subject, userID string) (string, error) {
	state := e.EnsureState(mem, userID)
	mode := ModeFor(state.Difficulty)
	items := pool[subject][mode]
	if len(items) == 0 {
		return "", fmt.Errorf("no %s questions available for subject %q", mode, subject)
	}
	q := items[e.rnd.Intn(len(items))]
	state.CurrentQuiz = &q
	if state.TopicCounts == nil {
		state.TopicCounts = map[string]int{}
	}
	state.TopicCounts[subject]++

	var b strings.Builder
	fmt.Fprintf(&b, "🧠 Let's quiz! (%s)\n\n%s", titleCase(state.Difficulty), q.Question)
	if len(q.Choices) > 0 {
		fmt.Fprintf(&b, "\n\n**Choices:** %s", strings.Join(q.Choices, ", "))
	}
	return b.String(), nil
}

// Grade resolves the outstanding quiz against the user's answer. Matching is
// a case-insensitive, whitespace-trimmed exact comparison. With no quiz
// outstanding it reports so and mutates nothing.
func (e *Engine) Grade(mem *model.Memory, userID, answer string) (bool, string) {
	state := e.EnsureState(mem, userID)
	quiz := state.CurrentQuiz
	if quiz == nil {
		return false, "❌ No quiz in progress."
	}

	correct := Match(answer, quiz.Answer)
	state.AttemptLog = append(state.AttemptLog, model.Attempt{
		Question:      quiz.Question,
		YourAnswer:    answer,
		CorrectAnswer: quiz.Answer,
		Correct:       correct,
	})
	state.CurrentQuiz = nil
	state.QuizReady = false

	var feedback string
	if correct {
		state.Correct++
		state.Streak++
		feedback = feedbackCorrect
	} else {
		state.Wrong++
		state.Streak = 0
		feedback = fmt.Sprintf(feedbackIncorrect, quiz.Answer)
	}

	adaptDifficulty(state)
	return correct, feedback
}

// Match reports whether a user answer matches the canonical answer.
func Match(answer, canonical string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(canonical))
}

func adaptDifficulty(state *model.QuizState) {
	switch {
	case state.Correct >= hardThreshold:
		state.Difficulty = model.DifficultyHard
	case state.Correct >= mediumThreshold:
		state.Difficulty = model.DifficultyMedium
	case state.Wrong >= easyThreshold:
		state.Difficulty = model.DifficultyEasy
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
