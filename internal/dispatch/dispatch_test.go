package dispatch

import (
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/tutor/internal/chord"
	"github.com/verte-zerg/tutor/internal/memory"
	"github.com/verte-zerg/tutor/internal/model"
	"github.com/verte-zerg/tutor/internal/quiz"
	"github.com/verte-zerg/tutor/internal/session"
	"github.com/verte-zerg/tutor/internal/store"
)

// fakeStreamer replays canned cumulative increments and records the history
// it was called with.
type fakeStreamer struct {
	increments []string
	calls      int
	gotModel   string
	gotHistory []model.ChatMessage
}

func (f *fakeStreamer) Stream(_ context.Context, modelID string, history []model.ChatMessage) <-chan string {
	f.calls++
	f.gotModel = modelID
	f.gotHistory = append([]model.ChatMessage(nil), history...)
	out := make(chan string, len(f.increments))
	for _, inc := range f.increments {
		out <- inc
	}
	close(out)
	return out
}

func newTestDispatcher(t *testing.T, stream *fakeStreamer) *Dispatcher {
	t.Helper()
	dir := t.TempDir()
	return &Dispatcher{
		Memory:   memory.NewStore(filepath.Join(dir, "memory.json"), "Brandon"),
		Sessions: session.NewStore(filepath.Join(dir, "sessions")),
		Engine:   quiz.NewWithSource(rand.NewSource(1)),
		LLM:      stream,
		Chords:   chord.Dictionary{},
		Subject:  "python",
		UserID:   "Brandon",
	}
}

func runTurn(t *testing.T, d *Dispatcher, in TurnInput) []TurnEvent {
	t.Helper()
	var events []TurnEvent
	for ev := range d.Turn(context.Background(), in) {
		events = append(events, ev)
	}
	if len(events) == 0 {
		t.Fatalf("expected at least one event")
	}
	last := events[len(events)-1]
	if !last.Final {
		t.Fatalf("expected the last event to be final: %+v", last)
	}
	if last.Err != nil {
		t.Fatalf("turn failed: %v", last.Err)
	}
	return events
}

func TestTriggerIssuesQuizSameTurn(t *testing.T) {
	stream := &fakeStreamer{increments: []string{"should not be called"}}
	d := newTestDispatcher(t, stream)

	events := runTurn(t, d, TurnInput{
		Message:     "Please quiz me on lists",
		ModelID:     "llama3",
		SessionName: "s1",
		Difficulty:  model.DifficultyIntermediate,
	})
	if stream.calls != 0 {
		t.Fatalf("expected no model call on a quiz turn")
	}
	final := events[len(events)-1]
	if !strings.HasPrefix(final.Reply, "🧠 Let's quiz!") {
		t.Fatalf("expected a quiz prompt, got %q", final.Reply)
	}
	if len(final.History) != 2 || final.History[0].Content != "Please quiz me on lists" {
		t.Fatalf("unexpected history: %+v", final.History)
	}

	mem, err := d.Memory.Load()
	if err != nil {
		t.Fatalf("load memory: %v", err)
	}
	state := mem.QuizMemory["Brandon"]
	if state == nil || state.CurrentQuiz == nil {
		t.Fatalf("expected the outstanding quiz persisted to memory")
	}
	if !state.QuizReady {
		t.Fatalf("expected quiz_ready persisted until grading")
	}
	if state.TopicCounts["python"] != 1 {
		t.Fatalf("expected topic count incremented, got %+v", state.TopicCounts)
	}

	// Issue turns persist memory only, never the session log.
	log, err := d.Sessions.Load("s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if log != nil {
		t.Fatalf("expected no session log written on an issue turn, got %+v", log)
	}
}

func TestOutstandingQuizIsGraded(t *testing.T) {
	stream := &fakeStreamer{}
	d := newTestDispatcher(t, stream)

	mem, err := d.Memory.Load()
	if err != nil {
		t.Fatalf("load memory: %v", err)
	}
	state := d.Engine.EnsureState(mem, "Brandon")
	state.CurrentQuiz = &model.Quiz{Question: "Type the keyword used to end a function in Python.", Answer: "return"}
	state.QuizReady = true
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}

	events := runTurn(t, d, TurnInput{
		Message:     "Return",
		ModelID:     "llama3",
		SessionName: "s1",
	})
	if stream.calls != 0 {
		t.Fatalf("expected no model call on a grading turn")
	}
	final := events[len(events)-1]
	if final.Reply != "✅ Correct!" {
		t.Fatalf("unexpected feedback: %q", final.Reply)
	}

	mem, err = d.Memory.Load()
	if err != nil {
		t.Fatalf("reload memory: %v", err)
	}
	state = mem.QuizMemory["Brandon"]
	if state.CurrentQuiz != nil || state.QuizReady {
		t.Fatalf("expected quiz and readiness cleared after grading")
	}
	if state.Correct != 1 || state.Streak != 1 {
		t.Fatalf("unexpected counters: %+v", state)
	}

	if correct, total := d.Score(); correct != 1 || total != 1 {
		t.Fatalf("unexpected session score %d/%d", correct, total)
	}
	if d.Streak() != 1 {
		t.Fatalf("unexpected streak %d", d.Streak())
	}

	// Grading turns persist the session log too.
	log, err := d.Sessions.Load("s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(log) != 2 || log[1].Content != "✅ Correct!" {
		t.Fatalf("unexpected session log: %+v", log)
	}
}

func TestTriggerWithOutstandingQuizGradesFirst(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})

	mem, _ := d.Memory.Load()
	state := d.Engine.EnsureState(mem, "Brandon")
	state.CurrentQuiz = &model.Quiz{Question: "q", Answer: "def"}
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}

	events := runTurn(t, d, TurnInput{Message: "quiz me", ModelID: "llama3", SessionName: "s1"})
	final := events[len(events)-1]
	if !strings.HasPrefix(final.Reply, "❌ Incorrect.") {
		t.Fatalf("expected the outstanding quiz graded first, got %q", final.Reply)
	}

	// The trigger still survives: the next turn issues.
	events = runTurn(t, d, TurnInput{Message: "ok", ModelID: "llama3", SessionName: "s1"})
	final = events[len(events)-1]
	if strings.HasPrefix(final.Reply, "🧠 Let's quiz!") {
		t.Fatalf("expected no issue after grading cleared quiz_ready, got %q", final.Reply)
	}
}

func TestForwardTurnStreamsAndPersists(t *testing.T) {
	stream := &fakeStreamer{increments: []string{"A list", "A list is ordered."}}
	d := newTestDispatcher(t, stream)

	history := []model.ChatMessage{
		{Role: model.RoleUser, Content: "m1"},
		{Role: model.RoleAssistant, Content: "m2"},
		{Role: model.RoleUser, Content: "m3"},
		{Role: model.RoleAssistant, Content: "m4"},
	}
	events := runTurn(t, d, TurnInput{
		Message:     "what is a list?",
		ModelID:     "llama3",
		SessionName: "s1",
		History:     history,
	})

	if stream.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", stream.calls)
	}
	// System prompt plus the trailing window of four messages.
	if len(stream.gotHistory) != ContextTurns+1 {
		t.Fatalf("expected %d messages sent, got %d", ContextTurns+1, len(stream.gotHistory))
	}
	if stream.gotHistory[0].Role != model.RoleSystem {
		t.Fatalf("expected a leading system message, got %+v", stream.gotHistory[0])
	}
	if !strings.Contains(stream.gotHistory[0].Content, "Python tutor") {
		t.Fatalf("unexpected system prompt: %q", stream.gotHistory[0].Content)
	}
	if stream.gotHistory[1].Content != "m2" {
		t.Fatalf("expected the window to start at m2, got %q", stream.gotHistory[1].Content)
	}
	if last := stream.gotHistory[len(stream.gotHistory)-1]; last.Content != "what is a list?" {
		t.Fatalf("expected the user message last, got %q", last.Content)
	}

	// Two streaming increments, then the final event.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Reply != "A list" || events[0].Final {
		t.Fatalf("unexpected first increment: %+v", events[0])
	}
	final := events[len(events)-1]
	if final.Reply != "A list is ordered." {
		t.Fatalf("unexpected final reply: %q", final.Reply)
	}
	if len(final.History) != len(history)+2 {
		t.Fatalf("expected the full history extended, got %d messages", len(final.History))
	}

	log, err := d.Sessions.Load("s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if len(log) != 6 || log[5].Content != "A list is ordered." {
		t.Fatalf("unexpected session log: %+v", log)
	}
}

func TestForwardTurnMistralVisuals(t *testing.T) {
	stream := &fakeStreamer{increments: []string{"Try G major ![G](g.png) today."}}
	d := newTestDispatcher(t, stream)
	d.Chords = chord.Dictionary{"G Major": {Diagram: "assets/g.png"}}

	events := runTurn(t, d, TurnInput{
		Message:     "show me the G chord",
		ModelID:     "mistral",
		SessionName: "s1",
	})
	final := events[len(events)-1]
	if strings.Contains(final.Reply, "![G](g.png)") {
		t.Fatalf("expected image markup stripped from the reply: %q", final.Reply)
	}
	if !strings.Contains(final.Visuals, "![G Major](assets/g.png)") {
		t.Fatalf("expected chord visuals, got %q", final.Visuals)
	}

	// The raw reply, markup included, is what the session log keeps.
	log, err := d.Sessions.Load("s1")
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if !strings.Contains(log[1].Content, "![G](g.png)") {
		t.Fatalf("expected the raw reply persisted: %q", log[1].Content)
	}
}

func TestForwardTurnMistralWithoutKeywords(t *testing.T) {
	stream := &fakeStreamer{increments: []string{"Tune your guitar daily."}}
	d := newTestDispatcher(t, stream)
	d.Chords = chord.Dictionary{"G Major": {Diagram: "assets/g.png"}}

	events := runTurn(t, d, TurnInput{Message: "how do I practice?", ModelID: "mistral", SessionName: "s1"})
	final := events[len(events)-1]
	if final.Visuals != "" {
		t.Fatalf("expected no visuals without keywords, got %q", final.Visuals)
	}
}

func TestForwardTurnLlama3NeverGetsVisuals(t *testing.T) {
	stream := &fakeStreamer{increments: []string{"lists and chords"}}
	d := newTestDispatcher(t, stream)
	d.Chords = chord.Dictionary{"G Major": {Diagram: "assets/g.png"}}

	events := runTurn(t, d, TurnInput{Message: "what about the G chord?", ModelID: "llama3", SessionName: "s1"})
	final := events[len(events)-1]
	if final.Visuals != "" {
		t.Fatalf("visuals are mistral-only, got %q", final.Visuals)
	}
}

func TestDifficultyOverrideApplies(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})

	events := runTurn(t, d, TurnInput{
		Message:     "quiz me",
		ModelID:     "llama3",
		SessionName: "s1",
		Difficulty:  model.DifficultyEasy,
	})
	final := events[len(events)-1]
	if !strings.Contains(final.Reply, "(Easy)") {
		t.Fatalf("expected the easy tier applied, got %q", final.Reply)
	}
	if !strings.Contains(final.Reply, "**Choices:**") {
		t.Fatalf("expected a multiple choice quiz on easy, got %q", final.Reply)
	}
}

func TestEndSessionWritesSummary(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})

	// An answered quiz gives the session a score.
	mem, _ := d.Memory.Load()
	state := d.Engine.EnsureState(mem, "Brandon")
	state.CurrentQuiz = &model.Quiz{Question: "q", Answer: "return"}
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}
	runTurn(t, d, TurnInput{Message: "return", ModelID: "llama3", SessionName: "s1"})

	if err := d.EndSession(context.Background(), "llama3", "teach me about lists", model.DifficultyIntermediate); err != nil {
		t.Fatalf("end session: %v", err)
	}

	mem, err := d.Memory.Load()
	if err != nil {
		t.Fatalf("reload memory: %v", err)
	}
	if len(mem.LastSessions) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(mem.LastSessions))
	}
	got := mem.LastSessions[0]
	if got.Score != "1/1" {
		t.Fatalf("unexpected score %q", got.Score)
	}
	if got.Topic != "python" || got.Model != "llama3" {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if got.Summary != "teach me about lists" {
		t.Fatalf("unexpected summary text %q", got.Summary)
	}

	// The score resets for the next session.
	if err := d.EndSession(context.Background(), "llama3", "second session", model.DifficultyIntermediate); err != nil {
		t.Fatalf("end session: %v", err)
	}
	mem, _ = d.Memory.Load()
	if mem.LastSessions[1].Score != "n/a" {
		t.Fatalf("expected the score reset, got %q", mem.LastSessions[1].Score)
	}
}

func TestEndSessionSkipsEmptySessions(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})
	if err := d.EndSession(context.Background(), "llama3", "", model.DifficultyIntermediate); err != nil {
		t.Fatalf("end session: %v", err)
	}
	mem, err := d.Memory.Load()
	if err != nil {
		t.Fatalf("load memory: %v", err)
	}
	if len(mem.LastSessions) != 0 {
		t.Fatalf("expected no summary for an empty session, got %+v", mem.LastSessions)
	}
}

func TestSummarizeRecentShowsLastFive(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})
	mem, _ := d.Memory.Load()
	for i := 0; i < 7; i++ {
		mem.LastSessions = append(mem.LastSessions, model.SessionSummary{
			Topic:    "python",
			Model:    "llama3",
			Datetime: "2026-08-29 10:00",
			Summary:  strings.Repeat("x", i+1),
		})
	}
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}

	out, err := d.SummarizeRecent()
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "[2026-08-29 10:00] python (llama3): xxx") {
		t.Fatalf("unexpected line: %q", lines[0])
	}
}

func TestGradeTurnMirrorsAttemptToStore(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})
	st, err := store.Open(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	d.Attempts = st

	mem, _ := d.Memory.Load()
	state := d.Engine.EnsureState(mem, "Brandon")
	state.CurrentQuiz = &model.Quiz{Question: "q", Answer: "def"}
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}
	runTurn(t, d, TurnInput{Message: "func", ModelID: "llama3", SessionName: "s1"})

	attempts, err := st.ListAttempts(context.Background(), model.StatsConfig{})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 mirrored attempt, got %d", len(attempts))
	}
	rec := attempts[0]
	if rec.Subject != "python" || rec.GivenAnswer != "func" || rec.Answer != "def" || rec.Correct {
		t.Fatalf("unexpected attempt record: %+v", rec)
	}

	// The aggregate now drives the end-of-session recommendation.
	if err := d.EndSession(context.Background(), "llama3", "first question", model.DifficultyIntermediate); err != nil {
		t.Fatalf("end session: %v", err)
	}
	mem, _ = d.Memory.Load()
	if mem.LastSessions[0].RecommendedNext != "python" {
		t.Fatalf("unexpected recommendation %q", mem.LastSessions[0].RecommendedNext)
	}
}

func TestGradeTurnRecordsAskedDifficulty(t *testing.T) {
	d := newTestDispatcher(t, &fakeStreamer{})
	st, err := store.Open(filepath.Join(t.TempDir(), "tutor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	d.Attempts = st

	// The tenth correct answer crosses the hard threshold during grading.
	mem, _ := d.Memory.Load()
	state := d.Engine.EnsureState(mem, "Brandon")
	state.Correct = 9
	state.CurrentQuiz = &model.Quiz{Question: "q", Answer: "def"}
	if err := d.Memory.Save(mem); err != nil {
		t.Fatalf("save memory: %v", err)
	}
	runTurn(t, d, TurnInput{Message: "def", ModelID: "llama3", SessionName: "s1", Difficulty: model.DifficultyIntermediate})

	mem, _ = d.Memory.Load()
	if got := mem.QuizMemory["Brandon"].Difficulty; got != model.DifficultyHard {
		t.Fatalf("expected adaptation to hard, got %q", got)
	}

	attempts, err := st.ListAttempts(context.Background(), model.StatsConfig{})
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected 1 mirrored attempt, got %d", len(attempts))
	}
	if attempts[0].Difficulty != model.DifficultyIntermediate {
		t.Fatalf("expected the tier the question was asked at, got %q", attempts[0].Difficulty)
	}
}

func TestContainsTrigger(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"quiz me", true},
		{"Please QUIZ ME now", true},
		{"test me on loops", true},
		{"challenge me!", true},
		{"what is a quiz", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := containsTrigger(tc.message); got != tc.want {
			t.Fatalf("containsTrigger(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}
