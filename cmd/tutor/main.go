// Package main provides the CLI entrypoint for tutor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tutor/internal/chord"
	"github.com/verte-zerg/tutor/internal/config"
	"github.com/verte-zerg/tutor/internal/dispatch"
	"github.com/verte-zerg/tutor/internal/llm"
	"github.com/verte-zerg/tutor/internal/memory"
	"github.com/verte-zerg/tutor/internal/model"
	"github.com/verte-zerg/tutor/internal/quiz"
	"github.com/verte-zerg/tutor/internal/session"
	"github.com/verte-zerg/tutor/internal/stats"
	"github.com/verte-zerg/tutor/internal/store"
	"github.com/verte-zerg/tutor/internal/tui"
)

const (
	defaultModel       = "llama3"
	defaultStudent     = "Brandon"
	defaultSubject     = "python"
	defaultDifficulty  = model.DifficultyIntermediate
	defaultBaseURL     = llm.DefaultBaseURL
	defaultTimeoutSecs = 60
	defaultCurveWindow = 5
)

var (
	chatModel      string
	chatSession    string
	chatDifficulty string
	chatSubject    string
	chatStudent    string

	statsSubject     string
	statsSince       string
	statsLast        int
	statsCurveWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tutor",
		Short:         "Adaptive AI tutoring chat",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runChatCmd,
	}

	rootCmd.Flags().StringVar(&chatModel, "model", defaultModel, "model id (llama3, mistral, deepseek-coder-v2)")
	rootCmd.Flags().StringVar(&chatSession, "session", "", "session name (auto-generated if blank)")
	rootCmd.Flags().StringVar(&chatDifficulty, "difficulty", defaultDifficulty, "start difficulty (easy, intermediate, hard)")
	rootCmd.Flags().StringVar(&chatSubject, "subject", defaultSubject, "quiz subject")
	rootCmd.Flags().StringVar(&chatStudent, "student", defaultStudent, "student name")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSessionsCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "model", &chatModel, fileCfg.Chat.Model)
	applyStringConfig(cmd, "session", &chatSession, fileCfg.Chat.Session)
	applyStringConfig(cmd, "student", &chatStudent, fileCfg.Chat.Student)
	applyStringConfig(cmd, "subject", &chatSubject, fileCfg.Quiz.Subject)
	applyStringConfig(cmd, "difficulty", &chatDifficulty, fileCfg.Quiz.Difficulty)

	if err := validateChatFlags(); err != nil {
		return err
	}

	baseURL := defaultBaseURL
	if fileCfg.Ollama.BaseURL != nil {
		baseURL = *fileCfg.Ollama.BaseURL
	}
	timeoutSecs := defaultTimeoutSecs
	if fileCfg.Ollama.TimeoutSeconds != nil {
		timeoutSecs = *fileCfg.Ollama.TimeoutSeconds
	}

	chords, err := chord.Load(config.DefaultChordPath())
	if err != nil {
		return fmt.Errorf("failed to load chord dictionary: %w", err)
	}

	sessions := session.NewStore(config.DefaultSessionDir())
	name := chatSession
	if name == "" {
		name = session.GenerateName()
	}
	history, err := sessions.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	attempts, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := attempts.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	d := &dispatch.Dispatcher{
		Memory:   memory.NewStore(config.DefaultMemoryPath(), chatStudent),
		Sessions: sessions,
		Engine:   quiz.New(),
		LLM:      llm.NewClient(baseURL, time.Duration(timeoutSecs)*time.Second),
		Chords:   chords,
		Attempts: attempts,
		Subject:  chatSubject,
		UserID:   chatStudent,
	}

	m := tui.NewModel(d, name, chatModel, chatDifficulty, history)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List saved sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionsCmd,
	}
}

func runSessionsCmd(cmd *cobra.Command, _ []string) error {
	names, err := session.NewStore(config.DefaultSessionDir()).List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		logErrln("No saved sessions found.")
		return nil
	}
	for _, name := range names {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show quiz stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSubject, "subject", "", "subject filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Subject:     statsSubject,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(context.Background(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report, cfg.CurveWindow); err != nil {
		return err
	}
	if err := stats.RenderBreakdown(out, "By Subject", report.BySubject); err != nil {
		return err
	}
	if err := stats.RenderBreakdown(out, "By Difficulty", report.ByDifficulty); err != nil {
		return err
	}
	return stats.RenderCurves(out, report.Attempts, cfg.CurveWindow)
}

func validateChatFlags() error {
	valid := false
	for _, id := range llm.ModelIDs {
		if id == chatModel {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown model %q (available: %s)", chatModel, strings.Join(llm.ModelIDs, ", "))
	}
	switch chatDifficulty {
	case model.DifficultyEasy, model.DifficultyIntermediate, model.DifficultyHard:
	default:
		return fmt.Errorf("--difficulty must be one of easy, intermediate, hard")
	}
	subjects := quiz.Subjects()
	known := false
	for _, subject := range subjects {
		if subject == chatSubject {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown subject %q (available: %s)", chatSubject, strings.Join(subjects, ", "))
	}
	if chatStudent == "" {
		return fmt.Errorf("--student must not be empty")
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tutor configuration
# Uncomment a value to enable it. CLI flags override config values.

[chat]
# model = %q          # Model id (llama3, mistral, deepseek-coder-v2)
# session = ""              # Session name to resume on start
# student = %q        # Student name

[quiz]
# subject = %q        # Default quiz subject
# difficulty = %q     # Start difficulty (easy, intermediate, hard)

[ollama]
# base-url = %q       # Ollama server base URL
# timeout-seconds = %d  # Request timeout
`,
		defaultModel,
		defaultStudent,
		defaultSubject,
		defaultDifficulty,
		defaultBaseURL,
		defaultTimeoutSecs,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
