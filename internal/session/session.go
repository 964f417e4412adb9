// Package session persists named chat session logs.
//
// Each session is one <name>.json file under the session directory holding
// the ordered message list; logs are written wholesale after every completed
// turn and loadable by name to resume.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/tutor/internal/model"
)

// Store reads and writes session logs under a single directory.
type Store struct {
	dir string
}

// NewStore creates a session store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the file path for a session name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Save overwrites the log for the named session.
func (s *Store) Save(name string, log []model.ChatMessage) error {
	if name == "" {
		return fmt.Errorf("session name is empty")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.Path(name), b, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load returns the log for the named session, or an empty log when the
// session does not exist yet.
func (s *Store) Load(name string) ([]model.ChatMessage, error) {
	b, err := os.ReadFile(s.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var log []model.ChatMessage
	if err := json.Unmarshal(b, &log); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return log, nil
}

// List returns all saved session names, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// GenerateName builds a session name from the current time and a random suffix.
func GenerateName() string {
	return generateNameAt(time.Now())
}

func generateNameAt(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
	return fmt.Sprintf("session_%s_%s", t.Format("2006-01-02_15-04"), suffix)
}

// FormatDisplay builds the transcript header form of a message, stamping the
// speaker and current wall-clock time.
func FormatDisplay(role, content string) model.ChatMessage {
	speaker := "🧍 You"
	if role == model.RoleAssistant {
		speaker = "🧠 Tutor"
	}
	return model.ChatMessage{
		Role:    role,
		Content: fmt.Sprintf("**%s (%s)**\n\n%s", speaker, time.Now().Format("15:04"), content),
	}
}
