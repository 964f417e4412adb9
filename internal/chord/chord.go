// Package chord loads the guitar chord dictionary and builds visual entries.
package chord

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// MaxVisuals caps the number of diagram entries per reply.
const MaxVisuals = 5

// Keywords that gate the visual side channel and filter chord names.
var keywords = []string{"chord", "scale", "major", "open", "diagram"}

var imageMarkup = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

// Entry is one chord dictionary record.
type Entry struct {
	Fingering string `json:"fingering"`
	Diagram   string `json:"diagram"`
}

// Dictionary maps chord names to their records. Read-only after load.
type Dictionary map[string]Entry

// Load reads the chord dictionary JSON. A missing file yields an empty
// dictionary and disables the feature.
func Load(path string) (Dictionary, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Dictionary{}, nil
		}
		return nil, fmt.Errorf("failed to read chord dictionary: %w", err)
	}
	var dict Dictionary
	if err := json.Unmarshal(b, &dict); err != nil {
		return nil, fmt.Errorf("failed to decode chord dictionary: %w", err)
	}
	return dict, nil
}

// StripImages removes embedded markdown image markup from reply text.
func StripImages(text string) string {
	return imageMarkup.ReplaceAllString(text, "")
}

// MentionsKeywords reports whether the message touches chord/scale topics.
func MentionsKeywords(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Visuals assembles up to MaxVisuals diagram entries whose names match the
// keyword filter, in name order for stable output.
func (d Dictionary) Visuals() string {
	names := make([]string, 0, len(d))
	for name := range d {
		lower := strings.ToLower(name)
		for _, k := range []string{"major", "chord", "open", "scale"} {
			if strings.Contains(lower, k) {
				names = append(names, name)
				break
			}
		}
	}
	if len(names) == 0 {
		return "🎸 No diagrams available."
	}
	sort.Strings(names)
	if len(names) > MaxVisuals {
		names = names[:MaxVisuals]
	}
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("**%s**\n![%s](%s)", name, name, d[name].Diagram))
	}
	return strings.Join(parts, "\n\n")
}
