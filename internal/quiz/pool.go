package quiz

import (
	"sort"

	"github.com/verte-zerg/tutor/internal/model"
)

// Quiz modes. Easy difficulty uses recognition-style multiple choice; every
// other tier uses free-response typing.
const (
	ModeMultipleChoice = "multiple_choice"
	ModeTyping         = "typing"
)

// pool maps subject → mode → questions. Fixed built-in set; extending it is
// a data change, not a logic change.
var pool = map[string]map[string][]model.Quiz{
	"python": {
		ModeMultipleChoice: {
			{
				Question: "What does a 'for' loop do?",
				Choices:  []string{"Executes code once", "Repeats code while a condition is true", "Repeats code for each item in a list", "Defines a function"},
				Answer:   "Repeats code for each item in a list",
			},
			{
				Question: "Which keyword is used to define a function in Python?",
				Choices:  []string{"func", "define", "def", "function"},
				Answer:   "def",
			},
		},
		ModeTyping: {
			{
				Question: "Type the syntax to create a list with the numbers 1 to 5.",
				Answer:   "[1, 2, 3, 4, 5]",
			},
			{
				Question: "Type the keyword used to end a function in Python.",
				Answer:   "return",
			},
		},
	},
	"music": {
		ModeMultipleChoice: {
			{
				Question: "Which of these is a major chord?",
				Choices:  []string{"Am", "G", "Em", "Dm"},
				Answer:   "G",
			},
			{
				Question: "Which string is the thickest on a standard guitar?",
				Choices:  []string{"1st (high E)", "3rd (G)", "5th (A)", "6th (low E)"},
				Answer:   "6th (low E)",
			},
		},
		ModeTyping: {
			{
				Question: "Type the chord name that uses the fingering '022000'.",
				Answer:   "E minor",
			},
			{
				Question: "Type the note that follows G in the A major scale.",
				Answer:   "A",
			},
		},
	},
}

// Subjects returns the subjects with at least one question, sorted.
func Subjects() []string {
	out := make([]string, 0, len(pool))
	for subject := range pool {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}
