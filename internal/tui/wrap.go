// Package tui provides the Bubble Tea chat interface.
package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText word-wraps text to the given display width, preserving existing
// newlines. Words wider than the width are broken mid-word.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if displayWidth(line) <= width {
		return []string{line}
	}
	var wrapped []string
	var current strings.Builder
	currentWidth := 0
	for _, word := range strings.Split(line, " ") {
		wordWidth := displayWidth(word)
		switch {
		case currentWidth == 0:
			// First word on the line; break it if it alone overflows.
			for wordWidth > width {
				head, tail := splitAtWidth(word, width)
				wrapped = append(wrapped, head)
				word = tail
				wordWidth = displayWidth(word)
			}
			current.WriteString(word)
			currentWidth = wordWidth
		case currentWidth+1+wordWidth <= width:
			current.WriteByte(' ')
			current.WriteString(word)
			currentWidth += 1 + wordWidth
		default:
			wrapped = append(wrapped, current.String())
			current.Reset()
			currentWidth = 0
			for wordWidth > width {
				head, tail := splitAtWidth(word, width)
				wrapped = append(wrapped, head)
				word = tail
				wordWidth = displayWidth(word)
			}
			current.WriteString(word)
			currentWidth = wordWidth
		}
	}
	wrapped = append(wrapped, current.String())
	return wrapped
}

func splitAtWidth(word string, width int) (string, string) {
	total := 0
	for i, r := range word {
		w := runewidth.RuneWidth(r)
		if total+w > width {
			return word[:i], word[i:]
		}
		total += w
	}
	return word, ""
}

func displayWidth(s string) int {
	return runewidth.StringWidth(s)
}
