// Package util holds small text helpers shared by the terminal front ends.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "…"

// Fit shortens s to at most width terminal columns, ending it with an
// ellipsis when anything was cut. Styled text keeps its escape sequences.
// A width below 1 leaves s unchanged.
func Fit(s string, width int) string {
	if width < 1 || lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, ellipsis)
}

// FitRunes is Fit for plain text measured in runes rather than columns.
func FitRunes(s string, n int) string {
	if n < 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + ellipsis
}

// SingleLine collapses runs of whitespace, newlines included, to one space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
