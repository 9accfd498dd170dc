package layout

import (
	"fmt"
	"strings"
)

// Paper widths in printable characters for the supported thermal profiles.
const (
	Width58mm = 32
	Width80mm = 48
)

// Engine lays out text for a fixed-width thermal paper profile.
// All methods are pure string transforms; the width is validated once
// at construction so the per-call functions are total.
type Engine struct {
	width int
}

// NewEngine creates a layout engine for the given character width.
func NewEngine(width int) (*Engine, error) {
	if width <= 0 {
		return nil, fmt.Errorf("invalid paper width: %d", width)
	}
	return &Engine{width: width}, nil
}

// ForPaper returns an engine for a paper size in millimeters (58 or 80).
func ForPaper(paperMM int) (*Engine, error) {
	switch paperMM {
	case 58:
		return NewEngine(Width58mm)
	case 80:
		return NewEngine(Width80mm)
	default:
		return nil, fmt.Errorf("unsupported paper size: %dmm", paperMM)
	}
}

// Width returns the printable width in characters.
func (e *Engine) Width() int {
	return e.width
}

// Center pads text so it prints centered. Text wider than the paper is
// hard-truncated; trailing spaces are omitted since they are invisible
// on thermal paper.
func (e *Engine) Center(text string) string {
	runes := []rune(text)
	if len(runes) >= e.width {
		return string(runes[:e.width])
	}
	pad := (e.width - len(runes)) / 2
	return strings.Repeat(" ", pad) + text
}

// RightAlign pads text to end at the right edge of the paper.
func (e *Engine) RightAlign(text string) string {
	runes := []rune(text)
	if len(runes) >= e.width {
		return string(runes[:e.width])
	}
	return strings.Repeat(" ", e.width-len(runes)) + text
}

// Separator builds a full-width rule from the given character.
func (e *Engine) Separator(ch rune) string {
	return strings.Repeat(string(ch), e.width)
}

// TwoColumn prints a label on the left and a value flush right on the
// same line. The label is truncated if the pair does not fit.
func (e *Engine) TwoColumn(left, right string) string {
	l := []rune(left)
	r := []rune(right)
	if len(r) >= e.width {
		return string(r[:e.width])
	}
	avail := e.width - len(r) - 1
	if len(l) > avail {
		l = l[:avail]
	}
	gap := e.width - len(l) - len(r)
	return string(l) + strings.Repeat(" ", gap) + string(r)
}

// Wrap splits text into full-width chunks.
func (e *Engine) Wrap(text string) []string {
	runes := []rune(text)
	if len(runes) <= e.width {
		return []string{text}
	}
	var lines []string
	for i := 0; i < len(runes); i += e.width {
		end := i + e.width
		if end > len(runes) {
			end = len(runes)
		}
		lines = append(lines, string(runes[i:end]))
	}
	return lines
}
