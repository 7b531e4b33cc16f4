package testutils

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/mcuadros/go-defaults"
)

// TestingT is an interface that matches the methods we need from testing.T
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type TranscriptAssertOptions struct {
	Separator    string `default:"\n"`
	EnableColors bool   `default:"false"`
}

// TranscriptOption is a functional option for configuring TranscriptAsserter
type TranscriptOption func(*TranscriptAssertOptions)

// WithColors enables colored diff output
func WithColors() TranscriptOption {
	return func(o *TranscriptAssertOptions) { o.EnableColors = true }
}

// TranscriptAsserter compares ordered write transcripts (one entry per chunk) and reports
// mismatches as a unified diff.
type TranscriptAsserter struct {
	t       TestingT
	options TranscriptAssertOptions
}

// NewTranscriptAsserter creates a new TranscriptAsserter with default options
func NewTranscriptAsserter(t TestingT, opts ...TranscriptOption) *TranscriptAsserter {
	options := TranscriptAssertOptions{}
	defaults.SetDefaults(&options)
	for _, opt := range opts {
		opt(&options)
	}
	return &TranscriptAsserter{t: t, options: options}
}

// Assert compares actual entries against expected entries, order included
func (ta *TranscriptAsserter) Assert(actual, expected []string) bool {
	diff := ta.Diff(actual, expected)
	if diff != "" {
		ta.t.Errorf("Transcript assertion failed - unified diff:\n%s", diff)
		return false
	}
	return true
}

// Diff returns the unified diff between expected and actual, or "" when they match
func (ta *TranscriptAsserter) Diff(actual, expected []string) string {
	a := ta.render(actual)
	e := ta.render(expected)
	if a == e {
		return ""
	}

	edits := myers.ComputeEdits("", e, a)
	unified := fmt.Sprint(gotextdiff.ToUnified("expected", "actual", e, edits))
	if !ta.options.EnableColors {
		return unified
	}
	return colorizeUnifiedDiff(unified)
}

func (ta *TranscriptAsserter) render(entries []string) string {
	var sb strings.Builder
	for i, entry := range entries {
		fmt.Fprintf(&sb, "%03d %q%s", i, entry, ta.options.Separator)
	}
	return sb.String()
}

// colorizeUnifiedDiff applies colors to unified diff output
func colorizeUnifiedDiff(diff string) string {
	red := color.New(color.FgRed)
	red.EnableColor()
	green := color.New(color.FgGreen)
	green.EnableColor()
	cyan := color.New(color.FgCyan)
	cyan.EnableColor()

	lines := strings.Split(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			lines[i] = cyan.Sprint(line)
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			lines[i] = green.Sprint(line)
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			lines[i] = red.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}
