// Package cliui provides reusable terminal UI helpers (spinners, step
// indicators, segment and transcript rendering) for reel CLI commands.
package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/reel/pkg/eventstream"
	"github.com/papercomputeco/reel/pkg/segment"
	"github.com/papercomputeco/reel/pkg/utils"
)

var (
	SuccessMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	StepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	LabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	KeyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	ValueStyle   = lipgloss.NewStyle().Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	LangStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Italic(true)
	CodeStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step prints an animated spinner while fn runs, then replaces it with
// a ✓ or ✗ checkmark and elapsed time.
func Step(w io.Writer, msg string, fn func() error) error {
	done := make(chan struct{})
	var mu sync.Mutex

	go func() {
		frame := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			mu.Lock()
			fmt.Fprintf(w, "\r  %s %s",
				spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]),
				msg,
			)
			mu.Unlock()

			select {
			case <-done:
				return
			case <-ticker.C:
				frame++
			}
		}
	}()

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	close(done)

	mu.Lock()
	fmt.Fprintf(w, "\r  %s %s %s\n",
		Mark(err),
		msg,
		StepStyle.Render(fmt.Sprintf("(%s)", FormatDuration(elapsed))),
	)
	mu.Unlock()

	return err
}

// Mark returns a ✓ for nil errors or ✗ for non-nil errors.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration formats a duration for display (e.g. "12ms" or "3.2s").
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// RenderMarkdown renders markdown content for terminal display using glamour.
// The raw content is returned alongside any renderer error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content, err
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content, err
	}

	return rendered, nil
}

// RenderSegments writes segments in order: markdown through glamour, code
// inside a bordered box labeled with its language.
func RenderSegments(w io.Writer, segs []*segment.Segment) error {
	for _, seg := range segs {
		switch seg.Type {
		case segment.Code:
			label := seg.Language
			if label == "" {
				label = "code"
			}
			if !seg.Complete {
				label += " (unterminated)"
			}
			body := strings.TrimRight(seg.Content, "\n")
			if _, err := fmt.Fprintf(w, "%s\n%s\n", LangStyle.Render(label), CodeStyle.Render(body)); err != nil {
				return err
			}
		default:
			out, err := RenderMarkdown(seg.Content)
			if err != nil {
				out = seg.Content
			}
			if _, err := io.WriteString(w, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderTranscript writes a short labeled summary of a parsed response.
func RenderTranscript(w io.Writer, t *eventstream.Transcript) error {
	rows := [][2]string{
		{"session", t.SessionID},
		{"provider", t.Source.Provider},
	}
	if t.Meta != nil {
		rows = append(rows, [2]string{"model", t.Meta.Model})
	}
	rows = append(rows,
		[2]string{"finish", t.FinishReason},
		[2]string{"text", utils.Truncate(strings.ReplaceAll(t.Text, "\n", " "), 60)},
	)
	for _, tc := range t.ToolCalls {
		rows = append(rows, [2]string{"tool", fmt.Sprintf("%s %s", tc.FunctionName, utils.Truncate(tc.Arguments, 50))})
	}
	if t.Usage != nil {
		rows = append(rows, [2]string{"usage", fmt.Sprintf("%d in / %d out", t.Usage.PromptTokens, t.Usage.CompletionTokens)})
	}
	rows = append(rows, [2]string{"events", fmt.Sprintf("%d (%d payloads, %d dropped)", t.Stats.Events, t.Stats.Payloads, t.Stats.DroppedPayloads)})

	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", LabelStyle.Render(row[0]), ValueStyle.Render(row[1])); err != nil {
			return err
		}
	}
	return nil
}
