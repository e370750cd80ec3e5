// Package output renders ranked attention items for the terminal.
// Styling follows GitHub CLI principles: minimal, clean, scannable.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"headsup/internal/aggregate"
	"headsup/internal/model"
)

// Score band color styles. ANSI 256-color palette for broad terminal
// compatibility.
var (
	highScoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")) // Red for urgent items

	midScoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")) // Yellow for items worth a look

	lowScoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")) // Green for low urgency

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Renderer writes a ranked attention report to a writer.
type Renderer struct {
	writer io.Writer
	styled bool
}

// NewRenderer builds a renderer for stdout. Styling is enabled only when
// stdout is a terminal.
func NewRenderer() *Renderer {
	styled := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return &Renderer{writer: os.Stdout, styled: styled}
}

// NewRendererWithWriter builds a renderer with a custom writer (for testing).
func NewRendererWithWriter(w io.Writer, styled bool) *Renderer {
	return &Renderer{writer: w, styled: styled}
}

// RenderJSON writes the ranked items as an indented JSON array.
func (r *Renderer) RenderJSON(result *aggregate.Result) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Items)
}

// Render writes the human-readable ranked report.
func (r *Renderer) Render(owner string, result *aggregate.Result) error {
	title := fmt.Sprintf("Attention report for %s", owner)
	fmt.Fprintf(r.writer, "%s\n%s\n\n", title, strings.Repeat("─", len(title)))

	if len(result.Items) == 0 {
		fmt.Fprintln(r.writer, "Nothing needs your attention right now.")
	}

	for i, item := range result.Items {
		r.renderItem(i+1, item)
	}

	fmt.Fprintf(r.writer, "\n%d of %d items above threshold\n", len(result.Items), result.TotalFound)

	for src, reason := range result.Failed {
		fmt.Fprintf(r.writer, "%s\n", r.dim(fmt.Sprintf("! %s unavailable: %s", src, reason)))
	}
	return nil
}

func (r *Renderer) renderItem(rank int, item model.ActivityItem) {
	fmt.Fprintf(r.writer, "%2d. %s %s %s\n", rank,
		r.scoreLabel(item.Score),
		r.source(item.Source),
		item.Title)
	fmt.Fprintf(r.writer, "    %s\n", r.dim(item.Link))

	for _, action := range item.ActionItems {
		fmt.Fprintf(r.writer, "    → %s\n", action)
	}
	fmt.Fprintln(r.writer)
}

func (r *Renderer) scoreLabel(score float64) string {
	label := fmt.Sprintf("[%.2f]", score)
	if !r.styled {
		return label
	}
	switch {
	case score >= 0.7:
		return highScoreStyle.Render(label)
	case score >= 0.5:
		return midScoreStyle.Render(label)
	default:
		return lowScoreStyle.Render(label)
	}
}

func (r *Renderer) source(src model.Source) string {
	label := strings.ToUpper(string(src))
	if !r.styled {
		return label
	}
	return sourceStyle.Render(label)
}

func (r *Renderer) dim(text string) string {
	if !r.styled {
		return text
	}
	return dimStyle.Render(text)
}
