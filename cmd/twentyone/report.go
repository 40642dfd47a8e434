package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/twentyone/internal/client"
	"github.com/lox/twentyone/internal/game"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	lossStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	tieStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// printStats writes a summary line and one coloured line per hand
func printStats(w io.Writer, label string, stats client.Stats, verbose bool) {
	_, _ = fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s: %d hands, %d won, %d lost, %d tied",
		label, stats.Hands, stats.Wins, stats.Losses, stats.Ties)))
	if !verbose {
		return
	}
	for _, r := range stats.Results {
		style := tieStyle
		switch r.Outcome {
		case game.PlayerWins.String():
			style = winStyle
		case game.DealerWins.String():
			style = lossStyle
		}
		_, _ = fmt.Fprintln(w, "  "+style.Render(r.Line))
	}
}
