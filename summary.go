package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)

	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))
)

// Summary renders the result of a run as a boxed table.
func Summary(cfg Config, r *RunResult) string {
	p := r.Params
	rows := [][2]string{
		{"cap", fmt.Sprintf("Ø%.2f × %.2f mm, top %.2f, walls %.2f", p.DCap, p.HCap, p.TCapTop, p.TCapWalls)},
		{"stem slot", fmt.Sprintf("%.3f × %.3f × %.3f mm", p.LStem(), p.TStem(), p.HStem())},
		{"stages", fmt.Sprintf("%d", len(r.Build.Completed))},
		{"mesh", fmt.Sprintf("%d triangles, %d vertices (%d cells)", r.Stats.Triangles, r.Stats.Vertices, r.Stats.Cells)},
		{"volume", fmt.Sprintf("%.2f mm³", r.Stats.Volume)},
		{"step", r.STEP},
		{"stl", r.STL},
	}
	if r.PNG != "" {
		rows = append(rows, [2]string{"png", r.PNG})
	}
	rows = append(rows, [2]string{"elapsed", r.Elapsed.Round(1e6).String()})

	lines := []string{titleStyle.Render(cfg.Name)}
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}
