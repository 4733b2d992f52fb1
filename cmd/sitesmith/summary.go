package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/orchestrator"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func printRunSummary(res orchestrator.Result, cfg config.Config) {
	if res.State == nil {
		return
	}

	switch res.Phase {
	case orchestrator.PhaseDone:
		fmt.Println(okStyle.Render("run completed"))
	default:
		fmt.Println(failStyle.Render("run " + string(res.Phase)))
	}

	if res.State.Plan != nil {
		fmt.Println(titleStyle.Render(res.State.Plan.ProjectName))
		for _, t := range res.State.Plan.Tasks {
			fmt.Printf("  %s %d %s\n", statusGlyph(t.Status), t.ID, t.Title)
		}
	}
	if res.Report != nil {
		fmt.Printf("%s %d/100 (%s, passing at %d)\n",
			titleStyle.Render("score"), res.Report.Score, res.Report.Verdict, cfg.Evaluation.PassingThreshold)
	}
	if res.State.Failure != nil {
		fmt.Println(failStyle.Render(fmt.Sprintf("failure in %s: %s", res.State.Failure.Phase, res.State.Failure.Detail)))
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("%d file(s) under %s", len(res.State.CreatedFiles), cfg.OutputDir)))
}

func statusGlyph(status model.TaskStatus) string {
	switch status {
	case model.StatusCompleted:
		return okStyle.Render("✓")
	case model.StatusFailed:
		return failStyle.Render("✗")
	case model.StatusInProgress:
		return warnStyle.Render("…")
	default:
		return mutedStyle.Render("·")
	}
}
