package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/sitesmith/sitesmith/internal/state"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "status",
		Short:        "Show the latest run snapshot",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, dotDir, err := projectDirs()
			if err != nil {
				return err
			}
			st, err := snapshotStore(dotDir).Load()
			if err != nil {
				if errors.Is(err, state.ErrNotFound) {
					fmt.Println("no snapshot yet, start with: sitesmith run")
					return nil
				}
				return err
			}

			if st.Plan != nil {
				fmt.Println(headerStyle.Render(st.Plan.ProjectName))
				for _, t := range st.Plan.Tasks {
					fmt.Printf("  %s %d %s\n", statusGlyph(t.Status), t.ID, t.Title)
				}
			}
			if st.Failure != nil {
				fmt.Println(failStyle.Render(fmt.Sprintf("failed in %s (%s): %s", st.Failure.Phase, st.Failure.Condition, st.Failure.Detail)))
			}
			if st.Evaluation != nil {
				return printEvaluation(st)
			}
			return nil
		},
	}
}

// printEvaluation renders the evaluation report as markdown.
func printEvaluation(st *state.ProjectState) error {
	var md strings.Builder
	fmt.Fprintf(&md, "# Evaluation: %d/100 (%s)\n\n", st.Evaluation.Score, st.Evaluation.Verdict)
	for _, f := range st.Evaluation.Findings {
		fmt.Fprintf(&md, "- %s\n", f)
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("render evaluation: %w", err)
	}
	fmt.Print(out)
	return nil
}
