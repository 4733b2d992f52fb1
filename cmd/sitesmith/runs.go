package main

import (
	"fmt"

	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect past runs",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsEventsCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:          "list",
		Short:        "List recent runs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			journalDB, _, closeFn, err := openJournal()
			if err != nil {
				return err
			}
			defer closeFn()

			runs, err := journal.NewStore(journalDB).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, r := range runs {
				score := "-"
				if r.Score != nil {
					score = fmt.Sprintf("%d", *r.Score)
				}
				style := okStyle
				if r.Status != "completed" {
					style = failStyle
				}
				fmt.Printf("%s  %s  %s  score %s  %s\n",
					mutedStyle.Render(r.CreatedAt),
					style.Render(fmt.Sprintf("%-9s", r.Status)),
					r.RunID[:8],
					score,
					truncate(r.Requirement, 60))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list")
	return cmd
}

func runsEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "events <run-id>",
		Short:        "Show the event timeline of a run",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			journalDB, _, closeFn, err := openJournal()
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := journal.NewStore(journalDB).Events(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("no events for run", args[0])
				return nil
			}
			for _, ev := range events {
				fmt.Printf("%s  %s  %s\n", mutedStyle.Render(ev.TS), titleStyle.Render(fmt.Sprintf("%-18s", ev.Type)), ev.Message)
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
