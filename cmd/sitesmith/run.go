package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/sitesmith/sitesmith/internal/logging"
	"github.com/spf13/cobra"
)

// defaultRequirement is used when the run command gets no argument.
const defaultRequirement = "Build a static website that shows a daily curated feed of arXiv cs.AI papers. " +
	"It needs a homepage listing recent papers with title, authors, and abstract, a category page, " +
	"a paper detail view with citation info, shared styling, and the JavaScript to render the paper data."

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "run [requirement]",
		Short:        "Run the full planning, build, and evaluation loop",
		Long:         "Run the orchestration loop for a requirement. Without an argument the built-in arXiv site requirement is used.",
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement := defaultRequirement
			if len(args) > 0 {
				requirement = strings.Join(args, " ")
			}

			journalDB, repoRoot, closeFn, err := openJournal()
			if err != nil {
				return err
			}
			defer closeFn()

			_, dotDir, err := projectDirs()
			if err != nil {
				return err
			}
			logPath, err := logging.InitWithFile(debug, filepath.Join(dotDir, "logs"))
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			log.Info().Str("log", logPath).Msg("logging to file")

			cfg, err := config.Load(repoRoot)
			if err != nil {
				return err
			}

			store := snapshotStore(dotDir)
			orch, err := buildOrchestrator(cfg, repoRoot, store, journal.NewStore(journalDB))
			if err != nil {
				return err
			}

			res, err := orch.Run(cmd.Context(), requirement)
			printRunSummary(res, cfg)
			if err != nil {
				return fmt.Errorf("run %s: %w", res.RunID, err)
			}
			return nil
		},
	}
	return cmd
}
