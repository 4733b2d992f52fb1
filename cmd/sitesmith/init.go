package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/spf13/cobra"
)

func initProjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "init",
		Short:        "Initialize a sitesmith project",
		Long:         "Initialize a sitesmith project by creating the .sitesmith directory, the output directory, and a default config.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			repoRoot, dotDir, err := projectDirs()
			if err != nil {
				return err
			}

			log.Info().Str("dir", dotDir).Msg("creating sitesmith directory")
			if err := os.MkdirAll(filepath.Join(dotDir, "logs"), 0o755); err != nil {
				return fmt.Errorf("create logs dir: %w", err)
			}

			cfg := config.Default()
			if err := os.MkdirAll(filepath.Join(repoRoot, cfg.OutputDir), 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			configPath := filepath.Join(dotDir, "config.json")
			if _, err := os.Stat(configPath); err == nil {
				log.Info().Msg("config.json already exists, skipping")
			} else {
				log.Info().Str("path", configPath).Msg("installing default config")
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal default config: %w", err)
				}
				if err := os.WriteFile(configPath, data, 0o644); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
			}

			fmt.Println("sitesmith initialized successfully")
			return nil
		},
	}
}
