package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sitesmith/sitesmith/internal/agents"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func planCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:          "plan [requirement]",
		Short:        "Plan a requirement without executing it",
		Long:         "Ask the planning agent to decompose a requirement and print the resulting task plan.",
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement := defaultRequirement
			if len(args) > 0 {
				requirement = strings.Join(args, " ")
			}

			repoRoot, _, err := projectDirs()
			if err != nil {
				return err
			}
			cfg, err := config.Load(repoRoot)
			if err != nil {
				return err
			}

			client, err := llm.New(cfg.LLM)
			if err != nil {
				return err
			}
			planner := agents.NewPlanner(client, cfg.Budgets.AdapterRetries, nil)
			p, err := planner.Plan(cmd.Context(), requirement)
			if err != nil {
				return err
			}

			switch output {
			case "yaml":
				data, err := yaml.Marshal(p)
				if err != nil {
					return fmt.Errorf("marshal plan: %w", err)
				}
				fmt.Print(string(data))
			case "json":
				data, err := json.MarshalIndent(p, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal plan: %w", err)
				}
				fmt.Println(string(data))
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}
