package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sitesmith/sitesmith/internal/agents"
	"github.com/sitesmith/sitesmith/internal/config"
	"github.com/sitesmith/sitesmith/internal/journal"
	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/sitesmith/sitesmith/internal/orchestrator"
	"github.com/sitesmith/sitesmith/internal/protocol"
	"github.com/sitesmith/sitesmith/internal/state"
	"github.com/sitesmith/sitesmith/internal/tools"
)

const snapshotFile = "snapshot.json"

func projectDirs() (repoRoot, dotDir string, err error) {
	repoRoot, err = os.Getwd()
	if err != nil {
		return "", "", err
	}
	return repoRoot, filepath.Join(repoRoot, ".sitesmith"), nil
}

func openJournal() (*sql.DB, string, func(), error) {
	repoRoot, dotDir, err := projectDirs()
	if err != nil {
		return nil, "", func() {}, err
	}
	if err := os.MkdirAll(dotDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	dbPath := filepath.Join(dotDir, "journal.db")
	journalDB, err := journal.Open(dbPath)
	if err != nil {
		return nil, "", func() {}, err
	}
	return journalDB, repoRoot, func() { _ = journalDB.Close() }, nil
}

func snapshotStore(dotDir string) *state.Store {
	return state.NewStore(filepath.Join(dotDir, snapshotFile))
}

// extraTools assembles the optional capability tools from config. outputDir
// scopes the command runner; commands never leave it.
func extraTools(cfg config.Config, outputDir string) ([]tools.Tool, error) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	var extras []tools.Tool
	if cfg.Tools.EnableRecords {
		extras = append(extras, &tools.FetchRecordsTool{
			Client: tools.NewRecordsClient(cfg.Tools.RecordsBaseURL, httpClient),
		})
	}
	if cfg.Tools.EnableWebSearch {
		extras = append(extras, &tools.WebSearchTool{
			Client: tools.NewSearchClient(cfg.Tools.SearchAPIKeyEnv, httpClient),
		})
	}
	if cfg.Tools.EnableCommands {
		runner, err := tools.NewCommandRunner(outputDir)
		if err != nil {
			return nil, err
		}
		extras = append(extras, &tools.RunCommandTool{Runner: runner})
	}
	return extras, nil
}

// buildOrchestrator wires the reasoning client, tools, and agent adapters
// into an orchestrator over the given stores.
func buildOrchestrator(cfg config.Config, repoRoot string, store *state.Store, rec orchestrator.Recorder) (*orchestrator.Orchestrator, error) {
	client, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, err
	}
	outputDir := cfg.OutputDir
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(repoRoot, outputDir)
	}
	files, err := tools.NewFileTools(outputDir)
	if err != nil {
		return nil, fmt.Errorf("prepare output dir: %w", err)
	}

	var orch *orchestrator.Orchestrator
	thoughtFor := func(role protocol.Role) agents.ThoughtFunc {
		return func(thought string) { orch.RecordThought(role, thought) }
	}
	extras, err := extraTools(cfg, outputDir)
	if err != nil {
		return nil, err
	}
	retries := cfg.Budgets.AdapterRetries
	planner := agents.NewPlanner(client, retries, thoughtFor(protocol.RolePlanningAgent))
	generator := agents.NewGenerator(client, files, extras, retries, thoughtFor(protocol.RoleCodeGenerationAgent))
	evaluator := agents.NewEvaluator(client, files, retries, thoughtFor(protocol.RoleEvaluationAgent))

	orch = orchestrator.New(cfg, planner, generator, evaluator, store, rec)
	return orch, nil
}
