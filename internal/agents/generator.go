package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sitesmith/sitesmith/internal/llm"
	"github.com/sitesmith/sitesmith/internal/model"
	"github.com/sitesmith/sitesmith/internal/protocol"
	"github.com/sitesmith/sitesmith/internal/tools"
)

// maxToolIterations bounds the tool-call loop for a single task so a
// looping model cannot stall the run.
const maxToolIterations = 5

// Generator executes one task at a time by driving the reasoning service
// through the capability tools.
type Generator struct {
	client  llm.Client
	files   *tools.FileTools
	extras  []tools.Tool
	retries int
	thought ThoughtFunc
}

// NewGenerator builds a generator writing under files' base directory.
// extras are additional capability tools (records fetch, web search)
// offered alongside the file tools.
func NewGenerator(client llm.Client, files *tools.FileTools, extras []tools.Tool, retries int, thought ThoughtFunc) *Generator {
	if thought == nil {
		thought = noThought
	}
	return &Generator{client: client, files: files, extras: extras, retries: retries, thought: thought}
}

// Execute carries out one task assignment and reports the artifacts it
// produced. Failures come back as *ExecutionFailure so the caller can
// decide between re-queue and abort.
func (g *Generator) Execute(ctx context.Context, assignment protocol.TaskAssignment) (model.TaskResult, error) {
	task := assignment.Task
	g.thought(fmt.Sprintf("Starting task %d: %s", task.ID, task.Title))

	createTool := &tools.CreateFileTool{Files: g.files}
	registry := tools.NewRegistry(append([]tools.Tool{
		createTool,
		&tools.ReadFileTool{Files: g.files},
		&tools.ListDirectoryTool{Files: g.files},
	}, g.extras...)...)
	defs := registry.Definitions()

	conversation := []llm.Message{
		llm.SystemMessage(generatorSystemPrompt),
		llm.UserMessage(taskPrompt(assignment)),
	}

	var summary string
	for i := 0; i < maxToolIterations; i++ {
		resp, err := completeWithRetry(ctx, g.client, conversation, defs, g.retries)
		if err != nil {
			return model.TaskResult{}, &ExecutionFailure{TaskID: task.ID, Transient: llm.Transient(err), Err: err}
		}
		if len(resp.ToolCalls) == 0 {
			summary = strings.TrimSpace(resp.Content)
			break
		}

		conversation = append(conversation, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			out, err := registry.Invoke(ctx, call)
			if err != nil {
				return model.TaskResult{}, &ExecutionFailure{TaskID: task.ID, Err: fmt.Errorf("tool %s: %w", call.Name, err)}
			}
			g.thought(fmt.Sprintf("Task %d used tool %s", task.ID, call.Name))
			conversation = append(conversation, llm.ToolResultMessage(call.ID, out))
		}
	}

	created := createTool.Created
	if len(created) == 0 {
		// Some models answer with a fenced code block instead of calling
		// the tool. Salvage it into the task's target path.
		path, err := g.salvageCodeBlock(task, summary)
		if err != nil {
			return model.TaskResult{}, &ExecutionFailure{TaskID: task.ID, Err: err}
		}
		created = []string{path}
	}

	g.thought(fmt.Sprintf("Task %d produced %d file(s)", task.ID, len(created)))
	return model.TaskResult{
		TaskID:        task.ID,
		ArtifactPaths: created,
		Notes:         summary,
	}, nil
}

var codeBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")

func (g *Generator) salvageCodeBlock(task model.Task, summary string) (string, error) {
	if task.TargetPath == "" {
		return "", fmt.Errorf("no files created and task has no target path")
	}
	match := codeBlockRe.FindStringSubmatch(summary)
	if match == nil {
		return "", fmt.Errorf("no files created and response has no code block")
	}
	if err := g.files.CreateFile(task.TargetPath, match[1]); err != nil {
		return "", fmt.Errorf("write salvaged content: %w", err)
	}
	return task.TargetPath, nil
}

func taskPrompt(assignment protocol.TaskAssignment) string {
	task := assignment.Task
	c := assignment.Context

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", c.ProjectName)
	if c.ArchitectureNotes != "" {
		fmt.Fprintf(&sb, "Architecture: %s\n", c.ArchitectureNotes)
	}
	fmt.Fprintf(&sb, "\nTask %d: %s\n", task.ID, task.Title)
	if task.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", task.Description)
	}
	if task.TargetPath != "" {
		fmt.Fprintf(&sb, "Target File: %s\n", task.TargetPath)
	}
	if len(c.RecentTasks) > 0 {
		sb.WriteString("\nRecently completed tasks:\n")
		for _, t := range c.RecentTasks {
			fmt.Fprintf(&sb, "- [%d] %s\n", t.ID, t.Title)
		}
	}
	if len(c.RecentArtifacts) > 0 {
		sb.WriteString("\nExisting project files:\n")
		for _, p := range c.RecentArtifacts {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}
	sb.WriteString("\nImplement this task now.")
	return sb.String()
}
