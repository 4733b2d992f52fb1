package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sitesmith/sitesmith/internal/llm"
)

// ErrOutsideBase reports a path escaping the output directory sandbox.
var ErrOutsideBase = fmt.Errorf("path escapes the output directory")

// FileTools reads and writes artifacts under a single base directory.
// Every path argument is logical (relative); escaping the base is rejected.
type FileTools struct {
	baseDir string
}

// NewFileTools creates file tools rooted at baseDir, creating it if needed.
func NewFileTools(baseDir string) (*FileTools, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileTools{baseDir: abs}, nil
}

// BaseDir returns the absolute output directory.
func (f *FileTools) BaseDir() string {
	return f.baseDir
}

func (f *FileTools) resolve(logical string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(logical))
	if cleaned == "." || cleaned == "" {
		return f.baseDir, nil
	}
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideBase, logical)
	}
	return filepath.Join(f.baseDir, cleaned), nil
}

// CreateFile writes content to the logical path, creating parent
// directories as needed.
func (f *FileTools) CreateFile(logical, content string) error {
	full, err := f.resolve(logical)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent dirs for %s: %w", logical, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", logical, err)
	}
	return nil
}

// ReadFile returns the content at the logical path.
func (f *FileTools) ReadFile(logical string) (string, error) {
	full, err := f.resolve(logical)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", logical, err)
	}
	return string(data), nil
}

// ListDirectory lists entry names under the logical path.
func (f *FileTools) ListDirectory(logical string) ([]string, error) {
	full, err := f.resolve(logical)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", logical, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

type createFileArgs struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

type pathArgs struct {
	Path string `mapstructure:"path"`
}

// CreateFileTool exposes CreateFile to the reasoning service.
type CreateFileTool struct {
	Files *FileTools
	// Created collects the logical paths written during one task, in order.
	Created []string
}

// Definition describes the create_file tool.
func (t *CreateFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "create_file",
		Description: "Create or overwrite a file at the given relative path with the given content.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string", "description": "Relative file path, e.g. css/style.css"},
				"content": map[string]any{"type": "string", "description": "Complete file content"},
			},
			"required": []string{"path", "content"},
		},
	}
}

// Invoke writes the file and records the logical path.
func (t *CreateFileTool) Invoke(_ context.Context, raw map[string]any) (any, error) {
	var args createFileArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("create_file arguments: %w", err)
	}
	if args.Path == "" {
		return nil, fmt.Errorf("create_file requires a path")
	}
	if err := t.Files.CreateFile(args.Path, args.Content); err != nil {
		return nil, err
	}
	t.Created = append(t.Created, args.Path)
	return map[string]any{"status": "success", "path": args.Path, "bytes": len(args.Content)}, nil
}

// ReadFileTool exposes ReadFile to the reasoning service.
type ReadFileTool struct {
	Files *FileTools
}

// Definition describes the read_file tool.
func (t *ReadFileTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "read_file",
		Description: "Read the content of a previously created file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Relative file path"},
			},
			"required": []string{"path"},
		},
	}
}

// Invoke reads the file.
func (t *ReadFileTool) Invoke(_ context.Context, raw map[string]any) (any, error) {
	var args pathArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("read_file arguments: %w", err)
	}
	content, err := t.Files.ReadFile(args.Path)
	if err != nil {
		return map[string]any{"status": "not_found", "path": args.Path}, nil
	}
	return map[string]any{"status": "success", "path": args.Path, "content": content}, nil
}

// ListDirectoryTool exposes ListDirectory to the reasoning service.
type ListDirectoryTool struct {
	Files *FileTools
}

// Definition describes the list_directory tool.
func (t *ListDirectoryTool) Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        "list_directory",
		Description: "List files and directories under a relative path of the output directory.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string", "description": "Relative directory path; empty for the root"},
			},
		},
	}
}

// Invoke lists the directory.
func (t *ListDirectoryTool) Invoke(_ context.Context, raw map[string]any) (any, error) {
	var args pathArgs
	if err := mapstructure.Decode(raw, &args); err != nil {
		return nil, fmt.Errorf("list_directory arguments: %w", err)
	}
	entries, err := t.Files.ListDirectory(args.Path)
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": "success", "entries": entries}, nil
}
