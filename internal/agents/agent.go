package agents

import (
	"bytes"
	"context"

	"github.com/cenkalti/backoff/v5"
	"github.com/sitesmith/sitesmith/internal/llm"
)

// ThoughtFunc records an agent's free-text reasoning note. The orchestrator
// wires it to the role's memory; adapters never write project state
// themselves.
type ThoughtFunc func(thought string)

func noThought(string) {}

// completeWithRetry calls the reasoning service, retrying transient
// (network/timeout class) failures with exponential backoff up to
// maxAttempts. Structural failures surface immediately.
func completeWithRetry(ctx context.Context, client llm.Client, conversation []llm.Message, tools []llm.ToolDefinition, maxAttempts int) (llm.Response, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	operation := func() (llm.Response, error) {
		resp, err := client.Complete(ctx, conversation, tools)
		if err != nil && !llm.Transient(err) {
			return llm.Response{}, backoff.Permanent(err)
		}
		return resp, err
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(maxAttempts)),
	)
}

// extractJSON recovers the outermost JSON object from model output that
// wraps it in prose or a markdown fence.
func extractJSON(data []byte) ([]byte, bool) {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start == -1 || end == -1 || start >= end {
		return nil, false
	}
	return data[start : end+1], true
}
