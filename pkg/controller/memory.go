package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/ikoma/pkg/logger"
)

var memorableKeywords = []string{"prefer", "like", "remember", "important", "project", "task", "learn"}

// persistMemory stores anything worth remembering from this run into
// vector memory: messages matching the original's keyword heuristic or
// longer than 100 characters, plus a note for every successful tool
// execution — ported from store_long_term_memory.
func (c *Controller) persistMemory(ctx context.Context, state *State) {
	if c.Memory == nil {
		return
	}

	var memorable []string
	recent := state.Messages
	if len(recent) > 4 {
		recent = recent[len(recent)-4:]
	}
	for _, m := range recent {
		if isMemorable(m.Content) {
			memorable = append(memorable, m.Content)
		}
	}
	for _, r := range state.ExecutionResults {
		if r.Error == "" {
			memorable = append(memorable, fmt.Sprintf("Successful execution: %s", r.ToolName))
		}
	}

	if len(memorable) == 0 {
		return
	}

	content := strings.Join(memorable, " ")
	embedding, err := c.LLM.Embed(ctx, content)
	if err != nil {
		logger.GetLogger().Warn("controller: embed memory failed, skipping persist", "error", err, "run_id", state.RunID)
		return
	}

	key := uuid.NewString()
	meta := map[string]string{
		"content":   content,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"context":   "conversation",
	}
	if err := c.Memory.Put(ctx, []string{memoryNamespaceRoot, state.UserID}, key, content, embedding, meta); err != nil {
		logger.GetLogger().Warn("controller: store memory failed", "error", err, "run_id", state.RunID)
	}
}

func isMemorable(content string) bool {
	if content == "" {
		return false
	}
	lower := strings.ToLower(content)
	for _, kw := range memorableKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return len(content) > 100
}
