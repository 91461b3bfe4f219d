// Package agent implements the core agent loop: a turn alternates
// between model calls and tool execution until the model answers
// without requesting tools, or the turn's tool budget runs out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvanders/macroai/internal/checkpoint"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/llm"
	"github.com/mvanders/macroai/internal/prompts"
	"github.com/mvanders/macroai/internal/tools"
)

// Loop drives agent turns over checkpointed conversations.
type Loop struct {
	logger       *slog.Logger
	checkpoints  *checkpoint.Store
	registry     *tools.Registry
	maxToolCalls int
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	Content       string
	ToolCallsUsed int
	InputTokens   int
	OutputTokens  int
}

// NewLoop creates an agent loop. maxToolCalls bounds tool executions
// per turn; zero means the default.
func NewLoop(logger *slog.Logger, checkpoints *checkpoint.Store, registry *tools.Registry, maxToolCalls int) *Loop {
	return &Loop{
		logger:       logger,
		checkpoints:  checkpoints,
		registry:     registry,
		maxToolCalls: maxToolCalls,
	}
}

// RunTurn executes one user turn for user on the given session.
//
// The conversation is loaded from its checkpoint, the user message is
// appended, and the model is called repeatedly: each response is
// persisted as soon as it arrives, tool calls are executed and their
// results persisted as a batch, and the loop ends when the model
// responds without tool calls or the turn budget is exhausted.
//
// A model error aborts the turn with the last persisted checkpoint
// intact; the failed turn's user message is not saved, so a retry
// starts clean.
func (l *Loop) RunTurn(ctx context.Context, client llm.Client, model string, user *identity.User, sessionID, userText string, onToken llm.StreamCallback) (*TurnResult, error) {
	start := time.Now()

	history, meta, err := l.checkpoints.LoadWithMetadata(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if meta == nil {
		meta = map[string]string{"user_id": user.ID}
	}

	history = append(history, llm.Message{Role: "user", Content: userText})

	toolDefs := l.registry.List()
	budget := NewTurnBudget(l.maxToolCalls)
	result := &TurnResult{}

	l.logger.Info("turn started",
		"session", sessionID,
		"user", user.ID,
		"model", model,
		"history", len(history),
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn cancelled: %w", err)
		}

		resp, err := client.ChatStream(ctx, model, l.withSystem(history), toolDefs, onToken)
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens

		history = append(history, resp.Message)
		if err := l.checkpoints.Save(sessionID, history, meta); err != nil {
			return nil, fmt.Errorf("save checkpoint: %w", err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			result.Content = resp.Message.Content
			break
		}

		if budget.Exhausted() {
			l.logger.Warn("tool call limit reached, forcing end",
				"session", sessionID,
				"used", budget.Used(),
			)
			result.Content = resp.Message.Content
			break
		}

		for _, tc := range resp.Message.ToolCalls {
			l.logger.Debug("executing tool", "session", sessionID, "tool", tc.Name)
			res := l.registry.Execute(ctx, user.ID, tc.Name, tc.Arguments)
			content := res.Content
			if res.IsError {
				content = fmt.Sprintf("Error calling %s: %s", tc.Name, res.Content)
			}
			history = append(history, llm.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}
		budget.Spend(len(resp.Message.ToolCalls))
		result.ToolCallsUsed = budget.Used()

		if err := l.checkpoints.Save(sessionID, history, meta); err != nil {
			return nil, fmt.Errorf("save checkpoint: %w", err)
		}
	}

	if result.Content == "" {
		result.Content = prompts.EmptyResponseFallback
	}

	l.logger.Info("turn completed",
		"session", sessionID,
		"tool_calls", result.ToolCallsUsed,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return result, nil
}

// withSystem prepends the system prompt. The prompt is never
// persisted; checkpoints hold only user, assistant, and tool messages.
func (l *Loop) withSystem(history []llm.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: prompts.System})
	return append(msgs, history...)
}

// History returns the persisted conversation for a session.
func (l *Loop) History(sessionID string) ([]llm.Message, error) {
	return l.checkpoints.Load(sessionID)
}
