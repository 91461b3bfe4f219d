// Package tools defines the tools available to the agent.
package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`

	// InjectUser marks tools whose user_id argument is supplied by the
	// server from the authenticated session, never by the model.
	InjectUser bool `json:"-"`

	Handler func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Result is the outcome of one tool execution. Failures are carried as
// content so the model can read them and recover; they never abort the
// turn.
type Result struct {
	Content string
	IsError bool
}

// Registry holds available tools.
type Registry struct {
	tools  map[string]*Tool
	users  *identity.Store
	ledger *nutrition.Ledger
	logger *slog.Logger
}

// NewRegistry creates a tool registry backed by the user store and
// nutrition ledger.
func NewRegistry(users *identity.Store, ledger *nutrition.Ledger, logger *slog.Logger) *Registry {
	r := &Registry{
		tools:  make(map[string]*Tool),
		users:  users,
		ledger: ledger,
		logger: logger,
	}
	r.registerReadTools()
	r.registerWriteTools()
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tools in the LLM function-declaration format.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, t := range r.tools {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name on behalf of userID. The authenticated
// user id overwrites any user_id the model may have supplied. All
// failure modes, including handler panics, come back as an error
// Result rather than an error return.
func (r *Registry) Execute(ctx context.Context, userID, name string, args map[string]any) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			res = errResult("tool %s failed: internal error", name)
		}
	}()

	tool := r.tools[name]
	if tool == nil {
		return errResult("unknown tool: %s", name)
	}

	callArgs := make(map[string]any, len(args)+1)
	for k, v := range args {
		callArgs[k] = v
	}
	if tool.InjectUser {
		callArgs["user_id"] = userID
	}

	if missing := missingRequired(tool, callArgs); missing != "" {
		return errResult("tool %s: missing required parameter %q", name, missing)
	}

	out, err := tool.Handler(ctx, callArgs)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "error", err)
		return errResult("tool %s failed: %v", name, err)
	}

	r.logger.Debug("tool executed", "tool", name, "result_bytes", len(out))
	return Result{Content: out}
}

func errResult(format string, args ...any) Result {
	return Result{Content: fmt.Sprintf(format, args...), IsError: true}
}

// missingRequired returns the first required parameter absent from
// args, or "" when all are present.
func missingRequired(t *Tool, args map[string]any) string {
	required, _ := t.Parameters["required"].([]string)
	for _, name := range required {
		if v, ok := args[name]; !ok || v == nil {
			return name
		}
	}
	return ""
}
