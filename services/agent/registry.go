package agent

import (
	"context"
	"fmt"

	"trackup/models"
	"trackup/services/llm"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
)

// AgentTool interface that all tools must implement. Call never returns a Go
// error: failures are reported through the result so the model can react.
type AgentTool interface {
	Name() string
	Description() string
	Schema() *jsonschema.Schema
	Call(ctx context.Context, input string) models.ToolResult
}

// Registry holds the tools offered to the model, in declaration order.
type Registry struct {
	tools  []AgentTool
	byName map[string]AgentTool
}

func NewRegistry(tools ...AgentTool) (*Registry, error) {
	r := &Registry{byName: make(map[string]AgentTool, len(tools))}
	for _, tool := range tools {
		name := tool.Name()
		if name == "" {
			return nil, fmt.Errorf("tool %T has no name", tool)
		}
		if _, dup := r.byName[name]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", name)
		}
		r.byName[name] = tool
		r.tools = append(r.tools, tool)
	}
	return r, nil
}

func (r *Registry) Lookup(name string) (AgentTool, bool) {
	tool, ok := r.byName[name]
	return tool, ok
}

func (r *Registry) Names() []string {
	return lo.Map(r.tools, func(t AgentTool, _ int) string { return t.Name() })
}

// Definitions describes every tool for the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	return lo.Map(r.tools, func(t AgentTool, _ int) llm.ToolDefinition {
		return llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		}
	})
}
