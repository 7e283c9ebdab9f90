// Package mcp exposes the calculator as MCP tools over stdio.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Param describes one tool argument.
type Param struct {
	Type        string
	Description string
	Required    bool
	Enum        []any
	Default     any
}

// ToolSpec describes a tool independently of the SDK.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]Param
}

// toMCPTool builds the SDK tool with a JSON Schema input.
func toMCPTool(spec ToolSpec) *mcpsdk.Tool {
	props := make(map[string]any, len(spec.Parameters))
	var required []string

	for name, p := range spec.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[name] = prop
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return &mcpsdk.Tool{
		Name:        spec.Name,
		Description: spec.Description,
		InputSchema: schema,
	}
}
