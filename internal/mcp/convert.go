// Package mcp exposes appraise task data as MCP tools over stdio.
package mcp

import (
	"sort"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// paramDef describes one tool parameter.
type paramDef struct {
	typ         string
	description string
	required    bool
}

// toolDef describes one appraise MCP tool.
type toolDef struct {
	name        string
	description string
	params      map[string]paramDef
}

// mcpTool converts a toolDef to an mcp.Tool with JSON Schema.
func (d toolDef) mcpTool() *mcpsdk.Tool {
	props := make(map[string]any, len(d.params))
	var required []string

	for name, p := range d.params {
		props[name] = map[string]any{
			"type":        p.typ,
			"description": p.description,
		}
		if p.required {
			required = append(required, name)
		}
	}

	// Sort required for deterministic output
	sort.Strings(required)

	inputSchema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		inputSchema["required"] = required
	}

	return &mcpsdk.Tool{
		Name:        d.name,
		Description: d.description,
		InputSchema: inputSchema,
	}
}
