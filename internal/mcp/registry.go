// Package mcp implements the Model Context Protocol surface: the static
// tool registry, the transport-agnostic method router, and the HTTP, SSE,
// and WebSocket adapters.
//
// DESIGN: Every transport decodes bytes into a jsonrpc.Request, hands it to
// the one shared Router, and encodes the jsonrpc.Response back out. Tool
// behavior, validation, and error shapes are therefore identical across
// transports by construction.
package mcp

import (
	"github.com/legco-tools/legco-search-mcp/internal/legco"
)

// ToolInfo is one entry in the tools/list payload.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry holds the static tool table. Built once at startup, read-only
// afterwards.
type Registry struct {
	defs  map[string]legco.ToolDef
	infos []ToolInfo
}

// NewRegistry builds the registry from the legco tool table.
func NewRegistry() *Registry {
	tools := legco.Tools()
	r := &Registry{
		defs:  make(map[string]legco.ToolDef, len(tools)),
		infos: make([]ToolInfo, 0, len(tools)),
	}
	for _, def := range tools {
		r.defs[def.Name] = def
		r.infos = append(r.infos, ToolInfo{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: inputSchema(def),
		})
	}
	return r
}

// List returns the tools/list entries.
func (r *Registry) List() []ToolInfo {
	return r.infos
}

// Lookup returns the definition for name.
func (r *Registry) Lookup(name string) (legco.ToolDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// inputSchema renders a tool's parameter constraints as a JSON Schema
// object, the shape MCP clients expect in tools/list.
func inputSchema(def legco.ToolDef) map[string]any {
	properties := make(map[string]any, len(def.Params))
	for _, spec := range def.Params {
		prop := map[string]any{"description": spec.Description}
		switch spec.Constraint.Kind {
		case legco.DateISO:
			prop["type"] = "string"
			prop["format"] = "date"
		case legco.EnumOf:
			prop["type"] = "string"
			prop["enum"] = spec.Constraint.Enum
		case legco.IntRange:
			prop["type"] = "integer"
			if spec.Constraint.Min != nil {
				prop["minimum"] = *spec.Constraint.Min
			}
			if spec.Constraint.Max != nil {
				prop["maximum"] = *spec.Constraint.Max
			}
		case legco.StringMaxLen:
			prop["type"] = "string"
			if spec.Constraint.MaxLen > 0 {
				prop["maxLength"] = spec.Constraint.MaxLen
			}
		}
		if spec.Default != nil {
			prop["default"] = spec.Default
		}
		properties[spec.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}
