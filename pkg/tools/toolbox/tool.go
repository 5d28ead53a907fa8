// Package toolbox defines the Tool descriptor shared by the MCP client, the
// MCP server, the registry and the model adapters.
package toolbox

import (
	"context"
	"encoding/json"
)

// emptyObjectSchema is advertised for tools that publish no input schema.
var emptyObjectSchema = json.RawMessage(`{"type":"object"}`)

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool describes one remotely invocable capability: its name, a
// human-readable description, and the JSON Schema of its input. Handler is
// only set for tools served locally.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Schema returns the input schema, or an empty object schema when none was
// published.
func (t Tool) Schema() json.RawMessage {
	if len(t.InputSchema) == 0 || string(t.InputSchema) == "null" {
		return emptyObjectSchema
	}
	return t.InputSchema
}

// Renamed returns a copy of t exposed under name.
func (t Tool) Renamed(name string) Tool {
	t.Name = name
	return t
}

// Names returns the names of tools in order.
func Names(tools []Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
