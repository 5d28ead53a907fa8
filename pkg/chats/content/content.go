// Package content defines the parts a transcript message is made of.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall is a model-issued request to invoke a named tool. ID is the
// correlation identifier the matching ToolResult must carry. Arguments keeps
// the serialized JSON exactly as the model produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ParseArguments decodes Arguments into a key-value payload and returns it
// re-encoded as compact JSON. Blank arguments decode to an empty object.
func (tc ToolCall) ParseArguments() (json.RawMessage, error) {
	raw := strings.TrimSpace(tc.Arguments)
	if raw == "" {
		return json.RawMessage(`{}`), nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("tool call %q: parse arguments: %w", tc.Name, err)
	}
	if args == nil {
		return json.RawMessage(`{}`), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, fmt.Errorf("tool call %q: compact arguments: %w", tc.Name, err)
	}

	return json.RawMessage(buf.Bytes()), nil
}

// ToolResult is the output of one tool invocation, sent back to the model.
type ToolResult struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
