package message

import (
	"testing"

	"github.com/germanamz/mcpchat/pkg/chats/content"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	msg := New("user", User, content.Text{Text: "hello"}, content.Text{Text: "again"})

	assert.Equal(t, "user", msg.Sender)
	assert.Equal(t, User, msg.Role)
	assert.Len(t, msg.Parts, 2)
}

func TestNewText(t *testing.T) {
	msg := NewText("", Assistant, "hi there")

	assert.Equal(t, Assistant, msg.Role)
	assert.Len(t, msg.Parts, 1)
	assert.Equal(t, "hi there", msg.Parts[0].(content.Text).Text)
}

func TestMessage_TextContent(t *testing.T) {
	msg := New("", Assistant,
		content.Text{Text: "hello "},
		content.ToolCall{ID: "1", Name: "get_location"},
		content.Text{Text: "world"},
	)

	assert.Equal(t, "hello world", msg.TextContent())
}

func TestMessage_TextContent_NoParts(t *testing.T) {
	msg := New("", User)
	assert.Empty(t, msg.TextContent())
}

func TestMessage_ToolCalls(t *testing.T) {
	tc1 := content.ToolCall{ID: "1", Name: "get_location", Arguments: `{}`}
	tc2 := content.ToolCall{ID: "2", Name: "get_weather", Arguments: `{"city":"Paris"}`}
	msg := New("", Assistant,
		content.Text{Text: "let me check"},
		tc1,
		tc2,
	)

	calls := msg.ToolCalls()
	assert.Equal(t, []content.ToolCall{tc1, tc2}, calls)
}

func TestMessage_ToolCalls_None(t *testing.T) {
	msg := NewText("", User, "hello")
	assert.Empty(t, msg.ToolCalls())
}

func TestMessage_ToolResults(t *testing.T) {
	tr := content.ToolResult{ToolCallID: "1", Content: "Berlin"}
	msg := New("get_location", Tool, tr)

	assert.Equal(t, []content.ToolResult{tr}, msg.ToolResults())
	assert.Empty(t, NewText("", User, "x").ToolResults())
}
