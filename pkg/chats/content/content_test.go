package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPart_Kinds(t *testing.T) {
	parts := []Part{
		Text{Text: "hi"},
		ToolCall{ID: "1"},
		ToolResult{ToolCallID: "1"},
	}

	expected := []string{"text", "tool_call", "tool_result"}
	for i, p := range parts {
		assert.Equal(t, expected[i], p.PartKind())
	}
}

func TestToolCall_ParseArguments(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{name: "empty", args: "", want: `{}`},
		{name: "blank", args: "  \n", want: `{}`},
		{name: "null", args: "null", want: `{}`},
		{name: "object", args: `{"city": "Paris"}`, want: `{"city":"Paris"}`},
		{name: "nested", args: "{\n  \"a\": {\"b\": [1, 2]}\n}", want: `{"a":{"b":[1,2]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToolCall{Name: "x", Arguments: tt.args}.ParseArguments()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestToolCall_ParseArguments_Invalid(t *testing.T) {
	tests := []string{`{"city":`, `[1,2]`, `"text"`}

	for _, args := range tests {
		_, err := ToolCall{Name: "get_weather", Arguments: args}.ParseArguments()
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "get_weather")
	}
}
