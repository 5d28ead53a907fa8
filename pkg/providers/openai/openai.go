// Package openai provides a Completer implementation for OpenAI-compatible
// Chat Completions APIs, built on the official openai-go SDK.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/germanamz/mcpchat/pkg/chats/chat"
	"github.com/germanamz/mcpchat/pkg/chats/content"
	"github.com/germanamz/mcpchat/pkg/chats/message"
	"github.com/germanamz/mcpchat/pkg/modeladapter"
	"github.com/germanamz/mcpchat/pkg/modeladapter/usage"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// DefaultMaxRetries is the number of SDK retries on transient failures.
const DefaultMaxRetries = 2

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the Chat Completions API.
// Settings on the embedded ModelAdapter must be final before the first call
// to Complete.
type Adapter struct {
	modeladapter.ModelAdapter

	once   sync.Once
	client sdk.Client
}

// New creates an Adapter. The baseURL includes the version path, for example
// "https://api.openai.com/v1". An empty baseURL means DefaultBaseURL.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{}
	a.BaseURL = baseURL
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.MaxRetries = DefaultMaxRetries

	return a
}

// Complete sends the transcript and the tool list to the API and returns the
// assistant's reply: text, tool calls, or both.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error) {
	a.once.Do(func() {
		a.client = sdk.NewClient(a.requestOptions()...)
	})

	params, err := a.buildParams(c, tools)
	if err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", err)
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", convertError(err))
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	})

	if len(resp.Choices) == 0 {
		return message.Message{}, errors.New("openai: empty choices in response")
	}

	return a.parseMessage(resp.Choices[0].Message)
}

func (a *Adapter) requestOptions() []option.RequestOption {
	opts := []option.RequestOption{
		option.WithBaseURL(a.BaseURL),
		option.WithMaxRetries(max(a.MaxRetries, 0)),
	}

	if a.Auth.IsBearer() {
		opts = append(opts, option.WithAPIKey(a.Auth.Key))
	} else if name, value, ok := a.Auth.HeaderValue(); ok {
		opts = append(opts, option.WithHeaderDel("Authorization"), option.WithHeader(name, value))
	}

	for k, v := range a.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	if a.Client != nil {
		opts = append(opts, option.WithHTTPClient(a.Client))
	}

	return opts
}

// --- conversion helpers ---

func (a *Adapter) buildParams(c *chat.Chat, tools []toolbox.Tool) (sdk.ChatCompletionNewParams, error) {
	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(a.Name),
	}

	if a.MaxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(a.MaxTokens))
	}
	if a.Temperature != 0 {
		params.Temperature = sdk.Float(a.Temperature)
	}

	for _, t := range tools {
		def, err := toolDefinition(t)
		if err != nil {
			return params, err
		}
		params.Tools = append(params.Tools, sdk.ChatCompletionFunctionTool(def))
	}

	for _, m := range c.Messages() {
		params.Messages = append(params.Messages, toParams(m)...)
	}

	return params, nil
}

func toolDefinition(t toolbox.Tool) (shared.FunctionDefinitionParam, error) {
	var schema map[string]any
	if err := json.Unmarshal(t.Schema(), &schema); err != nil {
		return shared.FunctionDefinitionParam{}, fmt.Errorf("tool %q: input schema: %w", t.Name, err)
	}

	def := shared.FunctionDefinitionParam{
		Name:       t.Name,
		Parameters: shared.FunctionParameters(schema),
	}
	if t.Description != "" {
		def.Description = sdk.String(t.Description)
	}

	return def, nil
}

func toParams(m message.Message) []sdk.ChatCompletionMessageParamUnion {
	switch m.Role {
	case message.System:
		return []sdk.ChatCompletionMessageParamUnion{sdk.SystemMessage(m.TextContent())}

	case message.User:
		return []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(m.TextContent())}

	case message.Assistant:
		var (
			texts []string
			calls []sdk.ChatCompletionMessageToolCallUnionParam
		)
		for _, p := range m.Parts {
			switch v := p.(type) {
			case content.Text:
				texts = append(texts, v.Text)
			case content.ToolCall:
				calls = append(calls, sdk.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &sdk.ChatCompletionMessageFunctionToolCallParam{
						ID: v.ID,
						Function: sdk.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      v.Name,
							Arguments: v.Arguments,
						},
					},
				})
			}
		}

		msg := &sdk.ChatCompletionAssistantMessageParam{ToolCalls: calls}
		if text := strings.Join(texts, ""); text != "" || len(calls) == 0 {
			msg.Content.OfString = sdk.String(text)
		}
		return []sdk.ChatCompletionMessageParamUnion{{OfAssistant: msg}}

	case message.Tool:
		var out []sdk.ChatCompletionMessageParamUnion
		for _, tr := range m.ToolResults() {
			out = append(out, sdk.ToolMessage(tr.Content, tr.ToolCallID))
		}
		return out
	}

	return nil
}

// parseMessage converts the reply. Only function tool calls can be routed;
// any other kind fails the completion instead of being dropped.
func (a *Adapter) parseMessage(msg sdk.ChatCompletionMessage) (message.Message, error) {
	var parts []content.Part

	if msg.Content != "" {
		parts = append(parts, content.Text{Text: msg.Content})
	}

	for _, tc := range msg.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			return message.Message{}, fmt.Errorf("openai: unsupported tool call type %q (id %s)", tc.Type, tc.ID)
		}
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return message.New(a.Name, message.Assistant, parts...), nil
}

// convertError maps SDK API errors to modeladapter errors. Transport errors
// pass through unchanged.
func convertError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	body := apiErr.Message
	if body == "" {
		body = apiErr.RawJSON()
	}

	status := apiErr.StatusCode
	header := http.Header{}
	if apiErr.Response != nil {
		status = apiErr.Response.StatusCode
		header = apiErr.Response.Header
	}

	return modeladapter.StatusError(status, header, body)
}
