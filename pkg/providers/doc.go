// Package providers groups the chat completion adapters.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/mcpchat/pkg/providers/openai] — Completer for OpenAI-compatible Chat Completions APIs, built on the official openai-go SDK
//
// Shared types (Completer, ModelAdapter, usage tracking, API errors) live in
// [github.com/germanamz/mcpchat/pkg/modeladapter].
package providers
