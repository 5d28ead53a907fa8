// Package modeladapter defines the interface and shared types for chat
// completion adapters.
//
// It contains:
//   - [Completer] interface and embeddable [ModelAdapter] base struct with model settings, auth, and custom headers
//   - [RateLimitError] and [APIError], the errors adapters translate API failures into
//   - [github.com/germanamz/mcpchat/pkg/modeladapter/usage] — thread-safe token usage tracker
//
// This package contains no provider-specific code. Concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
