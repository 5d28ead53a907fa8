package modeladapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/germanamz/mcpchat/pkg/chats/chat"
	"github.com/germanamz/mcpchat/pkg/chats/message"
	"github.com/germanamz/mcpchat/pkg/modeladapter/usage"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

// RateLimitError is returned when the API responds with HTTP 429 (Too Many Requests).
// It carries an optional RetryAfter duration parsed from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("rate limited: %s", e.Body)
}

// APIError is any other non-2xx response from the completion API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// StatusError converts a failed API response into a *RateLimitError for 429
// and an *APIError otherwise.
func StatusError(status int, header http.Header, body string) error {
	body = strings.TrimSpace(body)
	if status == http.StatusTooManyRequests {
		return &RateLimitError{
			RetryAfter: ParseRetryAfter(header.Get("Retry-After")),
			Body:       body,
		}
	}
	return &APIError{StatusCode: status, Message: body}
}

// ParseRetryAfter parses the Retry-After header value as either seconds (integer)
// or an HTTP-date (RFC 7231). Returns zero if unparseable or if the date is in the past.
func ParseRetryAfter(val string) time.Duration {
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(val); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Completer sends a transcript to a chat model and returns the assistant's
// reply. tools is attached to the request as the callable function list.
type Completer interface {
	Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Tool) (message.Message, error)
}

// UsageReporter provides token usage information from a completer.
// Completers that embed ModelAdapter implement this interface automatically.
type UsageReporter interface {
	UsageTracker() *usage.Tracker
	ModelName() string
}

// Auth holds authentication settings for a chat API.
type Auth struct {
	Key    string // API key value.
	Header string // Header name (default: "Authorization").
	Scheme string // Scheme prefix (default: "Bearer" when Header is "Authorization").
}

// HeaderValue returns the header name and value carrying the key. ok is
// false when no key is set.
func (a Auth) HeaderValue() (name, value string, ok bool) {
	if a.Key == "" {
		return "", "", false
	}

	name = a.Header
	if name == "" {
		name = "Authorization"
	}

	value = a.Key
	scheme := a.Scheme
	if scheme == "" && name == "Authorization" {
		scheme = "Bearer"
	}
	if scheme != "" {
		value = scheme + " " + value
	}

	return name, value, true
}

// IsBearer reports whether the key travels as a standard bearer token.
func (a Auth) IsBearer() bool {
	name, value, ok := a.HeaderValue()
	return ok && name == "Authorization" && strings.HasPrefix(value, "Bearer ")
}

// ModelAdapter holds shared state for provider implementations. Embed it in
// concrete provider structs to get model settings, auth, custom headers, and
// usage tracking. Concrete types add the Complete method.
type ModelAdapter struct {
	Name        string            // Model identifier (e.g. "gpt-4o").
	Temperature float64           // Sampling temperature. Zero leaves the API default.
	MaxTokens   int               // Maximum tokens in the response. Zero leaves the API default.
	Auth        Auth              // Authentication settings.
	BaseURL     string            // API base URL.
	Client      *http.Client      // HTTP client; nil uses the provider default.
	Headers     map[string]string // Extra headers applied to every request.
	MaxRetries  int               // Retries performed by the provider client on transient failures.
	Usage       usage.Tracker     // Token usage tracker.
}

// UsageTracker returns the adapter's token usage tracker.
func (a *ModelAdapter) UsageTracker() *usage.Tracker { return &a.Usage }

// ModelName returns the configured model identifier.
func (a *ModelAdapter) ModelName() string { return a.Name }
