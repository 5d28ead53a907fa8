// Package conversation drives one user query through the chat model: it
// requests completions with the aggregated tool catalog attached, runs the
// tool calls the model asks for, and loops until the model answers in text.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/germanamz/mcpchat/pkg/chats/chat"
	"github.com/germanamz/mcpchat/pkg/chats/content"
	"github.com/germanamz/mcpchat/pkg/chats/message"
	"github.com/germanamz/mcpchat/pkg/modeladapter"
	"github.com/germanamz/mcpchat/pkg/modeladapter/usage"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
	"github.com/google/uuid"
)

// DefaultMaxToolRounds caps the tool-call batches of one query.
const DefaultMaxToolRounds = 5

// ErrMaxToolRounds is returned when the model still requests tools after
// MaxToolRounds batches.
var ErrMaxToolRounds = errors.New("conversation: max tool rounds reached")

// toolSender tags the tool-role messages appended to the transcript.
const toolSender = "tool"

// Catalog produces the tool list attached to every completion request.
type Catalog interface {
	Rebuild(ctx context.Context) ([]toolbox.Tool, error)
}

// Invoker runs a tool by its exposed name.
type Invoker interface {
	Invoke(ctx context.Context, name string, arguments json.RawMessage) (string, error)
}

// ToolErrorPolicy decides what a failed tool call does to the query.
type ToolErrorPolicy string

const (
	// ReportToolErrors sends the failure back to the model as an error
	// result so it can recover.
	ReportToolErrors ToolErrorPolicy = "report"
	// AbortOnToolError fails the whole query.
	AbortOnToolError ToolErrorPolicy = "abort"
)

// ParseToolErrorPolicy parses a policy name. The empty string means
// ReportToolErrors.
func ParseToolErrorPolicy(s string) (ToolErrorPolicy, error) {
	switch p := ToolErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ReportToolErrors, nil
	case ReportToolErrors, AbortOnToolError:
		return p, nil
	default:
		return "", fmt.Errorf("conversation: unknown tool error policy %q", s)
	}
}

// Options configures a Driver.
type Options struct {
	// SystemPrompt, when set, opens every transcript.
	SystemPrompt  string
	MaxToolRounds int // Zero means DefaultMaxToolRounds.
	ToolErrors    ToolErrorPolicy
	Logger        *slog.Logger
}

// FragmentKind tells trace lines from model text in a Result.
type FragmentKind int

const (
	FragmentText FragmentKind = iota
	FragmentTrace
)

// Fragment is one line group of the final output.
type Fragment struct {
	Kind FragmentKind
	Text string
}

// CallTrace records one tool call made while answering a query.
type CallTrace struct {
	Round     int
	ID        string
	Name      string
	Arguments string
	Result    string
	Err       error
	Duration  time.Duration
}

// Line renders the call the way it appears in the output.
func (t CallTrace) Line() string {
	return fmt.Sprintf("Calling tool `%s` with args `%s`", t.Name, t.Arguments)
}

// Result is the outcome of one query.
type Result struct {
	// ID correlates the query's log lines.
	ID string
	// Text is every fragment joined by newlines.
	Text       string
	Fragments  []Fragment
	Transcript *chat.Chat
	// Rounds counts the tool-call batches executed.
	Rounds int
	Calls  []CallTrace
	// Usage is the token usage of the query's completions, when the completer
	// reports it.
	Usage usage.TokenCount
}

func (r *Result) add(kind FragmentKind, text string) {
	r.Fragments = append(r.Fragments, Fragment{Kind: kind, Text: text})
}

func (r *Result) finish() {
	texts := make([]string, len(r.Fragments))
	for i, f := range r.Fragments {
		texts[i] = f.Text
	}
	r.Text = strings.Join(texts, "\n")
}

// Driver runs queries. Each query starts from a fresh transcript.
type Driver struct {
	completer modeladapter.Completer
	catalog   Catalog
	invoker   Invoker
	opts      Options
	logger    *slog.Logger
}

// New creates a Driver.
func New(completer modeladapter.Completer, catalog Catalog, invoker Invoker, opts Options) *Driver {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.ToolErrors == "" {
		opts.ToolErrors = ReportToolErrors
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Driver{
		completer: completer,
		catalog:   catalog,
		invoker:   invoker,
		opts:      opts,
		logger:    logger,
	}
}

// Process answers one query. On failure the returned Result still holds the
// transcript and the fragments produced so far.
func (d *Driver) Process(ctx context.Context, query string) (res Result, err error) {
	res = Result{ID: uuid.NewString(), Transcript: chat.New()}
	logger := d.logger.With("query_id", res.ID)

	if d.opts.SystemPrompt != "" {
		res.Transcript.Append(message.NewText("system", message.System, d.opts.SystemPrompt))
	}
	res.Transcript.Append(message.NewText("user", message.User, query))

	reporter, _ := d.completer.(modeladapter.UsageReporter)
	var mark usage.Mark
	if reporter != nil {
		mark = reporter.UsageTracker().Mark()
	}
	defer func() {
		if reporter != nil {
			res.Usage = reporter.UsageTracker().Since(mark)
		}
	}()

	tools, err := d.catalog.Rebuild(ctx)
	if err != nil {
		return res, fmt.Errorf("conversation: tools: %w", err)
	}
	logger.DebugContext(ctx, "query started", "tools", len(tools))

	for {
		reply, err := d.completer.Complete(ctx, res.Transcript, tools)
		if err != nil {
			res.finish()
			logger.ErrorContext(ctx, "completion failed", "round", res.Rounds, "error", err)
			return res, fmt.Errorf("conversation: complete: %w", err)
		}
		reply.Role = message.Assistant
		res.Transcript.Append(reply)

		calls := reply.ToolCalls()
		if text := reply.TextContent(); text != "" || len(calls) == 0 {
			res.add(FragmentText, text)
		}

		if len(calls) == 0 {
			res.finish()
			logger.InfoContext(ctx, "query answered",
				"rounds", res.Rounds, "calls", len(res.Calls), "messages", res.Transcript.Len())
			return res, nil
		}

		if res.Rounds == d.opts.MaxToolRounds {
			res.finish()
			logger.WarnContext(ctx, "tool round limit reached", "max", d.opts.MaxToolRounds)
			return res, ErrMaxToolRounds
		}
		res.Rounds++

		for _, tc := range calls {
			trace, result, err := d.runCall(ctx, logger, res.Rounds, tc)
			res.Calls = append(res.Calls, trace)
			res.add(FragmentTrace, trace.Line())
			if err != nil {
				res.finish()
				return res, err
			}
			res.Transcript.Append(message.New(toolSender, message.Tool, result))
		}
	}
}

// runCall executes one tool call. Under ReportToolErrors a failure becomes an
// error result and err is nil.
func (d *Driver) runCall(ctx context.Context, logger *slog.Logger, round int, tc content.ToolCall) (CallTrace, content.ToolResult, error) {
	trace := CallTrace{Round: round, ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}

	args, err := tc.ParseArguments()
	if err == nil {
		trace.Arguments = string(args)

		start := time.Now()
		trace.Result, err = d.invoker.Invoke(ctx, tc.Name, args)
		trace.Duration = time.Since(start)
	}

	if err != nil {
		trace.Err = err
		logger.WarnContext(ctx, "tool call failed", "tool", tc.Name, "round", round, "error", err)
		if d.opts.ToolErrors == AbortOnToolError {
			return trace, content.ToolResult{}, fmt.Errorf("conversation: tool %q: %w", tc.Name, err)
		}
		return trace, content.ToolResult{
			ToolCallID: tc.ID,
			Content:    "Error: " + err.Error(),
			IsError:    true,
		}, nil
	}

	logger.InfoContext(ctx, "tool call", "tool", tc.Name, "round", round, "duration", trace.Duration)

	return trace, content.ToolResult{ToolCallID: tc.ID, Content: trace.Result}, nil
}
