// Package shell implements the line-oriented interactive prompt: read a
// query, hand it to the conversation driver, print the answer, repeat until
// the exit command or end of input.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/mcpchat/pkg/conversation"
	"github.com/mattn/go-runewidth"
)

// Defaults for Options.
const (
	DefaultPrompt      = "Query: "
	DefaultExitCommand = "quit"
	DefaultWidth       = 100
)

// maxLineSize bounds one input line.
const maxLineSize = 1 << 20

// Processor answers one query.
type Processor interface {
	Process(ctx context.Context, query string) (conversation.Result, error)
}

// Options configures a Shell.
type Options struct {
	In  io.Reader
	Out io.Writer

	Prompt      string
	ExitCommand string // Matched case-insensitively.

	// Styled enables terminal colors.
	Styled bool
	// Markdown renders answers as terminal markdown.
	Markdown bool
	// Verbose adds tool result previews and token usage after each answer.
	Verbose bool
	// Width is the wrap and truncation width.
	Width int

	Logger *slog.Logger
}

// Shell is the interactive read-eval-print loop.
type Shell struct {
	proc   Processor
	opts   Options
	md     *glamour.TermRenderer
	logger *slog.Logger
}

// New creates a Shell. In and Out must be set.
func New(proc Processor, opts Options) *Shell {
	if opts.Prompt == "" {
		opts.Prompt = DefaultPrompt
	}
	if opts.ExitCommand == "" {
		opts.ExitCommand = DefaultExitCommand
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Shell{proc: proc, opts: opts, logger: logger}

	if opts.Markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(opts.Width),
		)
		if err != nil {
			logger.Warn("markdown renderer unavailable", "error", err)
		} else {
			s.md = r
		}
	}

	return s
}

// Banner prints the startup lines.
func (s *Shell) Banner() {
	s.println("")
	s.println(s.style(bannerStyle, "MCP Client Started"))
	s.println(fmt.Sprintf("Type your queries or '%s' to exit.", s.opts.ExitCommand))
}

// Run reads queries until the exit command, end of input, or ctx is done.
// A failed query is reported and the loop continues. Run only returns an
// error when reading the input fails. Input is read one line per prompt, so
// nothing past the exit command is consumed. A cancelled ctx ends Run while a
// read may still be blocked on In; that read's line is dropped.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	next, lines, readErr := s.readLines(ctx)

	for {
		s.print("\n" + s.style(promptStyle, s.opts.Prompt))

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			s.println("")
			return nil
		case next <- struct{}{}:
		}
		select {
		case <-ctx.Done():
			s.println("")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			s.println("")
			return <-readErr
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, s.opts.ExitCommand) {
			return nil
		}

		_ = s.handle(ctx, query)
	}
}

// Ask answers a single query, prints it the way Run does and returns the
// query's error.
func (s *Shell) Ask(ctx context.Context, query string) error {
	return s.handle(ctx, strings.TrimSpace(query))
}

// readLines scans in the background so a cancelled context can interrupt a
// blocked read. The scanner reads one line for every value sent on next.
func (s *Shell) readLines(ctx context.Context) (chan<- struct{}, <-chan string, <-chan error) {
	next := make(chan struct{})
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		sc := bufio.NewScanner(s.opts.In)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for {
			select {
			case <-next:
			case <-ctx.Done():
				errc <- nil
				return
			}
			if !sc.Scan() {
				break
			}
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		if err := sc.Err(); err != nil {
			errc <- fmt.Errorf("shell: read input: %w", err)
			return
		}
		errc <- nil
	}()

	return next, lines, errc
}

func (s *Shell) handle(ctx context.Context, query string) error {
	res, err := s.proc.Process(ctx, query)
	if len(res.Fragments) > 0 {
		s.println("")
		s.println(s.render(res))
	}
	if err != nil {
		s.logger.Debug("query failed", "query_id", res.ID, "error", err)
		s.println("")
		s.println(s.style(errorStyle, "Error: "+err.Error()))
		return err
	}
	if s.opts.Verbose {
		s.println(s.details(res))
	}
	return nil
}

// render formats the fragments of a result: trace lines styled, model text
// optionally rendered as markdown.
func (s *Shell) render(res conversation.Result) string {
	out := make([]string, 0, len(res.Fragments))
	for _, f := range res.Fragments {
		switch f.Kind {
		case conversation.FragmentTrace:
			out = append(out, s.style(traceStyle, f.Text))
		default:
			out = append(out, s.markdown(f.Text))
		}
	}
	return strings.Join(out, "\n")
}

// details lists each call's result preview and the query's token usage.
func (s *Shell) details(res conversation.Result) string {
	var b strings.Builder
	width := max(s.opts.Width-len(treeCorner)-2, 10)

	for _, c := range res.Calls {
		b.WriteString("\n")
		if c.Err != nil {
			b.WriteString(s.style(toolErrorStyle, fmt.Sprintf("%s%s: %s", treeCorner, c.Name, Truncate(c.Err.Error(), width))))
			continue
		}
		b.WriteString(s.style(toolResultStyle, fmt.Sprintf("%s%s (%s): %s", treeCorner, c.Name, FormatDuration(c.Duration), Truncate(c.Result, width))))
	}

	if res.Usage.Total() > 0 {
		b.WriteString("\n")
		b.WriteString(s.style(dimStyle, fmt.Sprintf("tokens: %s in / %s out, rounds: %d",
			FormatTokens(res.Usage.InputTokens), FormatTokens(res.Usage.OutputTokens), res.Rounds)))
	}

	return strings.TrimPrefix(b.String(), "\n")
}

func (s *Shell) markdown(text string) string {
	if s.md == nil || strings.TrimSpace(text) == "" {
		return text
	}
	out, err := s.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (s *Shell) style(st lipgloss.Style, text string) string {
	if !s.opts.Styled {
		return text
	}
	return st.Render(text)
}

func (s *Shell) print(text string) {
	_, _ = io.WriteString(s.opts.Out, text)
}

func (s *Shell) println(text string) {
	_, _ = io.WriteString(s.opts.Out, text+"\n")
}

// Truncate shortens s to at most width terminal cells, appending an ellipsis
// when it cuts. Runs of whitespace, newlines included, collapse to one space.
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "…")
}
