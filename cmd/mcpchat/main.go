// Mcpchat is a line-oriented chat client. It connects to one or more MCP
// servers, offers their tools to an OpenAI-compatible chat model and runs the
// calls the model asks for. Each query is answered from a fresh transcript.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(in, out, errOut)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	if !isReported(err) {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return exitCode(err)
}
