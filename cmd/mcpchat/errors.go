package main

import "errors"

// Process exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitConnect = 3
)

// exitError attaches an exit code to an error. reported marks errors the
// shell has already printed.
type exitError struct {
	code     int
	err      error
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func configErr(err error) error  { return &exitError{code: exitConfig, err: err} }
func connectErr(err error) error { return &exitError{code: exitConnect, err: err} }

// exitCode maps err to the process exit code. Unclassified errors are
// runtime failures.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitRuntime
}

func isReported(err error) bool {
	var e *exitError
	return errors.As(err, &e) && e.reported
}
