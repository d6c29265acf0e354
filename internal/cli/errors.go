package cli

import "fmt"

// ExitError carries a process exit code out of a cobra RunE function
// instead of calling os.Exit directly, keeping commands testable. Commands
// that fail (gate not satisfied, blocked run loop, unknown task) return
// NewExitError(1); [RunWithConfig] unwraps the code into [ExecuteResult]
// and only [Execute] terminates the process.
type ExitError struct {
	Code int
}

// Error reports "exit status N", matching the os/exec wording so agent
// subprocess failures and CLI failures read alike.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewExitError returns an ExitError with the given code.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

// IsExitError extracts the code from an *ExitError. Returns (0, false) for
// nil or any other error type.
func IsExitError(err error) (int, bool) {
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code, true
	}
	return 0, false
}
