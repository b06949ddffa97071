package session

import "errors"

// Precondition failures. Operations returning these leave the state untouched.
var (
	ErrAlreadyRunning     = errors.New("a script is already running")
	ErrNotRunning         = errors.New("no script is running")
	ErrRunningUnsupported = errors.New("script execution is not supported: input data is missing")
	ErrExecutableMissing  = errors.New("the selected python executable is missing")
	ErrEmptySelection     = errors.New("no text is selected")
	ErrEmptyVariableName  = errors.New("variable name is empty")
)

// IsRejected reports whether err is a precondition failure rather than a
// failure to reach the scripting service.
func IsRejected(err error) bool {
	return errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrNotRunning) ||
		errors.Is(err, ErrRunningUnsupported) ||
		errors.Is(err, ErrExecutableMissing) ||
		errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrEmptyVariableName)
}

// CommandError is returned when a session operation could not deliver a
// command to the scripting service.
type CommandError struct {
	Op     string
	Method string
	Err    error
}

func (e *CommandError) Error() string {
	return e.Op + ": " + e.Method + " failed: " + e.Err.Error()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	_, ok := target.(*CommandError)

	return ok
}

func IsCommandError(err error) bool {
	var cmdErr *CommandError

	return errors.As(err, &cmdErr)
}
