package backend

import (
	"errors"
	"fmt"
)

// ErrDecodeResult indicates the host answered with a payload of the wrong shape.
var ErrDecodeResult = errors.New("failed to decode result")

// CallError wraps a failed scripting service call.
type CallError struct {
	Method string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s call failed: %v", e.Method, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// IsCallError reports whether err was caused by a failed scripting service call.
func IsCallError(err error) bool {
	var callErr *CallError

	return errors.As(err, &callErr)
}
