package orchestrator

import (
	"errors"
	"fmt"
)

// ErrNoColdStore indicates an object read without a configured cold store.
var ErrNoColdStore = errors.New("no cold store configured")

// FallbackError reports a failed compute function. It unwraps to the
// compute function's own error.
type FallbackError struct {
	Key string
	Err error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("compute %s: %v", e.Key, e.Err)
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// IsFallbackError reports whether err came from a compute function.
func IsFallbackError(err error) bool {
	var fe *FallbackError
	return errors.As(err, &fe)
}
