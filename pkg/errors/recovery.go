package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a recovered panic into an error carrying the stack
// trace. Tracking sinks run behind this so a broken integration can never
// take down the request that triggered it.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	var err error
	switch v := r.(type) {
	case error:
		err = v
	case string:
		err = fmt.Errorf("panic: %s", v)
	default:
		err = fmt.Errorf("panic: %v", v)
	}

	return &Error{
		Code:    ErrInternal.Code,
		Message: ErrInternal.Message,
		Status:  ErrInternal.Status,
		Cause:   err,
		Details: map[string]interface{}{
			"panic":       true,
			"stack_trace": string(debug.Stack()),
		},
	}
}
