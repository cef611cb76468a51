package processorsvc

import (
	"fmt"
)

// TransientError marks a failure worth retrying, such as busy storage or a
// downstream timeout.
type TransientError struct {
	Reason string
	Err    error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}

	return e.Reason
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that no amount of retrying can fix, such
// as an unparseable payload.
type PermanentError struct {
	Reason string
	Err    error
}

func (e *PermanentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}

	return e.Reason
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}
