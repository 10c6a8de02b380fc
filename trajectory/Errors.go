package trajectory

import "errors"

// Error implements errors unique to trajectories and batches.
type Error struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMalformed is reported when the arrays of a trajectory, or the
// lists of trajectories given for a single batch, disagree in length.
var ErrMalformed = errors.New("malformed batch")

// ErrEmpty is reported when a trajectory or batch holds no transitions.
var ErrEmpty = errors.New("empty trajectory")

// IsMalformed returns whether or not an error reports a malformed
// trajectory or batch.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}
