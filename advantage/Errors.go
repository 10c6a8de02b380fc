package advantage

import "errors"

// Error implements errors unique to advantage estimation
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

// ErrShapeMismatch is reported when the baseline predicts a number of
// values different from the number of Q-values.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrConfig is reported when an Estimator is constructed with an
// inconsistent configuration.
var ErrConfig = errors.New("invalid configuration")

// IsShapeMismatch returns whether or not an error reports a mismatch
// between baseline predictions and Q-values.
func IsShapeMismatch(err error) bool {
	return errors.Is(err, ErrShapeMismatch)
}
