package pg

import "errors"

// Error implements errors reported by the policy gradient learner
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

// ErrConfig is reported at construction when a configuration is
// inconsistent with itself or with the given collaborators.
var ErrConfig = errors.New("invalid configuration")

// IsConfig returns whether or not an error reports an invalid
// configuration.
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
