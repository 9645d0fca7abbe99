package tour

import "github.com/pkg/errors"

var (
	ErrPermissionsMissing = errors.New("camera and location permissions are required")
	ErrStartFailed        = errors.New("could not start tour")
	ErrLocationStream     = errors.New("could not get location data")
	ErrSyncFailed         = errors.New("tour sync failed")
	ErrEndFailed          = errors.New("could not end tour")
	ErrInvalidTransition  = errors.New("invalid tour transition")
)

// causeError keeps a sentinel matchable with errors.Is while carrying the
// underlying failure.
type causeError struct {
	kind  error
	cause error
}

func (e *causeError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *causeError) Is(target error) bool {
	return target == e.kind
}

func (e *causeError) Unwrap() error {
	return e.cause
}

func withKind(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return errors.WithStack(&causeError{kind: kind, cause: cause})
}

func invalidTransition(from Status, action string) error {
	return errors.Wrapf(ErrInvalidTransition, "cannot %s while %s", action, from)
}
