package stream

import "errors"

// SessionError classifies fatal stream session errors for outcome
// determination. Recoverable problems (decode errors, correlation and
// routing violations) never surface here; they are counted and dropped.
type SessionError struct {
	// Kind indicates which protocol rule ended the session.
	Kind SessionErrorKind
	// Err is the underlying error.
	Err error
}

// SessionErrorKind classifies session errors.
type SessionErrorKind int

const (
	// SessionErrorFrame indicates the byte stream lost frame sync.
	SessionErrorFrame SessionErrorKind = iota
	// SessionErrorSequence indicates a sequence-number violation.
	SessionErrorSequence
	// SessionErrorStorage indicates the durable log could not be written.
	SessionErrorStorage
	// SessionErrorCanceled indicates context cancellation.
	SessionErrorCanceled
)

func (e *SessionError) Error() string {
	return e.Err.Error()
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsFrameError returns true if the session died from losing frame sync.
func IsFrameError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind == SessionErrorFrame
	}
	return false
}

// IsSequenceError returns true if the session died from a sequence violation.
func IsSequenceError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind == SessionErrorSequence
	}
	return false
}

// IsStorageError returns true if the session died from a durable log failure.
func IsStorageError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind == SessionErrorStorage
	}
	return false
}

// IsCanceledError returns true if the session ended by context cancellation.
func IsCanceledError(err error) bool {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind == SessionErrorCanceled
	}
	return false
}
