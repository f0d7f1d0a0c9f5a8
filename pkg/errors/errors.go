package errors

import (
	goerrors "errors"
	"fmt"
)

// New creates a new error with the given formatted message.
func New(format string, a ...interface{}) error {
	if len(a) == 0 {
		return goerrors.New(format)
	}
	return fmt.Errorf(format, a...)
}

// contextError annotates an error with a short description of the operation
// that failed. Chained contexts print as "outer: inner: cause".
type contextError struct {
	context string
	err     error
}

// WithContext wraps `err` with `context`. Returns nil if `err` is nil.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, err: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.err)
}

func (err contextError) Unwrap() error {
	return err.err
}

// FriendlyError is an error whose message is meant to be read by the user
// directly, without any of the context that was added while it propagated.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError with the given formatted message.
func NewFriendlyError(format string, a ...interface{}) error {
	return FriendlyError{fmt.Sprintf(format, a...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message to show the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}

type friendlyErrorInterface interface {
	FriendlyMessage() string
}

// RootCause strips all context from `err`, and returns the underlying error.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.err
	}
}

// GetPrintableMessage returns the message that should be shown to the user
// for `err`. Errors that implement FriendlyMessage anywhere in their chain
// are shown without the surrounding context.
func GetPrintableMessage(err error) string {
	var friendly friendlyErrorInterface
	if goerrors.As(err, &friendly) {
		return friendly.FriendlyMessage()
	}
	return err.Error()
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goerrors.As(err, target)
}
