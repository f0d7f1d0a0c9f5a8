package errors

import (
	"fmt"
)

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ConfigurationError means the run can't start because a required setting is
// missing or invalid. It's fatal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (err ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", err.Field, err.Reason)
}

// FriendlyMessage implements the friendly error interface.
func (err ConfigurationError) FriendlyMessage() string {
	return fmt.Sprintf("Invalid configuration for %q: %s.\n"+
		"Set it with --%s or in the config file.", err.Field, err.Reason, err.Field)
}

// AuthError means the catalog rejected the credentials. It's fatal.
type AuthError struct {
	Username string
	Err      error
}

func (err AuthError) Error() string {
	return fmt.Sprintf("authenticate as %q: %s", err.Username, err.Err)
}

func (err AuthError) Unwrap() error {
	return err.Err
}

// FriendlyMessage implements the friendly error interface.
func (err AuthError) FriendlyMessage() string {
	return fmt.Sprintf("The catalog rejected the credentials for %q.\n"+
		"Check the username and password.", err.Username)
}

// CatalogUnavailable means the list of studies couldn't be retrieved. It's
// fatal for a full sync.
type CatalogUnavailable struct {
	Err error
}

func (err CatalogUnavailable) Error() string {
	return fmt.Sprintf("catalog unavailable: %s", err.Err)
}

func (err CatalogUnavailable) Unwrap() error {
	return err.Err
}

// NotFound means a single study lookup failed. It's fatal for a single-study
// sync.
type NotFound struct {
	ID string
}

func (err NotFound) Error() string {
	return fmt.Sprintf("study %q not found", err.ID)
}

// FriendlyMessage implements the friendly error interface.
func (err NotFound) FriendlyMessage() string {
	return fmt.Sprintf("Study %q does not exist in the catalog.", err.ID)
}

// TransportError is a failure while moving a single study's artifacts. It's
// absorbed by the sync engine: the study is skipped for this run and retried
// on the next one.
type TransportError struct {
	Op    string
	Study string
	Err   error
}

func (err TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", err.Op, err.Study, err.Err)
}

func (err TransportError) Unwrap() error {
	return err.Err
}

// SerializationError means the metadata document for a study couldn't be
// built. This is a bug rather than a remote failure, so it stops the run.
type SerializationError struct {
	Study string
	Err   error
}

func (err SerializationError) Error() string {
	return fmt.Sprintf("serialize metadata for %s: %s", err.Study, err.Err)
}

func (err SerializationError) Unwrap() error {
	return err.Err
}

// IsTransportError returns whether `err` has a TransportError in its chain.
func IsTransportError(err error) bool {
	var target TransportError
	return As(err, &target)
}

// IsSerializationError returns whether `err` has a SerializationError in its
// chain.
func IsSerializationError(err error) bool {
	var target SerializationError
	return As(err, &target)
}

// IsNotFound returns whether `err` has a NotFound in its chain.
func IsNotFound(err error) bool {
	var target NotFound
	return As(err, &target)
}

// IsAuthError returns whether `err` has an AuthError in its chain.
func IsAuthError(err error) bool {
	var target AuthError
	return As(err, &target)
}

// IsCatalogUnavailable returns whether `err` has a CatalogUnavailable in its
// chain.
func IsCatalogUnavailable(err error) bool {
	var target CatalogUnavailable
	return As(err, &target)
}

// IsConfigurationError returns whether `err` has a ConfigurationError in its
// chain.
func IsConfigurationError(err error) bool {
	var target ConfigurationError
	return As(err, &target)
}
