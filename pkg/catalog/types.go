package catalog

import (
	"time"
)

// A Study is a timestamped survey dataset in the remote catalog.
// The mirror only ever holds a read-only snapshot of it.
type Study struct {
	// ID is stable and unique across the catalog. It's used directly in the
	// names of the mirrored files.
	ID    string
	Label string

	// Timestamp is the last time the study changed remotely. It increases
	// with every remote update.
	Timestamp time.Time

	Variables []Variable
}

// A Variable is a data column within a study.
type Variable struct {
	// ID is unique within its study.
	ID    string
	Label string
	Name  string

	Categories []Category
}

// A Category is one coded value of a variable.
type Category struct {
	// ID is unique within its variable.
	ID    string
	Label string

	// Value is the coded value. Numeric codes are kept as text.
	Value string
}

// Credentials are used to open an authenticated session. The zero value means
// an anonymous session.
type Credentials struct {
	Username string
	Password string
}

// Anonymous returns whether no credentials were provided.
func (c Credentials) Anonymous() bool {
	return c.Username == "" && c.Password == ""
}
