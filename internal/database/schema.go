package database

import (
	"errors"
	"fmt"
)

// ErrUnsupportedSchema is returned when a stored document carries a
// schema_version this build cannot decode.
var ErrUnsupportedSchema = errors.New("unsupported document schema version")

// CheckSchemaVersion rejects documents whose version differs from want.
func CheckSchemaVersion(collection string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s has version %d, expected %d", ErrUnsupportedSchema, collection, got, want)
	}
	return nil
}
