package forms

import (
	"errors"
	"fmt"
)

// ErrResourceType is matched by every *ResourceTypeError.
var ErrResourceType = errors.New("unexpected resourceType")

// ErrDuplicateFieldID is returned when two fields of one schema tree share an id.
var ErrDuplicateFieldID = errors.New("duplicate field id")

// ResourceTypeError is returned when a decoder is handed a resource of the
// wrong kind. It is never recovered from inside the engine.
type ResourceTypeError struct {
	Expected string
	Got      string
}

func (e *ResourceTypeError) Error() string {
	return fmt.Sprintf("expected resourceType %s, got %q", e.Expected, e.Got)
}

// Unwrap allows errors.Is(err, ErrResourceType).
func (e *ResourceTypeError) Unwrap() error {
	return ErrResourceType
}

// CheckUniqueIDs reports the first field id that appears twice in the tree.
func CheckUniqueIDs(schema []FormField) error {
	seen := make(map[string]bool)
	var walk func(fields []FormField) error
	walk = func(fields []FormField) error {
		for _, f := range fields {
			if seen[f.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicateFieldID, f.ID)
			}
			seen[f.ID] = true
			if f.Kind == KindGroup {
				if err := walk(f.Fields); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(schema)
}

// ErrMalformedDocument is returned when a raw document is not valid JSON or
// does not bind to the expected resource shape.
var ErrMalformedDocument = errors.New("malformed document")
