package access

import "errors"

var (
	// ErrNotFound is returned by stores when the content item or section does not exist.
	ErrNotFound = errors.New("access: record not found")
	// ErrInvalidContentID marks identifiers that are not positive integers.
	ErrInvalidContentID = errors.New("access: invalid content id")
)
