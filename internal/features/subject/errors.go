package subject

import "errors"

var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrInvalidCode     = errors.New("activation code is invalid or already used")
)
