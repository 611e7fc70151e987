package section

import "errors"

var (
	ErrSectionNotFound = errors.New("section not found")
	ErrCodeRequired    = errors.New("activation code is required")
	ErrInvalidCode     = errors.New("activation code is invalid or already used")
	ErrAccessNotFound  = errors.New("section access not found")
)
