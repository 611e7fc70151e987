package profile

import (
	"errors"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
)

var (
	// ErrProfileNotFound is shared with the auth middleware, which treats a
	// missing profile as a student.
	ErrProfileNotFound = middleware.ErrProfileNotFound
	ErrInvalidRole     = errors.New("invalid role")
)
