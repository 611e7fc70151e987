package capability

import "errors"

var (
	ErrMalformed       = errors.New("capability is incomplete or malformed")
	ErrExpired         = errors.New("capability has expired")
	ErrBadSignature    = errors.New("capability signature mismatch")
	ErrSubjectMismatch = errors.New("capability belongs to another user")
	ErrRevoked         = errors.New("capability has been revoked")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnsupportedType = errors.New("content type cannot be signed")
)
