package content

import "errors"

var (
	ErrContentNotFound = errors.New("content not found")
	ErrUnsupportedType = errors.New("unsupported content type")
)
