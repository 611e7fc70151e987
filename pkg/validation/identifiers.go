package validation

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidActivationCode rejects codes that cannot exist in storage.
var ErrInvalidActivationCode = errors.New("activation code must be 4-64 letters, digits or hyphens")

var activationCodeRegex = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)

// NormalizeActivationCode trims surrounding whitespace and validates the
// format. Case is preserved; codes are matched exactly.
func NormalizeActivationCode(value string) (string, error) {
	code := strings.TrimSpace(value)
	if !activationCodeRegex.MatchString(code) {
		return "", ErrInvalidActivationCode
	}
	return code, nil
}
