package request

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReadID accepts a JSON number or a numeric string and returns a canonical
// positive decimal identifier. Browser clients send both forms.
func ReadID(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", fmt.Errorf("value is required")
	case json.Number:
		return ReadID(v.String())
	case float64:
		if v != math.Trunc(v) || v <= 0 || v >= 1<<63 {
			return "", fmt.Errorf("value is not a positive integer")
		}
		return strconv.FormatInt(int64(v), 10), nil
	case int:
		return ReadID(int64(v))
	case int64:
		if v <= 0 {
			return "", fmt.Errorf("value is not a positive integer")
		}
		return strconv.FormatInt(v, 10), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return "", fmt.Errorf("value is required")
		}
		parsed, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil || parsed <= 0 {
			return "", fmt.Errorf("value is not a positive integer")
		}
		return strconv.FormatInt(parsed, 10), nil
	default:
		return "", fmt.Errorf("value is not a number")
	}
}
