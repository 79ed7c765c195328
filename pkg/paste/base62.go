package paste

import (
	"fmt"
	"strings"
)

const base62Digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// EncodeID returns the base62 form of an id, used for short display URLs.
func EncodeID(value int64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}

	base := int64(len(base62Digits))
	chars := []byte{base62Digits[value%base]}
	value /= base

	for value > 0 {
		chars = append(chars, base62Digits[value%base])
		value /= base
	}

	// chars are least-significant first
	for i, j := 0, len(chars)-1; i < j; i, j = i+1, j-1 {
		chars[i], chars[j] = chars[j], chars[i]
	}

	return sign + string(chars)
}

// DecodeID converts a base62 string back to an id.
func DecodeID(value string) (int64, error) {
	sign := int64(1)
	if strings.HasPrefix(value, "-") {
		sign = -1
		value = value[1:]
	}
	if value == "" {
		return 0, fmt.Errorf("invalid base62 value: empty")
	}

	base := int64(len(base62Digits))
	var result int64

	for _, char := range []byte(value) {
		pos := strings.IndexByte(base62Digits, char)
		if pos == -1 {
			return 0, fmt.Errorf("invalid base62 digit: %q", char)
		}
		result = result*base + int64(pos)
	}

	return result * sign, nil
}
