// Package run validates and formats Chilean national identity numbers (RUN/RUT).
//
// A RUN is a digit body followed by a check character (0-9 or K) computed
// with a modulo-11 weighted sum. Any of these forms are accepted as input:
//
//	12.345.678-5
//	12345678-5
//	123456785
//	12.345.678 5
package run

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var (
	ErrEmpty      = errors.New("run is empty")
	ErrMalformed  = errors.New("run is malformed")
	ErrCheckDigit = errors.New("run check digit does not match")
)

// Normalize drops periods, hyphens and whitespace from raw and upper-cases it.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == '.' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Split normalizes raw and returns its digit body and declared check character.
// ok is false when raw has fewer than 2 usable characters or a non-digit body.
func Split(raw string) (body, check string, ok bool) {
	if raw == "" {
		return "", "", false
	}
	n := Normalize(raw)
	if len(n) < 2 {
		return "", "", false
	}
	body, check = n[:len(n)-1], n[len(n)-1:]
	if !isDigits(body) {
		return "", "", false
	}
	return body, check, true
}

// CheckDigit computes the check character for a digits-only body.
func CheckDigit(body string) (string, error) {
	if body == "" || !isDigits(body) {
		return "", ErrMalformed
	}
	return checkDigit(body), nil
}

// IsValid reports whether raw is a well-formed RUN whose check character
// matches its body. It never panics; malformed input is just invalid.
func IsValid(raw string) bool {
	body, check, ok := Split(raw)
	if !ok {
		return false
	}
	return check == checkDigit(body)
}

// checkDigit walks body from the least significant digit with the multiplier
// cycling 2,3,4,5,6,7. body must be non-empty and all digits.
func checkDigit(body string) string {
	sum, mul := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * mul
		if mul == 7 {
			mul = 2
		} else {
			mul++
		}
	}

	switch rem := 11 - sum%11; rem {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(rem)
	}
}

// isDigits is ASCII only; unicode.IsDigit would accept other scripts.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
