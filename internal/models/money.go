package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for amounts that are not non-negative decimals.
var ErrInvalidAmount = errors.New("invalid amount")

// Money is an amount in cents.
type Money int64

// ParseMoney converts a decimal string such as "12.34", "12,34" or "1.5e2"
// to cents. A third fractional digit is rounded half-up. Negative values are
// rejected; zero is allowed.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}

	if i := strings.IndexAny(s, "eE"); i >= 0 {
		var err error
		if s, err = shiftExponent(s[:i], s[i+1:]); err != nil {
			return 0, err
		}
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if strings.Contains(fracPart, ".") || intPart+fracPart == "" {
		return 0, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	if !asciiDigits(intPart + fracPart) {
		return 0, ErrInvalidAmount
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv >= maxSafe {
		return 0, ErrInvalidAmount
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return Money(iv*100 + frac), nil
}

// maxExponent bounds scientific notation well past the int64 cent range.
const maxExponent = 20

// shiftExponent rewrites mantissa*10^exp as a plain decimal string.
func shiftExponent(mantissa, exp string) (string, error) {
	e, err := strconv.Atoi(exp)
	if err != nil || e < -maxExponent || e > maxExponent {
		return "", ErrInvalidAmount
	}
	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	if digits == "" || strings.Contains(fracPart, ".") || !asciiDigits(digits) {
		return "", ErrInvalidAmount
	}

	point := len(intPart) + e
	switch {
	case point <= 0:
		return "0." + strings.Repeat("0", -point) + digits, nil
	case point >= len(digits):
		return digits + strings.Repeat("0", point-len(digits)), nil
	default:
		return digits[:point] + "." + digits[point:], nil
	}
}

func asciiDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String formats the amount with two decimals.
func (m Money) String() string {
	neg := m < 0
	if neg {
		m = -m
	}
	s := strconv.FormatInt(int64(m)/100, 10) + "." + leftPad2(int64(m)%100)
	if neg {
		return "-" + s
	}
	return s
}

// MarshalJSON renders the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Rejected values
// surface as *json.UnmarshalTypeError so the decoder reports the field name.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "amount " + s, Type: reflect.TypeFor[Money]()}
	}
	*m = v
	return nil
}

func leftPad2(v int64) string {
	if v < 10 {
		return "0" + strconv.FormatInt(v, 10)
	}
	return strconv.FormatInt(v, 10)
}
