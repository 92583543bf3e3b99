package native

import (
	"fmt"
	"strconv"
)

// Integer.valueOf returns shared instances for values in this range.
const (
	IntegerCacheLow  = -128
	IntegerCacheHigh = 127
)

// IntegerCached reports whether valueOf(v) returns a shared instance.
func IntegerCached(v int32) bool {
	return v >= IntegerCacheLow && v <= IntegerCacheHigh
}

// NumberFormatError reports a string that is not a decimal int.
type NumberFormatError struct {
	Input string
}

func (e *NumberFormatError) Error() string {
	return fmt.Sprintf("For input string: %q", e.Input)
}

// ParseInt parses a signed decimal int the way Integer.parseInt does: an
// optional sign followed by at least one digit, within int32 range.
func ParseInt(s string) (int32, error) {
	if s == "" || s == "+" || s == "-" {
		return 0, &NumberFormatError{Input: s}
	}
	for i, c := range s {
		if (c == '+' || c == '-') && i == 0 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, &NumberFormatError{Input: s}
		}
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &NumberFormatError{Input: s}
	}
	return int32(v), nil
}

// StringHash computes String.hashCode over the UTF-16 code units of s.
func StringHash(s string) int32 {
	var h int32
	for _, u := range utf16Units(s) {
		h = 31*h + int32(u)
	}
	return h
}

func utf16Units(s string) []uint16 {
	var out []uint16
	for _, r := range s {
		if r >= 0x10000 {
			r -= 0x10000
			out = append(out, uint16(0xD800+(r>>10)), uint16(0xDC00+(r&0x3FF)))
			continue
		}
		out = append(out, uint16(r))
	}
	return out
}
