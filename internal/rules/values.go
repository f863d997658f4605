package rules

import "strings"

// Blank reports a missing or whitespace-only value.
func Blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Is reports s == v. Missing values never match.
func Is(s *string, v string) bool {
	return s != nil && *s == v
}

// IsNot reports s != v. A missing value differs from every v.
func IsNot(s *string, v string) bool {
	return !Is(s, v)
}

// In reports whether s is one of vs.
func In(s *string, vs ...string) bool {
	for _, v := range vs {
		if Is(s, v) {
			return true
		}
	}
	return false
}

// Contains reports whether s contains any of subs. Missing values never do.
func Contains(s *string, subs ...string) bool {
	if s == nil {
		return false
	}
	for _, sub := range subs {
		if strings.Contains(*s, sub) {
			return true
		}
	}
	return false
}

// NullOrZero reports a missing or zero count.
func NullOrZero(n *int64) bool {
	return n == nil || *n == 0
}

// NonZero reports a present, non-zero count.
func NonZero(n *int64) bool {
	return n != nil && *n != 0
}

// IntIs reports n == v. Missing values never match.
func IntIs(n *int64, v int64) bool {
	return n != nil && *n == v
}
