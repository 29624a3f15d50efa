package trace

import "strings"

// HashesMatch compares two content hashes on the shorter prefix length,
// after stripping an optional "sha256:" prefix and lowercasing. This
// accommodates callers that truncate hashes to 8 or 16 hex characters.
// An empty hash never matches anything.
func HashesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimPrefix(a, "sha256:"))
	b = strings.ToLower(strings.TrimPrefix(b, "sha256:"))

	n := min(len(a), len(b))
	if n == 0 {
		return false
	}
	return a[:n] == b[:n]
}

// SHAPrefixMatch reports whether one commit SHA is a prefix of the other.
// Prefixes shorter than 7 characters are too ambiguous to count.
func SHAPrefixMatch(a, b string) bool {
	n := min(len(a), len(b))
	if n < 7 {
		return false
	}
	return a[:n] == b[:n]
}
