package constants

import "strings"

// SentinelTokens are cell values that mean "no data". Compared case-insensitively after trimming.
var SentinelTokens = map[string]struct{}{
	"":     {},
	"none": {},
	"nan":  {},
	"null": {},
	"n/a":  {},
}

// IsSentinel reports whether s is a null-like placeholder rather than a value.
func IsSentinel(s string) bool {
	_, ok := SentinelTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}
