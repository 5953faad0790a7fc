package fileserver

import "strings"

// OriginRule allows cross-origin requests to a destination URI from an
// origin. Both sides match exactly or by "prefix*" wildcard. Rules are
// ordered and the first destination match decides which origin pattern
// applies.
type OriginRule struct {
	Dest   string
	Origin string
}

func wildcardMatch(pattern, s string) bool {
	if pattern == s {
		return true
	}
	return strings.HasSuffix(pattern, "*") && strings.HasPrefix(s, pattern[:len(pattern)-1])
}

// allowedOrigin returns the Access-Control-Allow-Origin value for a
// request to dest from origin, or false when the pair is not allowed.
// An allowed request with no Origin header is answered with "*".
func allowedOrigin(rules []OriginRule, dest, origin string) (string, bool) {
	for _, rule := range rules {
		if !wildcardMatch(rule.Dest, dest) {
			continue
		}
		if !wildcardMatch(rule.Origin, origin) {
			return "", false
		}
		if origin == "" {
			return "*", true
		}
		return origin, true
	}
	return "", false
}
