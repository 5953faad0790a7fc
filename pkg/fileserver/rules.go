package fileserver

import (
	"path"
	"strings"
)

// Rule maps a URI pattern to a value. Patterns come in three forms:
// an exact URI, "prefix*" matching any URI with that prefix, and
// "*suffix" matching any URI with that suffix. Rules live in ordered
// slices and the first match wins; insertion order is part of the
// configuration contract.
type Rule struct {
	Pattern string
	Value   string
}

// Match reports whether uri matches the rule's pattern.
func (r Rule) Match(uri string) bool {
	p := r.Pattern
	switch {
	case len(p) > 0 && strings.HasSuffix(p, "*"):
		return strings.HasPrefix(uri, p[:len(p)-1])
	case len(p) > 0 && strings.HasPrefix(p, "*"):
		return strings.HasSuffix(uri, p[1:])
	default:
		return uri == p
	}
}

// matchAny reports whether any rule in the ordered list matches uri.
func matchAny(rules []Rule, uri string) bool {
	for _, r := range rules {
		if r.Match(uri) {
			return true
		}
	}
	return false
}

// lookup returns the value of the first matching rule.
func lookup(rules []Rule, uri string) (string, bool) {
	for _, r := range rules {
		if r.Match(uri) {
			return r.Value, true
		}
	}
	return "", false
}

// applyAliases rewrites uri through the alias table. Exact and suffix
// rules substitute their resource wholly. A prefix rule keeps the part of
// the URI after the prefix and resolves it under the rule's resource, so
// "/api/*" -> "/backend" maps "/api/v2/users" to "/backend/v2/users".
func applyAliases(rules []Rule, uri string) string {
	for _, r := range rules {
		p := r.Pattern
		switch {
		case len(p) > 0 && strings.HasSuffix(p, "*"):
			prefix := p[:len(p)-1]
			if strings.HasPrefix(uri, prefix) {
				rest := strings.TrimPrefix(uri[len(prefix):], "/")
				if rest == "" {
					return r.Value
				}
				return path.Join(r.Value, rest)
			}
		case len(p) > 0 && strings.HasPrefix(p, "*"):
			if strings.HasSuffix(uri, p[1:]) {
				return r.Value
			}
		default:
			if uri == p {
				return r.Value
			}
		}
	}
	return uri
}
