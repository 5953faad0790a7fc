package fileserver

import "time"

// VersionPlaceholder is the literal that cache-bust transforms replace
// with the server's run version inside derived file copies.
const VersionPlaceholder = "-v0000.00.00.00.00.00"

const versionSize = len(VersionPlaceholder)

// RunVersion formats a timestamp as a cache-bust version suffix,
// for example "-v2026.08.28.10.30.00".
func RunVersion(t time.Time) string {
	return t.UTC().Format("-v2006.01.02.15.04.05")
}

// hasVersionSuffix reports whether uri ends with a well-formed version
// suffix: "-v" followed by dot-separated fields of 4,2,2,2,2,2 digits.
func hasVersionSuffix(uri string) bool {
	if len(uri) <= versionSize {
		return false
	}
	s := uri[len(uri)-versionSize:]
	if s[0] != '-' || s[1] != 'v' {
		return false
	}
	for i, width := range []int{4, 2, 2, 2, 2, 2} {
		if i > 0 {
			if s[0] != '.' {
				return false
			}
			s = s[1:]
		} else {
			s = s[2:]
		}
		for j := 0; j < width; j++ {
			if s[j] < '0' || s[j] > '9' {
				return false
			}
		}
		s = s[width:]
	}
	return true
}

// stripVersionSuffix removes a trailing version suffix if present.
// Idempotent: a URI without the suffix is returned unchanged.
func stripVersionSuffix(uri string) string {
	if hasVersionSuffix(uri) {
		return uri[:len(uri)-versionSize]
	}
	return uri
}
