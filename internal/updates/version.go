package updates

import (
	"strings"

	"golang.org/x/mod/semver"
)

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// IsNewer reports whether latest is a newer release than current. Unparsable
// current versions (local "dev" builds) are always considered outdated.
func IsNewer(current, latest string) bool {
	lat := canonical(latest)
	if lat == "" {
		return false
	}
	cur := canonical(current)
	if cur == "" {
		return true
	}
	return semver.Compare(cur, lat) < 0
}
