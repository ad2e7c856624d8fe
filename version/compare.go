package version

import (
	goversion "github.com/hashicorp/go-version"
)

// IsDowngrade reports whether candidate is an older version than current.
// Tags that do not parse as versions are never considered a downgrade, so
// an opaque tag always compares as "different" only.
func IsDowngrade(current, candidate string) bool {
	if current == "" || candidate == "" {
		return false
	}

	currentVersion, err := goversion.NewVersion(current)
	if err != nil {
		return false
	}

	candidateVersion, err := goversion.NewVersion(candidate)
	if err != nil {
		return false
	}

	return candidateVersion.LessThan(currentVersion)
}
