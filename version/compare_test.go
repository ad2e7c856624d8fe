package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDowngrade(t *testing.T) {
	testCases := []struct {
		name      string
		current   string
		candidate string
		expected  bool
	}{
		{name: "older semver", current: "v2.0.0", candidate: "v1.9.9", expected: true},
		{name: "newer semver", current: "v1.0.0", candidate: "v2.0.0", expected: false},
		{name: "same version", current: "1.0.0", candidate: "v1.0.0", expected: false},
		{name: "unknown current", current: "", candidate: "v1.0.0", expected: false},
		{name: "opaque candidate", current: "v1.0.0", candidate: "nightly", expected: false},
		{name: "opaque current", current: "nightly-2", candidate: "v0.1.0", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsDowngrade(tc.current, tc.candidate))
		})
	}
}
