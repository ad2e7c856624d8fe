package version

import (
	"fmt"
	"runtime"
)

// will be replaced with the release version when using goreleaser
var version = "development"

// AgentVersion returns the agent version
func AgentVersion() string {
	return version
}

// UserAgent is sent with every request to the release feed and asset hosts
func UserAgent() string {
	return fmt.Sprintf("asarsync/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}
