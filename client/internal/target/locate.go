package target

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	ArtifactName      = "app.asar"
	DefaultTargetName = "Mattermost"
)

var ErrResolution = errors.New("installed artifact not found")

// DefaultArtifactPath returns where the desktop application keeps its
// artifact on the current OS
func DefaultArtifactPath() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData, err := os.UserCacheDir() // %LocalAppData%
		if err != nil {
			return "", fmt.Errorf("%w: resolve local app data: %v", ErrResolution, err)
		}
		return filepath.Join(appData, "Programs", "mattermost-desktop", "resources", ArtifactName), nil
	case "darwin":
		return filepath.Join("/Applications", "Mattermost.app", "Contents", "Resources", ArtifactName), nil
	default:
		return filepath.Join("/opt", "Mattermost", "resources", ArtifactName), nil
	}
}

// LocateArtifact resolves the installed artifact, preferring override when
// set. The result is an absolute path to an existing regular file.
func LocateArtifact(override string) (string, error) {
	p := override
	if p == "" {
		var err error
		if p, err = DefaultArtifactPath(); err != nil {
			return "", err
		}
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrResolution, p, err)
	}

	if _, err := os.Stat(filepath.Dir(filepath.Dir(abs))); err != nil {
		return "", fmt.Errorf("%w: installation directory of %s: %v", ErrResolution, abs, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolution, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrResolution, abs)
	}

	return abs, nil
}

// DefaultExecutable derives the application binary from the artifact
// location, two levels above the artifact.
func DefaultExecutable(artifactPath string) string {
	root := filepath.Dir(filepath.Dir(artifactPath))
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(root, "Mattermost.exe")
	case "darwin":
		return filepath.Join(root, "MacOS", "Mattermost")
	default:
		return filepath.Join(root, "mattermost-desktop")
	}
}
