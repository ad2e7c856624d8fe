package target

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateArtifact_Override(t *testing.T) {
	dir := t.TempDir()
	resources := filepath.Join(dir, "resources")
	require.NoError(t, os.MkdirAll(resources, 0o755))
	artifact := filepath.Join(resources, ArtifactName)
	require.NoError(t, os.WriteFile(artifact, []byte("asar"), 0o644))

	got, err := LocateArtifact(artifact)
	require.NoError(t, err)
	assert.Equal(t, artifact, got)
}

func TestLocateArtifact_Missing(t *testing.T) {
	dir := t.TempDir()

	_, err := LocateArtifact(filepath.Join(dir, "resources", ArtifactName))
	assert.ErrorIs(t, err, ErrResolution)
}

func TestLocateArtifact_Directory(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "resources", ArtifactName)
	require.NoError(t, os.MkdirAll(artifact, 0o755))

	_, err := LocateArtifact(artifact)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestDefaultArtifactPath(t *testing.T) {
	p, err := DefaultArtifactPath()
	require.NoError(t, err)
	assert.Equal(t, ArtifactName, filepath.Base(p))
	assert.True(t, filepath.IsAbs(p))
}

func TestDefaultExecutable(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "apps", "target")
	artifact := filepath.Join(root, "resources", ArtifactName)

	exe := DefaultExecutable(artifact)
	switch runtime.GOOS {
	case "windows":
		assert.Equal(t, filepath.Join(root, "Mattermost.exe"), exe)
	case "darwin":
		assert.Equal(t, filepath.Join(root, "MacOS", "Mattermost"), exe)
	default:
		assert.Equal(t, filepath.Join(root, "mattermost-desktop"), exe)
	}
}
