package util

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	SomeMap   map[string]string
	SomeArray []string
	SomeField int
}

func TestWriteReadJson(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "config.json")

	written := &testConfig{
		SomeMap:   map[string]string{"key1": "value1", "key2": "value2"},
		SomeArray: []string{"value1", "value2"},
		SomeField: 99,
	}
	require.NoError(t, WriteJson(context.Background(), file, written))

	read, err := ReadJson(file, &testConfig{})
	require.NoError(t, err)
	assert.Equal(t, written, read.(*testConfig))

	entries, err := os.ReadDir(filepath.Dir(file))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed into place")
}

func TestWriteJson_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	file := filepath.Join(t.TempDir(), "config.json")
	assert.ErrorIs(t, WriteJson(ctx, file, &testConfig{}), context.Canceled)
	assert.False(t, FileExists(file))
}

func TestReadJsonWithEnvSub(t *testing.T) {
	t.Setenv("ASARSYNC_TEST_OWNER", "someone")

	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"Owner": "{{ .ASARSYNC_TEST_OWNER }}", "Repo": "app"}`), 0o600))

	type cfg struct {
		Owner string
		Repo  string
	}
	read, err := ReadJsonWithEnvSub(file, &cfg{})
	require.NoError(t, err)
	assert.Equal(t, "someone", read.(*cfg).Owner)
	assert.Equal(t, "app", read.(*cfg).Repo)
}

func TestReadJson_Missing(t *testing.T) {
	_, err := ReadJson(filepath.Join(t.TempDir(), "nope.json"), &testConfig{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
