package extract

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dst string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(dst)
	require.NoError(t, err)

	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestZip_ExtractFlattens(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "app.asar.zip")
	writeZip(t, archive, map[string]string{
		"resources/app.asar": "asar payload",
		"README":             "readme",
		"empty-dir/":         "",
	})

	out := filepath.Join(dir, "out")
	require.NoError(t, Zip{}.Extract(context.Background(), archive, out))

	got, err := os.ReadFile(filepath.Join(out, "app.asar"))
	require.NoError(t, err)
	assert.Equal(t, "asar payload", string(got))

	got, err = os.ReadFile(filepath.Join(out, "README"))
	require.NoError(t, err)
	assert.Equal(t, "readme", string(got))
}

func TestZip_TraversalEntryStaysInOutDir(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{"../../escape.asar": "x"})

	out := filepath.Join(dir, "nested", "out")
	if err := (Zip{}).Extract(context.Background(), archive, out); err != nil {
		assert.ErrorIs(t, err, ErrExtraction)
	}

	_, err := os.Stat(filepath.Join(dir, "escape.asar"))
	assert.True(t, os.IsNotExist(err))
}

func TestZip_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(archive, []byte("not a zip"), 0o644))

	err := Zip{}.Extract(context.Background(), archive, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestSevenZip_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	s := NewSevenZip(filepath.Join(dir, "no-such-7z"))

	err := s.Extract(context.Background(), filepath.Join(dir, "app.asar.7z"), filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestSevenZip_RunsTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a unix shell")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "7z")
	// writes the archive name into <outDir>/app.asar, proving the argument layout
	script := "#!/bin/sh\n" +
		"[ \"$1\" = e ] || exit 2\n" +
		"out=${3#-o}\n" +
		"printf '%s' \"$2\" > \"$out/app.asar\"\n"
	require.NoError(t, os.WriteFile(fake, []byte(script), 0o755))

	archive := filepath.Join(dir, "app.asar.7z")
	out := filepath.Join(dir, "out")
	require.NoError(t, NewSevenZip(fake).Extract(context.Background(), archive, out))

	got, err := os.ReadFile(filepath.Join(out, "app.asar"))
	require.NoError(t, err)
	assert.Equal(t, archive, string(got))
}

func TestSevenZip_ToolFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a unix shell")
	}

	dir := t.TempDir()
	fake := filepath.Join(dir, "7z")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\necho 'Can not open the file as archive'\nexit 2\n"), 0o755))

	err := NewSevenZip(fake).Extract(context.Background(), filepath.Join(dir, "a.7z"), filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "Can not open the file as archive")
}

func TestNewSevenZip_DefaultBinary(t *testing.T) {
	assert.Equal(t, DefaultSevenZipBinary(), NewSevenZip("").Binary)
}

func TestByName_Dispatch(t *testing.T) {
	seven := NewSevenZip("7z")
	zipper := Zip{}
	b := ByName{SevenZip: seven, Zip: zipper}

	assert.Equal(t, zipper, b.For("/tmp/app.asar.zip"))
	assert.Equal(t, zipper, b.For("/tmp/APP.ASAR.ZIP"))
	assert.Same(t, seven, b.For("/tmp/app.asar.7z"))
	assert.Same(t, seven, b.For("/tmp/unknown.bin"))

	err := ByName{}.Extract(context.Background(), "x.7z", t.TempDir())
	assert.ErrorIs(t, err, ErrExtraction)
}
