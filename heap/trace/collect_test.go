package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Collect_Directory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.script", "a.script", ".hidden.script", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("a 0 8\n"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.script"), 0o755))

	files, err := Collect(dir)
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.script"),
		filepath.Join(dir, "b.script"),
	}, files)
}

func Test_Collect_FilesAndDirsSorted(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(t.TempDir(), "m.txt")
	require.NoError(t, os.WriteFile(single, []byte("f 0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.script"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.script"), nil, 0o644))

	files, err := Collect(dir, single)
	require.NoError(t, err)
	require.Len(t, files, 3)
	require.Equal(t, "a.script", filepath.Base(files[0]))
	require.Equal(t, "m.txt", filepath.Base(files[1]))
	require.Equal(t, "z.script", filepath.Base(files[2]))
}

func Test_Collect_Errors(t *testing.T) {
	_, err := Collect(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)

	_, err = Collect(t.TempDir())
	require.ErrorIs(t, err, ErrNoScripts)
}

func Test_ScriptName(t *testing.T) {
	require.Equal(t, "mixed", ScriptName("testdata/mixed.script"))
	require.Equal(t, "plain.txt", ScriptName("/tmp/plain.txt"))
}
