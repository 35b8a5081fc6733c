package fsoutput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	out, err := New(dir)
	require.NoError(t, err)

	out.Write("acwork/index.html", []byte("<table></table>"))
	out.Write("../escape.html", []byte("nope"))

	contents, err := os.ReadFile(filepath.Join(dir, "acwork_index.html"))
	require.NoError(t, err)
	require.Equal(t, "<table></table>", string(contents))

	_, err = os.Stat(filepath.Join(dir, ".._escape.html"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.html"))
	require.True(t, os.IsNotExist(err))
}
