package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "conf")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nps.conf"), []byte("web_port=8081\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "rules.json"), []byte("[]"), 0644))

	require.NoError(t, CopyDir(src, dst))

	b, err := os.ReadFile(filepath.Join(dst, "nps.conf"))
	require.NoError(t, err)
	require.Equal(t, "web_port=8081\n", string(b))
	b, err = os.ReadFile(filepath.Join(dst, "sub", "rules.json"))
	require.NoError(t, err)
	require.Equal(t, "[]", string(b))
}

func TestCopyDirRejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(f, nil, 0644))
	require.Error(t, CopyDir(f, t.TempDir()))
}

func TestCopyFileSamePath(t *testing.T) {
	f := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(f, []byte("a"), 0644))
	n, err := copyFile(f, f)
	require.NoError(t, err)
	require.Zero(t, n)
}
