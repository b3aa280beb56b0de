package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLib(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.lib")
}

func TestCreatePutGet(t *testing.T) {
	path := tempLib(t)
	s, err := Create(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutUnit(Unit{Name: "P", Kind: "program", Body: []byte("code")}))
	u, err := s.GetUnit("P", "program")
	require.NoError(t, err)
	assert.Equal(t, []byte("code"), u.Body)

	_, err = s.GetUnit("Q", "program")
	assert.Error(t, err)
}

func TestReplaceUnit(t *testing.T) {
	s, err := Create(tempLib(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutUnit(Unit{Name: "P", Kind: "program", Body: []byte("v1")}))
	require.NoError(t, s.PutUnit(Unit{Name: "P", Kind: "program", Body: []byte("v2")}))
	u, err := s.GetUnit("P", "program")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), u.Body)

	units, err := s.Units()
	require.NoError(t, err)
	assert.Len(t, units, 1)
}

func TestOpenExisting(t *testing.T) {
	path := tempLib(t)
	s, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, s.PutUnit(Unit{Name: "LIB", Kind: "package", Body: []byte("x")}))
	buildID := s.BuildID()
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	assert.Equal(t, buildID, s2.BuildID())
	u, err := s2.GetUnit("LIB", "package")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), u.Body)
}

func TestOpenMissingFails(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.lib"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SETL2_LIBRARY", "/tmp/override.lib")
	assert.Equal(t, "/tmp/override.lib", DefaultPath())

	t.Setenv("SETL2_LIBRARY", "")
	assert.Equal(t, "setl2.lib", DefaultPath())

	dir := t.TempDir()
	path := filepath.Join(dir, "found.lib")
	s, err := Create(path)
	require.NoError(t, err)
	s.Close()

	t.Setenv("SETL2_LIBPATH", dir)
	got, err := FindLibrary("found.lib")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = FindLibrary("missing.lib")
	assert.Error(t, err)
}
