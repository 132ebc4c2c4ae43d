package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLite_PutGetSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")

	s := NewSQLite(path)
	require.NoError(t, s.Put("theme", []byte("dark")))
	require.NoError(t, s.Put("theme", []byte("light")))
	require.NoError(t, s.Close())

	reopened := NewSQLite(path)
	t.Cleanup(func() { reopened.Close() })
	got, err := reopened.Get("theme")
	require.NoError(t, err)
	require.Equal(t, "light", string(got))
}

func TestSQLite_MissingKey(t *testing.T) {
	s := NewSQLite(filepath.Join(t.TempDir(), "records.db"))
	t.Cleanup(func() { s.Close() })
	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_FallsBackToMemory(t *testing.T) {
	s := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "records.db"))
	require.NoError(t, s.Put("k", []byte("v")))
	got, err := s.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", string(got))
	require.Error(t, s.initErr)
}

func TestMemory_CopiesValues(t *testing.T) {
	m := NewMemory()
	v := []byte("abc")
	require.NoError(t, m.Put("k", v))
	v[0] = 'x'
	got, err := m.Get("k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got))
}
