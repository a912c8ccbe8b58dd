package keystore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func TestBoltStore_GetOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.db")
	s, err := Open(path)
	require.NoError(t, err)

	first, err := s.GetOrCreate("service-identity-seed")
	require.NoError(t, err)
	require.Len(t, first, SeedSize)

	again, err := s.GetOrCreate("service-identity-seed")
	require.NoError(t, err)
	require.Equal(t, first, again)

	other, err := s.GetOrCreate("transport-identity-seed")
	require.NoError(t, err)
	require.NotEqual(t, first, other)
	require.NoError(t, s.Close())

	// A second opening of the same file sees the same seeds.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	reopened, err := s.GetOrCreate("service-identity-seed")
	require.NoError(t, err)
	require.Equal(t, first, reopened)
}

func TestBoltStore_EmptyName(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "seeds.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetOrCreate("")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestBoltStore_CorruptSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Put([]byte("short"), []byte{1, 2, 3})
	}))

	_, err = s.GetOrCreate("short")
	require.ErrorIs(t, err, ErrCorruptSeed)
	require.NoError(t, s.Close())
}

func TestBoltStore_Has(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "seeds.db"))
	require.NoError(t, err)
	defer s.Close()

	has, err := s.Has("client-identity-seed")
	require.NoError(t, err)
	require.False(t, has)

	_, err = s.GetOrCreate("client-identity-seed")
	require.NoError(t, err)
	has, err = s.Has("client-identity-seed")
	require.NoError(t, err)
	require.True(t, has)
}
