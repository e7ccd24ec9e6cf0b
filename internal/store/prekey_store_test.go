package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"signet/internal/domain"
	"signet/internal/store"
)

type prekeyBackend interface {
	domain.PreKeyStore
	domain.SignedPreKeyStore
	domain.CursorStore
}

func backends(t *testing.T) map[string]func(t *testing.T) prekeyBackend {
	return map[string]func(t *testing.T) prekeyBackend{
		"file": func(t *testing.T) prekeyBackend {
			return openFileStore(t, t.TempDir())
		},
		"bolt": func(t *testing.T) prekeyBackend {
			s, err := store.OpenBoltStore(filepath.Join(t.TempDir(), store.BoltDBFile))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, s.Close()) })
			return s
		},
		"memory": func(t *testing.T) prekeyBackend {
			return store.NewMemoryStore()
		},
	}
}

func openFileStore(t *testing.T, dir string) *store.PrekeyFileStore {
	t.Helper()
	s, err := store.OpenPrekeyFileStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPreKey(id domain.PreKeyID) domain.PreKeyRecord {
	return domain.PreKeyRecord{
		ID: id,
		KeyPair: domain.KeyPair{
			Public:  domain.X25519Public{byte(id), 1},
			Private: domain.X25519Private{byte(id), 2},
		},
	}
}

func testSignedPreKey(id domain.SignedPreKeyID) domain.SignedPreKeyRecord {
	return domain.SignedPreKeyRecord{
		ID:        id,
		Timestamp: 1700000000000 + int64(id),
		KeyPair: domain.KeyPair{
			Public:  domain.X25519Public{byte(id), 3},
			Private: domain.X25519Private{byte(id), 4},
		},
		Signature: []byte{byte(id), 5, 6},
	}
}

func TestBackends_PreKeys(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			_, err := s.LoadPreKey(1)
			require.ErrorIs(t, err, domain.ErrInvalidKeyID)

			rec := testPreKey(1)
			require.NoError(t, s.StorePreKey(rec.ID, rec))

			got, err := s.LoadPreKey(1)
			require.NoError(t, err)
			require.Equal(t, rec, got)

			ok, err := s.ContainsPreKey(1)
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, s.RemovePreKey(1))
			ok, err = s.ContainsPreKey(1)
			require.NoError(t, err)
			require.False(t, ok)

			// Removing again is not an error.
			require.NoError(t, s.RemovePreKey(1))
		})
	}
}

func TestBackends_SignedPreKeys(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			_, err := s.LoadSignedPreKey(3)
			require.ErrorIs(t, err, domain.ErrInvalidKeyID)

			for _, id := range []domain.SignedPreKeyID{3, 1, 2} {
				rec := testSignedPreKey(id)
				require.NoError(t, s.StoreSignedPreKey(id, rec))
			}

			got, err := s.LoadSignedPreKey(3)
			require.NoError(t, err)
			require.Equal(t, testSignedPreKey(3), got)

			all, err := s.LoadSignedPreKeys()
			require.NoError(t, err)
			require.Len(t, all, 3)
			for i, rec := range all {
				require.Equal(t, domain.SignedPreKeyID(i+1), rec.ID)
			}

			require.NoError(t, s.RemoveSignedPreKey(2))
			all, err = s.LoadSignedPreKeys()
			require.NoError(t, err)
			require.Len(t, all, 2)
		})
	}
}

func TestBackends_Cursors(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)

			next, err := s.NextPreKeyID()
			require.NoError(t, err)
			require.Zero(t, next)
			signedNext, err := s.NextSignedPreKeyID()
			require.NoError(t, err)
			require.Zero(t, signedNext)
			active, err := s.ActiveSignedPreKeyID()
			require.NoError(t, err)
			require.Equal(t, domain.NoActiveSignedPreKey, active)

			require.NoError(t, s.SetNextPreKeyID(101))
			require.NoError(t, s.SetNextSignedPreKeyID(5))
			require.NoError(t, s.SetActiveSignedPreKeyID(4))

			next, err = s.NextPreKeyID()
			require.NoError(t, err)
			require.Equal(t, domain.PreKeyID(101), next)
			signedNext, err = s.NextSignedPreKeyID()
			require.NoError(t, err)
			require.Equal(t, domain.SignedPreKeyID(5), signedNext)
			active, err = s.ActiveSignedPreKeyID()
			require.NoError(t, err)
			require.Equal(t, domain.SignedPreKeyID(4), active)

			// Id 0 is a real active id, distinct from unset.
			require.NoError(t, s.SetActiveSignedPreKeyID(0))
			active, err = s.ActiveSignedPreKeyID()
			require.NoError(t, err)
			require.Zero(t, active)
		})
	}
}

func TestPrekeyFileStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s := openFileStore(t, dir)
	require.NoError(t, s.StorePreKey(9, testPreKey(9)))
	require.NoError(t, s.SetNextPreKeyID(10))
	require.NoError(t, s.Close())

	reopened := openFileStore(t, dir)
	got, err := reopened.LoadPreKey(9)
	require.NoError(t, err)
	require.Equal(t, testPreKey(9), got)
	next, err := reopened.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(10), next)

	info, err := os.Stat(filepath.Join(dir, "prekeys.json"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPrekeyFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prekeys.json"), []byte("{"), 0o600))

	s := openFileStore(t, dir)
	_, err := s.LoadPreKey(1)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrInvalidKeyID)

	// A corrupt file is not silently replaced.
	require.Error(t, s.StorePreKey(1, testPreKey(1)))
}

func TestPrekeyFileStore_ExclusiveLock(t *testing.T) {
	dir := t.TempDir()
	s := openFileStore(t, dir)

	_, err := store.OpenPrekeyFileStore(dir)
	require.ErrorIs(t, err, store.ErrStoreLocked)

	require.NoError(t, s.Close())
	other := openFileStore(t, dir)
	require.NoError(t, other.SetNextPreKeyID(1))
}

func TestBoltStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), store.BoltDBFile)

	s, err := store.OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.StoreSignedPreKey(2, testSignedPreKey(2)))
	require.NoError(t, s.SetActiveSignedPreKeyID(2))
	require.NoError(t, s.Close())

	s, err = store.OpenBoltStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.LoadSignedPreKey(2)
	require.NoError(t, err)
	require.Equal(t, testSignedPreKey(2), got)
	active, err := s.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(2), active)
}
