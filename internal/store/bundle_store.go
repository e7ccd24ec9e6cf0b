package store

import (
	"path/filepath"
	"sync"

	"signet/internal/domain"
)

const bundleFile = "bundle.json"

// BundleFileStore caches the last pre-key bundle that was assembled.
type BundleFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewBundleFileStore returns a BundleFileStore rooted at dir.
func NewBundleFileStore(dir string) *BundleFileStore {
	return &BundleFileStore{dir: dir}
}

// SavePreKeyBundle writes the bundle to disk.
func (s *BundleFileStore) SavePreKeyBundle(b domain.PreKeyBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return writeJSON(filepath.Join(s.dir, bundleFile), b, 0o600)
}

// LoadPreKeyBundle returns the cached bundle if it was assembled for username.
func (s *BundleFileStore) LoadPreKeyBundle(username domain.Username) (domain.PreKeyBundle, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b domain.PreKeyBundle
	if err := readJSON(filepath.Join(s.dir, bundleFile), &b); err != nil {
		return domain.PreKeyBundle{}, false, err
	}
	if b.Username == "" || b.Username != username {
		return domain.PreKeyBundle{}, false, nil
	}
	return b, true, nil
}

// Compile-time assertion that BundleFileStore implements domain.PreKeyBundleStore.
var _ domain.PreKeyBundleStore = (*BundleFileStore)(nil)
