package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"

	"signet/internal/domain"
)

const (
	preKeysFile       = "prekeys.json"
	signedPreKeysFile = "signed_prekeys.json"
	prekeyMetaFile    = "prekey_meta.json"
	prekeyLockFile    = "prekeys.lock"
)

// ErrStoreLocked is returned when another open store holds the pre-key files.
var ErrStoreLocked = errors.New("store: pre-key files are in use by another process")

// PrekeyFileStore persists pre-key records and the id cursors as JSON
// files under dir. Every write replaces the file atomically. An open store
// holds an exclusive lock on dir until Close.
type PrekeyFileStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// OpenPrekeyFileStore locks dir and returns a PrekeyFileStore rooted there.
// It fails with ErrStoreLocked if another store already has dir open.
func OpenPrekeyFileStore(dir string) (*PrekeyFileStore, error) {
	lock := flock.New(filepath.Join(dir, prekeyLockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("store: lock %s: %w", dir, err)
	}
	if !locked {
		return nil, ErrStoreLocked
	}
	return &PrekeyFileStore{dir: dir, lock: lock}, nil
}

// Close releases the lock on the store directory.
func (s *PrekeyFileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lock.Unlock()
}

type prekeyMeta struct {
	NextPreKeyID         domain.PreKeyID        `json:"next_pre_key_id"`
	NextSignedPreKeyID   domain.SignedPreKeyID  `json:"next_signed_pre_key_id"`
	ActiveSignedPreKeyID *domain.SignedPreKeyID `json:"active_signed_pre_key_id,omitempty"`
}

// ---------- One-time pre-keys ----------

// StorePreKey stores record under id, replacing any previous record.
func (s *PrekeyFileStore) StorePreKey(id domain.PreKeyID, record domain.PreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updatePreKeys(func(m map[domain.PreKeyID]domain.PreKeyRecord) {
		m[id] = record
	})
}

// LoadPreKey returns the record stored under id.
func (s *PrekeyFileStore) LoadPreKey(id domain.PreKeyID) (domain.PreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readPreKeys()
	if err != nil {
		return domain.PreKeyRecord{}, err
	}
	rec, ok := m[id]
	if !ok {
		return domain.PreKeyRecord{}, fmt.Errorf("store: pre-key %d: %w", id, domain.ErrInvalidKeyID)
	}
	return rec, nil
}

// ContainsPreKey reports whether a record is stored under id.
func (s *PrekeyFileStore) ContainsPreKey(id domain.PreKeyID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readPreKeys()
	if err != nil {
		return false, err
	}
	_, ok := m[id]
	return ok, nil
}

// RemovePreKey deletes the record stored under id. Removing a missing id is
// not an error.
func (s *PrekeyFileStore) RemovePreKey(id domain.PreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updatePreKeys(func(m map[domain.PreKeyID]domain.PreKeyRecord) {
		delete(m, id)
	})
}

func (s *PrekeyFileStore) readPreKeys() (map[domain.PreKeyID]domain.PreKeyRecord, error) {
	m := make(map[domain.PreKeyID]domain.PreKeyRecord)
	if err := readJSON(filepath.Join(s.dir, preKeysFile), &m); err != nil {
		return nil, fmt.Errorf("store: read pre-keys: %w", err)
	}
	return m, nil
}

func (s *PrekeyFileStore) updatePreKeys(fn func(map[domain.PreKeyID]domain.PreKeyRecord)) error {
	m, err := s.readPreKeys()
	if err != nil {
		return err
	}
	fn(m)
	return writeJSON(filepath.Join(s.dir, preKeysFile), m, 0o600)
}

// ---------- Signed pre-keys ----------

// StoreSignedPreKey stores record under id, replacing any previous record.
func (s *PrekeyFileStore) StoreSignedPreKey(id domain.SignedPreKeyID, record domain.SignedPreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSignedPreKeys(func(m map[domain.SignedPreKeyID]domain.SignedPreKeyRecord) {
		m[id] = record
	})
}

// LoadSignedPreKey returns the signed record stored under id.
func (s *PrekeyFileStore) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readSignedPreKeys()
	if err != nil {
		return domain.SignedPreKeyRecord{}, err
	}
	rec, ok := m[id]
	if !ok {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("store: signed pre-key %d: %w", id, domain.ErrInvalidKeyID)
	}
	return rec, nil
}

// LoadSignedPreKeys returns every signed record ordered by id.
func (s *PrekeyFileStore) LoadSignedPreKeys() ([]domain.SignedPreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.readSignedPreKeys()
	if err != nil {
		return nil, err
	}
	out := make([]domain.SignedPreKeyRecord, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RemoveSignedPreKey deletes the signed record stored under id.
func (s *PrekeyFileStore) RemoveSignedPreKey(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateSignedPreKeys(func(m map[domain.SignedPreKeyID]domain.SignedPreKeyRecord) {
		delete(m, id)
	})
}

func (s *PrekeyFileStore) readSignedPreKeys() (map[domain.SignedPreKeyID]domain.SignedPreKeyRecord, error) {
	m := make(map[domain.SignedPreKeyID]domain.SignedPreKeyRecord)
	if err := readJSON(filepath.Join(s.dir, signedPreKeysFile), &m); err != nil {
		return nil, fmt.Errorf("store: read signed pre-keys: %w", err)
	}
	return m, nil
}

func (s *PrekeyFileStore) updateSignedPreKeys(fn func(map[domain.SignedPreKeyID]domain.SignedPreKeyRecord)) error {
	m, err := s.readSignedPreKeys()
	if err != nil {
		return err
	}
	fn(m)
	return writeJSON(filepath.Join(s.dir, signedPreKeysFile), m, 0o600)
}

// ---------- Cursors ----------

// NextPreKeyID returns the next one-time pre-key id to allocate.
func (s *PrekeyFileStore) NextPreKeyID() (domain.PreKeyID, error) {
	meta, err := s.loadMeta()
	return meta.NextPreKeyID, err
}

// SetNextPreKeyID records the next one-time pre-key id to allocate.
func (s *PrekeyFileStore) SetNextPreKeyID(id domain.PreKeyID) error {
	return s.updateMeta(func(m *prekeyMeta) { m.NextPreKeyID = id })
}

// NextSignedPreKeyID returns the next signed pre-key id to allocate.
func (s *PrekeyFileStore) NextSignedPreKeyID() (domain.SignedPreKeyID, error) {
	meta, err := s.loadMeta()
	return meta.NextSignedPreKeyID, err
}

// SetNextSignedPreKeyID records the next signed pre-key id to allocate.
func (s *PrekeyFileStore) SetNextSignedPreKeyID(id domain.SignedPreKeyID) error {
	return s.updateMeta(func(m *prekeyMeta) { m.NextSignedPreKeyID = id })
}

// ActiveSignedPreKeyID returns the recorded active signed pre-key id.
func (s *PrekeyFileStore) ActiveSignedPreKeyID() (domain.SignedPreKeyID, error) {
	meta, err := s.loadMeta()
	if err != nil || meta.ActiveSignedPreKeyID == nil {
		return domain.NoActiveSignedPreKey, err
	}
	return *meta.ActiveSignedPreKeyID, nil
}

// SetActiveSignedPreKeyID records which signed pre-key id is active.
func (s *PrekeyFileStore) SetActiveSignedPreKeyID(id domain.SignedPreKeyID) error {
	return s.updateMeta(func(m *prekeyMeta) { m.ActiveSignedPreKeyID = &id })
}

func (s *PrekeyFileStore) loadMeta() (prekeyMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta prekeyMeta
	if err := readJSON(filepath.Join(s.dir, prekeyMetaFile), &meta); err != nil {
		return prekeyMeta{}, fmt.Errorf("store: read pre-key metadata: %w", err)
	}
	return meta, nil
}

func (s *PrekeyFileStore) updateMeta(fn func(*prekeyMeta)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, prekeyMetaFile)
	var meta prekeyMeta
	if err := readJSON(path, &meta); err != nil {
		return fmt.Errorf("store: read pre-key metadata: %w", err)
	}
	fn(&meta)
	return writeJSON(path, meta, 0o600)
}

// Compile-time assertions that PrekeyFileStore implements the store contracts.
var (
	_ domain.PreKeyStore       = (*PrekeyFileStore)(nil)
	_ domain.SignedPreKeyStore = (*PrekeyFileStore)(nil)
	_ domain.CursorStore       = (*PrekeyFileStore)(nil)
)
