package store

import (
	"fmt"
	"sort"
	"sync"

	"signet/internal/domain"
)

// MemoryStore keeps pre-key records and cursors in memory. Nothing survives
// the process; it backs tests and throwaway runs.
type MemoryStore struct {
	mu sync.RWMutex

	preKeys       map[domain.PreKeyID]domain.PreKeyRecord
	signedPreKeys map[domain.SignedPreKeyID]domain.SignedPreKeyRecord

	nextPreKeyID         domain.PreKeyID
	nextSignedPreKeyID   domain.SignedPreKeyID
	activeSignedPreKeyID domain.SignedPreKeyID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preKeys:       make(map[domain.PreKeyID]domain.PreKeyRecord),
		signedPreKeys: make(map[domain.SignedPreKeyID]domain.SignedPreKeyRecord),

		activeSignedPreKeyID: domain.NoActiveSignedPreKey,
	}
}

// StorePreKey stores record under id, replacing any previous record.
func (s *MemoryStore) StorePreKey(id domain.PreKeyID, record domain.PreKeyRecord) error {
	s.mu.Lock()
	s.preKeys[id] = record
	s.mu.Unlock()
	return nil
}

// LoadPreKey returns the record stored under id.
func (s *MemoryStore) LoadPreKey(id domain.PreKeyID) (domain.PreKeyRecord, error) {
	s.mu.RLock()
	rec, ok := s.preKeys[id]
	s.mu.RUnlock()
	if !ok {
		return domain.PreKeyRecord{}, fmt.Errorf("store: pre-key %d: %w", id, domain.ErrInvalidKeyID)
	}
	return rec, nil
}

// ContainsPreKey reports whether a record is stored under id.
func (s *MemoryStore) ContainsPreKey(id domain.PreKeyID) (bool, error) {
	s.mu.RLock()
	_, ok := s.preKeys[id]
	s.mu.RUnlock()
	return ok, nil
}

// RemovePreKey deletes the record stored under id.
func (s *MemoryStore) RemovePreKey(id domain.PreKeyID) error {
	s.mu.Lock()
	delete(s.preKeys, id)
	s.mu.Unlock()
	return nil
}

// StoreSignedPreKey stores record under id, replacing any previous record.
func (s *MemoryStore) StoreSignedPreKey(id domain.SignedPreKeyID, record domain.SignedPreKeyRecord) error {
	s.mu.Lock()
	s.signedPreKeys[id] = record
	s.mu.Unlock()
	return nil
}

// LoadSignedPreKey returns the signed record stored under id.
func (s *MemoryStore) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyRecord, error) {
	s.mu.RLock()
	rec, ok := s.signedPreKeys[id]
	s.mu.RUnlock()
	if !ok {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("store: signed pre-key %d: %w", id, domain.ErrInvalidKeyID)
	}
	return rec, nil
}

// LoadSignedPreKeys returns every signed record ordered by id.
func (s *MemoryStore) LoadSignedPreKeys() ([]domain.SignedPreKeyRecord, error) {
	s.mu.RLock()
	out := make([]domain.SignedPreKeyRecord, 0, len(s.signedPreKeys))
	for _, rec := range s.signedPreKeys {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RemoveSignedPreKey deletes the signed record stored under id.
func (s *MemoryStore) RemoveSignedPreKey(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	delete(s.signedPreKeys, id)
	s.mu.Unlock()
	return nil
}

// NextPreKeyID returns the next one-time pre-key id to allocate.
func (s *MemoryStore) NextPreKeyID() (domain.PreKeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextPreKeyID, nil
}

// SetNextPreKeyID records the next one-time pre-key id to allocate.
func (s *MemoryStore) SetNextPreKeyID(id domain.PreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPreKeyID = id
	return nil
}

// NextSignedPreKeyID returns the next signed pre-key id to allocate.
func (s *MemoryStore) NextSignedPreKeyID() (domain.SignedPreKeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSignedPreKeyID, nil
}

// SetNextSignedPreKeyID records the next signed pre-key id to allocate.
func (s *MemoryStore) SetNextSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSignedPreKeyID = id
	return nil
}

// ActiveSignedPreKeyID returns the recorded active signed pre-key id.
func (s *MemoryStore) ActiveSignedPreKeyID() (domain.SignedPreKeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeSignedPreKeyID, nil
}

// SetActiveSignedPreKeyID records which signed pre-key id is active.
func (s *MemoryStore) SetActiveSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSignedPreKeyID = id
	return nil
}

// Compile-time assertions that MemoryStore implements the store contracts.
var (
	_ domain.PreKeyStore       = (*MemoryStore)(nil)
	_ domain.SignedPreKeyStore = (*MemoryStore)(nil)
	_ domain.CursorStore       = (*MemoryStore)(nil)
)
