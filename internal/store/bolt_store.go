package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"signet/internal/domain"
)

// BoltDBFile is the default file name of the bbolt backend under the home dir.
const BoltDBFile = "prekeys.db"

const (
	preKeysBucket       = "prekeys"
	signedPreKeysBucket = "signed_prekeys"
	metadataBucket      = "metadata"

	versionKey              = "version"
	nextPreKeyIDKey         = "next_pre_key_id"
	nextSignedPreKeyIDKey   = "next_signed_pre_key_id"
	activeSignedPreKeyIDKey = "active_signed_pre_key_id"

	boltFormatVersion = 0

	// openTimeout bounds the wait for another process's file lock.
	openTimeout = 5 * time.Second
)

// BoltStore persists pre-key records and cursors in a single bbolt file.
// Records are CBOR encoded and keyed by their big-endian id. Each call runs
// in its own transaction, so a record is durable once the call returns.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore creates (or loads) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		for _, name := range []string{preKeysBucket, signedPreKeysBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}

		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != boltFormatVersion {
				return fmt.Errorf("store: incompatible version: %x", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{boltFormatVersion})
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close flushes and closes the database.
func (s *BoltStore) Close() error {
	if err := s.db.Sync(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// ---------- One-time pre-keys ----------

// StorePreKey stores record under id, replacing any previous record.
func (s *BoltStore) StorePreKey(id domain.PreKeyID, record domain.PreKeyRecord) error {
	return s.put(preKeysBucket, uint32(id), record)
}

// LoadPreKey returns the record stored under id.
func (s *BoltStore) LoadPreKey(id domain.PreKeyID) (domain.PreKeyRecord, error) {
	var rec domain.PreKeyRecord
	if err := s.get(preKeysBucket, uint32(id), &rec); err != nil {
		return domain.PreKeyRecord{}, fmt.Errorf("store: pre-key %d: %w", id, err)
	}
	return rec, nil
}

// ContainsPreKey reports whether a record is stored under id.
func (s *BoltStore) ContainsPreKey(id domain.PreKeyID) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(preKeysBucket)).Get(idKey(uint32(id))) != nil
		return nil
	})
	return found, err
}

// RemovePreKey deletes the record stored under id.
func (s *BoltStore) RemovePreKey(id domain.PreKeyID) error {
	return s.delete(preKeysBucket, uint32(id))
}

// ---------- Signed pre-keys ----------

// StoreSignedPreKey stores record under id, replacing any previous record.
func (s *BoltStore) StoreSignedPreKey(id domain.SignedPreKeyID, record domain.SignedPreKeyRecord) error {
	return s.put(signedPreKeysBucket, uint32(id), record)
}

// LoadSignedPreKey returns the signed record stored under id.
func (s *BoltStore) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyRecord, error) {
	var rec domain.SignedPreKeyRecord
	if err := s.get(signedPreKeysBucket, uint32(id), &rec); err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("store: signed pre-key %d: %w", id, err)
	}
	return rec, nil
}

// LoadSignedPreKeys returns every signed record ordered by id.
func (s *BoltStore) LoadSignedPreKeys() ([]domain.SignedPreKeyRecord, error) {
	var out []domain.SignedPreKeyRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(signedPreKeysBucket)).ForEach(func(k, v []byte) error {
			var rec domain.SignedPreKeyRecord
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("store: decode signed pre-key %x: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// RemoveSignedPreKey deletes the signed record stored under id.
func (s *BoltStore) RemoveSignedPreKey(id domain.SignedPreKeyID) error {
	return s.delete(signedPreKeysBucket, uint32(id))
}

// ---------- Cursors ----------

// NextPreKeyID returns the next one-time pre-key id to allocate.
func (s *BoltStore) NextPreKeyID() (domain.PreKeyID, error) {
	v, _, err := s.getMeta(nextPreKeyIDKey)
	return domain.PreKeyID(v), err
}

// SetNextPreKeyID records the next one-time pre-key id to allocate.
func (s *BoltStore) SetNextPreKeyID(id domain.PreKeyID) error {
	return s.putMeta(nextPreKeyIDKey, uint32(id))
}

// NextSignedPreKeyID returns the next signed pre-key id to allocate.
func (s *BoltStore) NextSignedPreKeyID() (domain.SignedPreKeyID, error) {
	v, _, err := s.getMeta(nextSignedPreKeyIDKey)
	return domain.SignedPreKeyID(v), err
}

// SetNextSignedPreKeyID records the next signed pre-key id to allocate.
func (s *BoltStore) SetNextSignedPreKeyID(id domain.SignedPreKeyID) error {
	return s.putMeta(nextSignedPreKeyIDKey, uint32(id))
}

// ActiveSignedPreKeyID returns the recorded active signed pre-key id.
func (s *BoltStore) ActiveSignedPreKeyID() (domain.SignedPreKeyID, error) {
	v, ok, err := s.getMeta(activeSignedPreKeyIDKey)
	if err != nil || !ok {
		return domain.NoActiveSignedPreKey, err
	}
	return domain.SignedPreKeyID(v), nil
}

// SetActiveSignedPreKeyID records which signed pre-key id is active.
func (s *BoltStore) SetActiveSignedPreKeyID(id domain.SignedPreKeyID) error {
	return s.putMeta(activeSignedPreKeyIDKey, uint32(id))
}

// ---------- helpers ----------

func (s *BoltStore) put(bucket string, id uint32, v any) error {
	raw, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s %d: %w", bucket, id, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Put(idKey(id), raw)
	})
}

func (s *BoltStore) get(bucket string, id uint32, out any) error {
	return s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucket)).Get(idKey(id))
		if raw == nil {
			return domain.ErrInvalidKeyID
		}
		return cbor.Unmarshal(raw, out)
	})
}

func (s *BoltStore) delete(bucket string, id uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucket)).Delete(idKey(id))
	})
}

func (s *BoltStore) getMeta(key string) (v uint32, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(metadataBucket)).Get([]byte(key))
		if b == nil {
			return nil
		}
		if len(b) != 4 {
			return errors.New("store: corrupted cursor " + key)
		}
		v, ok = binary.BigEndian.Uint32(b), true
		return nil
	})
	return v, ok, err
}

func (s *BoltStore) putMeta(key string, v uint32) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(metadataBucket)).Put([]byte(key), idKey(v))
	})
}

func idKey(id uint32) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], id)
	return k[:]
}

// Compile-time assertions that BoltStore implements the store contracts.
var (
	_ domain.PreKeyStore       = (*BoltStore)(nil)
	_ domain.SignedPreKeyStore = (*BoltStore)(nil)
	_ domain.CursorStore       = (*BoltStore)(nil)
)
