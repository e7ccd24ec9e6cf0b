package prekey

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"signet/internal/crypto"
	"signet/internal/domain"
)

// DefaultBatchSize is the number of one-time pre-keys generated per batch
// when the caller has no preference.
const DefaultBatchSize = 100

var (
	// ErrInvalidBatchSize is returned for a batch size below one.
	ErrInvalidBatchSize = errors.New("prekey: batch size must be positive")

	// ErrNoSignedPreKey is returned when a bundle is requested before any
	// signed pre-key has been made active.
	ErrNoSignedPreKey = errors.New("prekey: no active signed pre-key")
)

// Reservation is the result of ReservePreKeys.
type Reservation = domain.PreKeyReservation

// Option configures a Service.
type Option func(*Service)

// WithKeyPairGenerator replaces the key pair source.
func WithKeyPairGenerator(g domain.KeyPairGenerator) Option {
	return func(s *Service) { s.gen = g }
}

// WithSigner replaces the signed pre-key signer.
func WithSigner(signer domain.Signer) Option {
	return func(s *Service) { s.signer = signer }
}

// WithClock replaces the clock used to stamp signed pre-keys.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBundleStore makes Bundle cache every bundle it assembles.
func WithBundleStore(bs domain.PreKeyBundleStore) Option {
	return func(s *Service) { s.bundles = bs }
}

// Service owns the pre-key id space of one account. It allocates ids from
// the persisted cursors, generates key material, stores the records, and
// tracks the active signed pre-key.
//
// Every method holds one mutex for its whole span, so two batches never
// read the same cursor value. Nothing else may write the cursors.
type Service struct {
	mu sync.Mutex

	keys    domain.PreKeyStore
	signed  domain.SignedPreKeyStore
	cursors domain.CursorStore
	bundles domain.PreKeyBundleStore

	gen    domain.KeyPairGenerator
	signer domain.Signer
	now    func() time.Time
}

// New returns a Service over the given stores. Key material comes from
// crypto.Curve unless overridden.
func New(
	keys domain.PreKeyStore,
	signed domain.SignedPreKeyStore,
	cursors domain.CursorStore,
	opts ...Option,
) *Service {
	s := &Service{
		keys:    keys,
		signed:  signed,
		cursors: cursors,
		gen:     crypto.Curve{},
		signer:  crypto.Curve{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratePreKeys allocates count contiguous ids starting at the cursor,
// generates a key pair for each and stores every record as soon as it is
// made. The cursor then moves to start+count+1, leaving one id unused.
//
// If a store call fails the batch stops there: records already stored stay
// stored and the cursor does not move.
func (s *Service) GeneratePreKeys(count int) ([]domain.PreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.allocate(count, true)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// ReservePreKeys allocates and generates like GeneratePreKeys but stores
// nothing. The cursor moves as if the batch were stored; the caller must
// hand the records to StorePreKeyRecords before they can be loaded.
func (s *Service) ReservePreKeys(count int) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocate(count, false)
}

func (s *Service) allocate(count int, store bool) (Reservation, error) {
	if count <= 0 {
		return Reservation{}, ErrInvalidBatchSize
	}

	start, err := s.cursors.NextPreKeyID()
	if err != nil {
		return Reservation{}, fmt.Errorf("prekey: read pre-key cursor: %w", err)
	}

	records := make([]domain.PreKeyRecord, 0, count)
	for i := 0; i < count; i++ {
		kp, err := s.gen.GenerateKeyPair()
		if err != nil {
			return Reservation{}, fmt.Errorf("prekey: generate pre-key: %w", err)
		}
		rec := domain.PreKeyRecord{ID: start.Next(i), KeyPair: kp}
		if store {
			if err := s.keys.StorePreKey(rec.ID, rec); err != nil {
				return Reservation{}, fmt.Errorf("prekey: store pre-key %d: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}

	// TODO: drop the extra +1 once no deployed client relies on the gap.
	next := start.Next(count + 1)
	if err := s.cursors.SetNextPreKeyID(next); err != nil {
		return Reservation{}, fmt.Errorf("prekey: advance pre-key cursor: %w", err)
	}
	return Reservation{Records: records, Start: start, Next: next}, nil
}

// StorePreKeyRecords stores each record under its id, overwriting whatever
// was there.
func (s *Service) StorePreKeyRecords(records []domain.PreKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if err := s.keys.StorePreKey(rec.ID, rec); err != nil {
			return fmt.Errorf("prekey: store pre-key %d: %w", rec.ID, err)
		}
	}
	return nil
}

// NextPreKeyID returns the id the next batch will start at.
func (s *Service) NextPreKeyID() (domain.PreKeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursors.NextPreKeyID()
}

// LoadPreKey returns the one-time pre-key stored under id, or an error
// matching domain.ErrInvalidKeyID.
func (s *Service) LoadPreKey(id domain.PreKeyID) (domain.PreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.keys.LoadPreKey(id)
}

// RemovePreKey deletes a consumed one-time pre-key.
func (s *Service) RemovePreKey(id domain.PreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.keys.RemovePreKey(id)
}

// GenerateSignedPreKey makes a signed pre-key under the next signed id,
// signs its serialized public key with the identity signing key, stores it
// and advances the cursor by one. When markActive is set the new id also
// becomes the active one.
//
// A signer that rejects the identity key with domain.ErrInvalidKey means
// the identity itself is broken; that panics.
func (s *Service) GenerateSignedPreKey(
	identity domain.Identity,
	markActive bool,
) (domain.SignedPreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cursors.NextSignedPreKeyID()
	if err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: read signed pre-key cursor: %w", err)
	}

	kp, err := s.gen.GenerateKeyPair()
	if err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: generate signed pre-key: %w", err)
	}
	sig, err := s.signer.Sign(identity.EdPriv, kp.Public.Serialize())
	if errors.Is(err, domain.ErrInvalidKey) {
		panic(fmt.Errorf("prekey: signing signed pre-key %d: %w", id, err))
	}
	if err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: sign signed pre-key %d: %w", id, err)
	}

	rec := domain.SignedPreKeyRecord{
		ID:        id,
		Timestamp: s.now().UnixMilli(),
		KeyPair:   kp,
		Signature: sig,
	}
	if err := s.signed.StoreSignedPreKey(id, rec); err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: store signed pre-key %d: %w", id, err)
	}
	if err := s.cursors.SetNextSignedPreKeyID(id.Next(1)); err != nil {
		return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: advance signed pre-key cursor: %w", err)
	}
	if markActive {
		if err := s.cursors.SetActiveSignedPreKeyID(id); err != nil {
			return domain.SignedPreKeyRecord{}, fmt.Errorf("prekey: activate signed pre-key %d: %w", id, err)
		}
	}
	return rec, nil
}

// LoadSignedPreKey returns the signed pre-key stored under id, or an error
// matching domain.ErrInvalidKeyID.
func (s *Service) LoadSignedPreKey(id domain.SignedPreKeyID) (domain.SignedPreKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.signed.LoadSignedPreKey(id)
}

// ActiveSignedPreKey returns the record under the active id. ok is false,
// with a nil error, when no id is active or nothing is stored there.
func (s *Service) ActiveSignedPreKey() (rec domain.SignedPreKeyRecord, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeSignedPreKey()
}

func (s *Service) activeSignedPreKey() (domain.SignedPreKeyRecord, bool, error) {
	id, err := s.cursors.ActiveSignedPreKeyID()
	if err != nil {
		return domain.SignedPreKeyRecord{}, false, fmt.Errorf("prekey: read active signed pre-key id: %w", err)
	}
	if id == domain.NoActiveSignedPreKey {
		return domain.SignedPreKeyRecord{}, false, nil
	}
	rec, err := s.signed.LoadSignedPreKey(id)
	if errors.Is(err, domain.ErrInvalidKeyID) {
		return domain.SignedPreKeyRecord{}, false, nil
	}
	if err != nil {
		return domain.SignedPreKeyRecord{}, false, err
	}
	return rec, true, nil
}

// ActiveSignedPreKeyID returns the persisted active id, or
// domain.NoActiveSignedPreKey if none was ever set. It may name a record
// that does not exist.
func (s *Service) ActiveSignedPreKeyID() (domain.SignedPreKeyID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursors.ActiveSignedPreKeyID()
}

// SetActiveSignedPreKeyID overwrites the persisted active id without
// checking that a record exists under it.
func (s *Service) SetActiveSignedPreKeyID(id domain.SignedPreKeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursors.SetActiveSignedPreKeyID(id)
}

// CleanSignedPreKeys removes archived signed pre-keys created more than
// archiveAge ago. The active record and the newest archived record are
// always kept. It returns how many records were removed.
func (s *Service) CleanSignedPreKeys(archiveAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.cursors.ActiveSignedPreKeyID()
	if err != nil {
		return 0, fmt.Errorf("prekey: read active signed pre-key id: %w", err)
	}
	all, err := s.signed.LoadSignedPreKeys()
	if err != nil {
		return 0, fmt.Errorf("prekey: list signed pre-keys: %w", err)
	}

	archived := make([]domain.SignedPreKeyRecord, 0, len(all))
	for _, rec := range all {
		if rec.ID != active {
			archived = append(archived, rec)
		}
	}
	if len(archived) < 2 {
		return 0, nil
	}
	sort.SliceStable(archived, func(i, j int) bool {
		return archived[i].Timestamp > archived[j].Timestamp
	})

	cutoff := s.now().Add(-archiveAge).UnixMilli()
	removed := 0
	for _, rec := range archived[1:] {
		if rec.Timestamp >= cutoff {
			continue
		}
		if err := s.signed.RemoveSignedPreKey(rec.ID); err != nil {
			return removed, fmt.Errorf("prekey: remove signed pre-key %d: %w", rec.ID, err)
		}
		removed++
	}
	return removed, nil
}

// Bundle assembles the public bundle for username from the active signed
// pre-key and the public halves of oneTime. The bundle is cached when a
// bundle store is configured.
func (s *Service) Bundle(
	identity domain.Identity,
	username domain.Username,
	oneTime []domain.PreKeyRecord,
) (domain.PreKeyBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spk, ok, err := s.activeSignedPreKey()
	if err != nil {
		return domain.PreKeyBundle{}, err
	}
	if !ok {
		return domain.PreKeyBundle{}, ErrNoSignedPreKey
	}

	publics := make([]domain.OneTimePreKeyPublic, 0, len(oneTime))
	for _, rec := range oneTime {
		publics = append(publics, rec.Public())
	}

	b := domain.PreKeyBundle{
		Username:              username,
		IdentityKey:           identity.XPub,
		SigningKey:            identity.EdPub,
		SignedPreKeyID:        spk.ID,
		SignedPreKey:          spk.KeyPair.Public,
		SignedPreKeySignature: spk.Signature,
		SignedPreKeyTimestamp: spk.Timestamp,
		OneTimePreKeys:        publics,
	}
	if s.bundles != nil {
		if err := s.bundles.SavePreKeyBundle(b); err != nil {
			return domain.PreKeyBundle{}, fmt.Errorf("prekey: cache bundle: %w", err)
		}
	}
	return b, nil
}

// Compile-time assertion that Service implements domain.PreKeyService.
var _ domain.PreKeyService = (*Service)(nil)
