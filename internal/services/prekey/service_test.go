package prekey_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signet/internal/crypto"
	"signet/internal/domain"
	"signet/internal/services/prekey"
	"signet/internal/store"
)

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
}

func newService(opts ...prekey.Option) (*prekey.Service, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	return prekey.New(ms, ms, ms, opts...), ms
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type rejectingSigner struct{}

func (rejectingSigner) Sign(domain.Ed25519Private, []byte) ([]byte, error) {
	return nil, domain.ErrInvalidKey
}

type failingSigner struct{}

func (failingSigner) Sign(domain.Ed25519Private, []byte) ([]byte, error) {
	return nil, errors.New("hsm offline")
}

// failingPreKeyStore fails every store after the first n.
type failingPreKeyStore struct {
	*store.MemoryStore
	n int
}

func (s *failingPreKeyStore) StorePreKey(id domain.PreKeyID, rec domain.PreKeyRecord) error {
	if s.n == 0 {
		return errors.New("disk full")
	}
	s.n--
	return s.MemoryStore.StorePreKey(id, rec)
}

func TestGeneratePreKeys_Sequential(t *testing.T) {
	svc, ms := newService()

	recs, err := svc.GeneratePreKeys(100)
	require.NoError(t, err)
	require.Len(t, recs, 100)
	for i, rec := range recs {
		require.Equal(t, domain.PreKeyID(i), rec.ID)
		stored, err := svc.LoadPreKey(rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec, stored)
	}

	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(101), next)

	// The gap id is never stored.
	_, err = svc.LoadPreKey(100)
	require.ErrorIs(t, err, domain.ErrInvalidKeyID)

	recs, err = svc.GeneratePreKeys(5)
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(101), recs[0].ID)
	require.Equal(t, domain.PreKeyID(105), recs[4].ID)
	next, err = ms.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(107), next)
}

func TestGeneratePreKeys_Wraps(t *testing.T) {
	svc, ms := newService()
	require.NoError(t, ms.SetNextPreKeyID(domain.MediumMaxValue-1))

	recs, err := svc.GeneratePreKeys(3)
	require.NoError(t, err)
	ids := []domain.PreKeyID{recs[0].ID, recs[1].ID, recs[2].ID}
	require.Equal(t, []domain.PreKeyID{domain.MediumMaxValue - 1, 0, 1}, ids)

	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(3), next)
}

func TestGeneratePreKeys_InvalidBatchSize(t *testing.T) {
	svc, ms := newService()

	_, err := svc.GeneratePreKeys(0)
	require.ErrorIs(t, err, prekey.ErrInvalidBatchSize)
	_, err = svc.ReservePreKeys(-1)
	require.ErrorIs(t, err, prekey.ErrInvalidBatchSize)

	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Zero(t, next)
}

func TestGeneratePreKeys_StoreFailureKeepsCursor(t *testing.T) {
	ms := store.NewMemoryStore()
	keys := &failingPreKeyStore{MemoryStore: ms, n: 2}
	svc := prekey.New(keys, ms, ms)

	_, err := svc.GeneratePreKeys(5)
	require.Error(t, err)

	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Zero(t, next)

	// Records stored before the failure stay stored.
	_, err = svc.LoadPreKey(1)
	require.NoError(t, err)
	_, err = svc.LoadPreKey(2)
	require.ErrorIs(t, err, domain.ErrInvalidKeyID)
}

func TestReservePreKeys_StoresNothing(t *testing.T) {
	svc, ms := newService()

	res, err := svc.ReservePreKeys(10)
	require.NoError(t, err)
	require.Len(t, res.Records, 10)
	require.Equal(t, domain.PreKeyID(0), res.Start)
	require.Equal(t, domain.PreKeyID(11), res.Next)

	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, res.Next, next)

	_, err = svc.LoadPreKey(res.Records[0].ID)
	require.ErrorIs(t, err, domain.ErrInvalidKeyID)

	require.NoError(t, svc.StorePreKeyRecords(res.Records))
	for _, rec := range res.Records {
		got, err := svc.LoadPreKey(rec.ID)
		require.NoError(t, err)
		require.Equal(t, rec, got)
	}
}

func TestStorePreKeyRecords_Overwrites(t *testing.T) {
	svc, _ := newService()

	recs, err := svc.GeneratePreKeys(1)
	require.NoError(t, err)

	replacement := domain.PreKeyRecord{ID: recs[0].ID, KeyPair: domain.KeyPair{Public: domain.X25519Public{9}}}
	require.NoError(t, svc.StorePreKeyRecords([]domain.PreKeyRecord{replacement}))

	got, err := svc.LoadPreKey(recs[0].ID)
	require.NoError(t, err)
	require.Equal(t, replacement, got)

	require.NoError(t, svc.StorePreKeyRecords(nil))
}

func TestRemovePreKey(t *testing.T) {
	svc, _ := newService()

	recs, err := svc.GeneratePreKeys(2)
	require.NoError(t, err)
	require.NoError(t, svc.RemovePreKey(recs[0].ID))

	_, err = svc.LoadPreKey(recs[0].ID)
	require.ErrorIs(t, err, domain.ErrInvalidKeyID)
	_, err = svc.LoadPreKey(recs[1].ID)
	require.NoError(t, err)
}

func TestGeneratePreKeys_Concurrent(t *testing.T) {
	svc, ms := newService()

	const (
		workers = 8
		batch   = 25
	)
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[domain.PreKeyID]bool)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := svc.GeneratePreKeys(batch)
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range recs {
				assert.False(t, ids[rec.ID], "duplicate id %d", rec.ID)
				ids[rec.ID] = true
			}
		}()
	}
	wg.Wait()

	require.Len(t, ids, workers*batch)
	next, err := ms.NextPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.PreKeyID(workers*(batch+1)), next)
}

func TestGenerateSignedPreKey_Verifies(t *testing.T) {
	clock := &fixedClock{now: time.UnixMilli(1700000000123)}
	svc, ms := newService(prekey.WithClock(clock.Now))
	id := newIdentity(t)

	rec, err := svc.GenerateSignedPreKey(id, false)
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(0), rec.ID)
	require.Equal(t, int64(1700000000123), rec.Timestamp)
	require.True(t, crypto.VerifySignedPreKey(id.EdPub, rec))

	other := newIdentity(t)
	require.False(t, crypto.VerifySignedPreKey(other.EdPub, rec))

	stored, err := svc.LoadSignedPreKey(rec.ID)
	require.NoError(t, err)
	require.Equal(t, rec, stored)

	next, err := ms.NextSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(1), next)
}

func TestGenerateSignedPreKey_MarkActive(t *testing.T) {
	svc, _ := newService()
	id := newIdentity(t)

	_, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.False(t, ok)

	first, err := svc.GenerateSignedPreKey(id, true)
	require.NoError(t, err)
	active, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, active)

	second, err := svc.GenerateSignedPreKey(id, false)
	require.NoError(t, err)
	require.Equal(t, first.ID+1, second.ID)

	activeID, err := svc.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, first.ID, activeID)

	require.NoError(t, svc.SetActiveSignedPreKeyID(second.ID))
	active, ok, err = svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, active)
}

func TestGenerateSignedPreKey_InactiveOnFreshStore(t *testing.T) {
	svc, _ := newService()

	activeID, err := svc.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.NoActiveSignedPreKey, activeID)

	rec, err := svc.GenerateSignedPreKey(newIdentity(t), false)
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(0), rec.ID)

	_, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.False(t, ok)

	activeID, err = svc.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.NoActiveSignedPreKey, activeID)

	_, err = svc.Bundle(newIdentity(t), "alice", nil)
	require.ErrorIs(t, err, prekey.ErrNoSignedPreKey)
}

func TestGenerateSignedPreKey_Wraps(t *testing.T) {
	svc, ms := newService()
	require.NoError(t, ms.SetNextSignedPreKeyID(domain.MediumMaxValue-1))

	rec, err := svc.GenerateSignedPreKey(newIdentity(t), false)
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(domain.MediumMaxValue-1), rec.ID)

	next, err := ms.NextSignedPreKeyID()
	require.NoError(t, err)
	require.Zero(t, next)
}

func TestSetActiveSignedPreKeyID_Unchecked(t *testing.T) {
	svc, _ := newService()

	require.NoError(t, svc.SetActiveSignedPreKeyID(42))
	id, err := svc.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Equal(t, domain.SignedPreKeyID(42), id)

	_, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGenerateSignedPreKey_InvalidKeyPanics(t *testing.T) {
	svc, ms := newService(prekey.WithSigner(rejectingSigner{}))

	require.Panics(t, func() {
		_, _ = svc.GenerateSignedPreKey(newIdentity(t), true)
	})

	next, err := ms.NextSignedPreKeyID()
	require.NoError(t, err)
	require.Zero(t, next)
}

func TestGenerateSignedPreKey_ZeroIdentityPanics(t *testing.T) {
	svc, _ := newService()
	require.Panics(t, func() {
		_, _ = svc.GenerateSignedPreKey(domain.Identity{}, false)
	})
}

func TestGenerateSignedPreKey_SignerError(t *testing.T) {
	svc, ms := newService(prekey.WithSigner(failingSigner{}))

	_, err := svc.GenerateSignedPreKey(newIdentity(t), true)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrInvalidKey)

	all, err := ms.LoadSignedPreKeys()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestCleanSignedPreKeys(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &fixedClock{now: start}
	svc, ms := newService(prekey.WithClock(clock.Now))
	id := newIdentity(t)

	// Four signed pre-keys, ten days apart; the last is active.
	var recs []domain.SignedPreKeyRecord
	for i := 0; i < 4; i++ {
		clock.Set(start.Add(time.Duration(i) * 10 * 24 * time.Hour))
		rec, err := svc.GenerateSignedPreKey(id, true)
		require.NoError(t, err)
		recs = append(recs, rec)
	}

	// Nothing is older than the archive age yet.
	clock.Set(start.Add(25 * 24 * time.Hour))
	removed, err := svc.CleanSignedPreKeys(30 * 24 * time.Hour)
	require.NoError(t, err)
	require.Zero(t, removed)

	// recs[0] and recs[1] are old; recs[2] is the newest archived record
	// and survives regardless of age.
	clock.Set(start.Add(100 * 24 * time.Hour))
	removed, err = svc.CleanSignedPreKeys(30 * 24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	all, err := ms.LoadSignedPreKeys()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, recs[2].ID, all[0].ID)
	require.Equal(t, recs[3].ID, all[1].ID)

	// With a single archived record nothing more is removed.
	removed, err = svc.CleanSignedPreKeys(time.Millisecond)
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestBundle(t *testing.T) {
	svc, _ := newService(prekey.WithBundleStore(store.NewBundleFileStore(t.TempDir())))
	id := newIdentity(t)

	_, err := svc.Bundle(id, "alice", nil)
	require.ErrorIs(t, err, prekey.ErrNoSignedPreKey)

	spk, err := svc.GenerateSignedPreKey(id, true)
	require.NoError(t, err)
	oneTime, err := svc.GeneratePreKeys(3)
	require.NoError(t, err)

	b, err := svc.Bundle(id, "alice", oneTime)
	require.NoError(t, err)
	require.Equal(t, domain.Username("alice"), b.Username)
	require.Equal(t, id.XPub, b.IdentityKey)
	require.Equal(t, id.EdPub, b.SigningKey)
	require.Equal(t, spk.ID, b.SignedPreKeyID)
	require.Equal(t, spk.KeyPair.Public, b.SignedPreKey)
	require.Len(t, b.OneTimePreKeys, 3)
	require.Equal(t, oneTime[2].KeyPair.Public, b.OneTimePreKeys[2].Pub)
	require.True(t, crypto.VerifyEd25519(b.SigningKey, b.SignedPreKey.Serialize(), b.SignedPreKeySignature))
}
