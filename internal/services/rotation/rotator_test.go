package rotation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"signet/internal/crypto"
	"signet/internal/domain"
	"signet/internal/services/prekey"
	"signet/internal/services/rotation"
	"signet/internal/store"
)

type staticIdentity struct {
	id  domain.Identity
	err error
}

func (s staticIdentity) LoadIdentity(string) (domain.Identity, error) { return s.id, s.err }

func newIdentity(t *testing.T) domain.Identity {
	t.Helper()
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{EdPub: edPub, EdPriv: edPriv}
}

func setup(t *testing.T, ids rotation.IdentitySource) (*rotation.Rotator, *prekey.Service, *prometheus.Registry, *logtest.Hook) {
	t.Helper()
	ms := store.NewMemoryStore()
	svc := prekey.New(ms, ms, ms)
	reg := prometheus.NewRegistry()
	log, hook := logtest.NewNullLogger()
	r := rotation.NewRotator(ids, "pass", svc, time.Hour, rotation.NewMetrics(reg), log)
	return r, svc, reg, hook
}

func counter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestRotate(t *testing.T) {
	id := newIdentity(t)
	r, svc, reg, hook := setup(t, staticIdentity{id: id})

	first, removed, err := r.Rotate()
	require.NoError(t, err)
	require.Zero(t, removed)
	require.True(t, crypto.VerifySignedPreKey(id.EdPub, first))

	second, _, err := r.Rotate()
	require.NoError(t, err)
	require.Equal(t, first.ID+1, second.ID)

	active, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second.ID, active.ID)

	require.Equal(t, 2.0, counter(t, reg, "signet_signed_prekey_rotations_total"))
	require.Zero(t, counter(t, reg, "signet_signed_prekey_rotation_failures_total"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, logrus.InfoLevel, entry.Level)
	require.Equal(t, second.ID, entry.Data["signed_pre_key_id"])
}

func TestRotate_IdentityError(t *testing.T) {
	r, svc, reg, hook := setup(t, staticIdentity{err: errors.New("locked")})

	_, _, err := r.Rotate()
	require.Error(t, err)

	_, ok, err := svc.ActiveSignedPreKey()
	require.NoError(t, err)
	require.False(t, ok)

	require.Equal(t, 1.0, counter(t, reg, "signet_signed_prekey_rotation_failures_total"))
	require.Zero(t, counter(t, reg, "signet_signed_prekey_rotations_total"))
	require.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestEnsureActive(t *testing.T) {
	r, svc, reg, _ := setup(t, staticIdentity{id: newIdentity(t)})

	rotated, err := r.EnsureActive()
	require.NoError(t, err)
	require.True(t, rotated)

	rotated, err = r.EnsureActive()
	require.NoError(t, err)
	require.False(t, rotated)

	id, err := svc.ActiveSignedPreKeyID()
	require.NoError(t, err)
	require.Zero(t, id)
	require.Equal(t, 1.0, counter(t, reg, "signet_signed_prekey_rotations_total"))
}

func TestNewScheduler_InvalidInterval(t *testing.T) {
	r, _, _, _ := setup(t, staticIdentity{})
	_, err := rotation.NewScheduler(r, 0)
	require.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	r, _, _, _ := setup(t, staticIdentity{id: newIdentity(t)})
	s, err := rotation.NewScheduler(r, rotation.DefaultInterval)
	require.NoError(t, err)
	s.Start()
	select {
	case <-s.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
