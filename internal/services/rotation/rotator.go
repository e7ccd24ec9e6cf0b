package rotation

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signet/internal/domain"
)

// DefaultArchiveAge is how long a replaced signed pre-key is kept so that
// in-flight session setups addressed to it still succeed.
const DefaultArchiveAge = 30 * 24 * time.Hour

// IdentitySource opens the identity that signs new signed pre-keys.
type IdentitySource interface {
	LoadIdentity(passphrase string) (domain.Identity, error)
}

// SignedPreKeys is the part of the pre-key service rotation drives.
type SignedPreKeys interface {
	GenerateSignedPreKey(identity domain.Identity, markActive bool) (domain.SignedPreKeyRecord, error)
	ActiveSignedPreKey() (domain.SignedPreKeyRecord, bool, error)
	CleanSignedPreKeys(archiveAge time.Duration) (int, error)
}

// Rotator replaces the active signed pre-key and prunes old ones.
type Rotator struct {
	ids        IdentitySource
	passphrase string
	prekeys    SignedPreKeys
	archiveAge time.Duration
	metrics    *Metrics
	log        logrus.FieldLogger
}

// NewRotator returns a Rotator. A zero archiveAge means DefaultArchiveAge;
// metrics and log may be nil.
func NewRotator(
	ids IdentitySource,
	passphrase string,
	prekeys SignedPreKeys,
	archiveAge time.Duration,
	metrics *Metrics,
	log logrus.FieldLogger,
) *Rotator {
	if archiveAge <= 0 {
		archiveAge = DefaultArchiveAge
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Rotator{
		ids:        ids,
		passphrase: passphrase,
		prekeys:    prekeys,
		archiveAge: archiveAge,
		metrics:    metrics,
		log:        log,
	}
}

// Rotate generates a new signed pre-key, makes it active, then removes
// archived records older than the archive age. It returns the new record
// and the number of records removed.
func (r *Rotator) Rotate() (domain.SignedPreKeyRecord, int, error) {
	rec, removed, err := r.rotate()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"operation": "rotate",
			"error":     err.Error(),
		}).Error("Signed pre-key rotation failed")
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return rec, removed, err
	}

	r.log.WithFields(logrus.Fields{
		"operation":         "rotate",
		"signed_pre_key_id": rec.ID,
		"removed":           removed,
	}).Info("Rotated signed pre-key")
	if r.metrics != nil {
		r.metrics.Rotations.Inc()
		r.metrics.Removed.Add(float64(removed))
	}
	return rec, removed, nil
}

func (r *Rotator) rotate() (domain.SignedPreKeyRecord, int, error) {
	id, err := r.ids.LoadIdentity(r.passphrase)
	if err != nil {
		return domain.SignedPreKeyRecord{}, 0, fmt.Errorf("rotation: load identity: %w", err)
	}
	rec, err := r.prekeys.GenerateSignedPreKey(id, true)
	if err != nil {
		return domain.SignedPreKeyRecord{}, 0, fmt.Errorf("rotation: generate: %w", err)
	}
	removed, err := r.prekeys.CleanSignedPreKeys(r.archiveAge)
	if err != nil {
		return rec, removed, fmt.Errorf("rotation: clean: %w", err)
	}
	return rec, removed, nil
}

// EnsureActive rotates only when no active signed pre-key is stored. It
// reports whether a rotation happened.
func (r *Rotator) EnsureActive() (bool, error) {
	_, ok, err := r.prekeys.ActiveSignedPreKey()
	if err != nil {
		return false, fmt.Errorf("rotation: read active signed pre-key: %w", err)
	}
	if ok {
		return false, nil
	}
	r.log.Info("No active signed pre-key, rotating now")
	if _, _, err := r.Rotate(); err != nil {
		return false, err
	}
	return true, nil
}
