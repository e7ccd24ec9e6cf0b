package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"signet/internal/domain"
	identitysvc "signet/internal/services/identity"
	prekeysvc "signet/internal/services/prekey"
	"signet/internal/services/rotation"
	"signet/internal/store"
)

// prekeyBackend is what every pre-key storage backend provides.
type prekeyBackend interface {
	domain.PreKeyStore
	domain.SignedPreKeyStore
	domain.CursorStore
}

// Wire bundles all stores and services for the CLI.
type Wire struct {
	Config   Config
	Log      *logrus.Logger
	Identity *identitysvc.Service
	PreKeys  *prekeysvc.Service
	Bundles  domain.PreKeyBundleStore

	closers []func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Home, 0o700); err != nil {
		return nil, fmt.Errorf("app: create home: %w", err)
	}

	log, closeLog, err := NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	w := &Wire{Config: cfg, Log: log, closers: []func() error{closeLog}}

	backend, err := openBackend(cfg)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	if c, ok := backend.(interface{ Close() error }); ok {
		w.closers = append(w.closers, c.Close)
	}

	bundleStore := store.NewBundleFileStore(cfg.Home)

	w.Identity = identitysvc.New(store.NewIdentityFileStore(cfg.Home))
	w.PreKeys = prekeysvc.New(backend, backend, backend, prekeysvc.WithBundleStore(bundleStore))
	w.Bundles = bundleStore

	log.WithFields(logrus.Fields{
		"home":    cfg.Home,
		"backend": cfg.Backend,
	}).Debug("wired pre-key stores")
	return w, nil
}

// NewRotator builds a signed pre-key rotator over the wired services. The
// rotation counters are registered on reg when it is not nil.
func (w *Wire) NewRotator(passphrase string, reg prometheus.Registerer) *rotation.Rotator {
	var metrics *rotation.Metrics
	if reg != nil {
		metrics = rotation.NewMetrics(reg)
	}
	return rotation.NewRotator(
		w.Identity,
		passphrase,
		w.PreKeys,
		w.Config.Rotation.ArchiveAge,
		metrics,
		w.Log.WithField("component", "rotation"),
	)
}

// Close releases the backend and the log file, in reverse order.
func (w *Wire) Close() error {
	var first error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	w.closers = nil
	return first
}

func openBackend(cfg Config) (prekeyBackend, error) {
	switch cfg.Backend {
	case BackendFile:
		return store.OpenPrekeyFileStore(cfg.Home)
	case BackendBolt:
		return store.OpenBoltStore(filepath.Join(cfg.Home, store.BoltDBFile))
	case BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("app: unknown backend %q", cfg.Backend)
	}
}
