package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mikekulinski/jobmonitor/pkg/client"
	"github.com/mikekulinski/jobmonitor/pkg/config"
	"github.com/mikekulinski/jobmonitor/pkg/health"
	"github.com/mikekulinski/jobmonitor/pkg/logging"
	"github.com/mikekulinski/jobmonitor/pkg/metrics"
	"github.com/mikekulinski/jobmonitor/pkg/monitoring"
	"github.com/mikekulinski/jobmonitor/pkg/persistence"
	"github.com/mikekulinski/jobmonitor/pkg/znode"
	"github.com/mikekulinski/jobmonitor/pkg/zookeeper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	// annotationStore tells setup how a command uses the store.
	annotationStore = "store"
	// storeNone commands never touch the store.
	storeNone = "none"
	// storeLazy commands open the store without waiting for a session.
	storeLazy = "lazy"
)

// storeOpener connects to the configured backend. When wait is set it blocks until the store
// is usable.
type storeOpener func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, wait bool) (zookeeper.Zookeeper, health.Checker, io.Closer, error)

// app holds what a command needs once configuration is loaded.
type app struct {
	stderr    io.Writer
	openStore storeOpener

	cfg      *config.Config
	logger   zerolog.Logger
	store    zookeeper.Zookeeper
	checker  health.Checker
	registry *monitoring.Registry
	closers  []io.Closer
}

func newApp(stderr io.Writer) *app {
	return &app{
		stderr:    stderr,
		openStore: openStore,
		logger:    zerolog.Nop(),
	}
}

// setup loads configuration, applies flag overrides, and opens the store for cmd.
func (a *app) setup(cmd *cobra.Command, flags *GlobalFlags) error {
	v, err := config.New(flags.ConfigPath)
	if err != nil {
		return err
	}
	pf := cmd.Root().PersistentFlags()
	bindings := map[string]string{
		"zookeeper.servers": "servers",
		"zookeeper.root":    "root",
		"store":             "store",
		"log.level":         "log-level",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", flag, err)
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log, a.stderr)
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	mode := cmd.Annotations[annotationStore]
	if mode == storeNone {
		return nil
	}
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}
	store, checker, closer, err := a.openStore(cmd.Context(), cfg, logger, mode != storeLazy)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closer)
	a.store = metrics.Instrument(store)
	a.checker = checker
	a.registry = monitoring.NewRegistry(a.store,
		monitoring.WithRoot(cfg.Zookeeper.Root),
		monitoring.WithLogger(logger),
	)
	return nil
}

// close releases everything setup opened, most recent first.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openStore is the storeOpener used outside tests.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger, wait bool) (zookeeper.Zookeeper, health.Checker, io.Closer, error) {
	if cfg.Store == config.StoreMemory {
		return openMemoryStore(cfg.Memory, logger)
	}

	c, err := client.NewClient(client.Config{
		Servers:        cfg.Zookeeper.Servers,
		SessionTimeout: cfg.Zookeeper.SessionTimeout,
		Digest:         cfg.Zookeeper.Digest,
	}, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connecting to ZooKeeper: %w", err)
	}
	if wait {
		ctx, cancel := context.WithTimeout(ctx, cfg.Zookeeper.SessionTimeout)
		defer cancel()
		if err := c.WaitForSession(ctx); err != nil {
			_ = c.Close()
			return nil, nil, nil, err
		}
	}
	return c, c, c, nil
}

// openMemoryStore restores the tree from the snapshot directory, if one is configured, and
// saves it back on close.
func openMemoryStore(cfg config.MemoryConfig, logger zerolog.Logger) (zookeeper.Zookeeper, health.Checker, io.Closer, error) {
	if cfg.SnapshotDir == "" {
		logger.Warn().Msg("Using the in-memory store; nothing is persisted")
		return znode.NewDB(), alwaysConnected{}, nopCloser{}, nil
	}
	mgr, err := persistence.NewSnapshotManager(cfg.SnapshotDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening snapshot directory: %w", err)
	}
	db, err := mgr.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Debug().Str("snapshot_dir", cfg.SnapshotDir).Int64("zxid", int64(mgr.LastZxid)).Msg("Restored in-memory store")
	return db, alwaysConnected{}, snapshotCloser{mgr: mgr, db: db}, nil
}

type snapshotCloser struct {
	mgr *persistence.SnapshotManager
	db  *znode.DB
}

func (s snapshotCloser) Close() error { return s.mgr.Save(s.db) }

type alwaysConnected struct{}

func (alwaysConnected) Connected() bool { return true }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
