package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/identity"
	"github.com/mcdev12/scoreboard/go/internal/room"
	"github.com/mcdev12/scoreboard/go/internal/roomsync"
	"github.com/mcdev12/scoreboard/go/internal/store"
	"github.com/mcdev12/scoreboard/go/internal/store/natskv"
	"github.com/mcdev12/scoreboard/go/internal/store/pgstore"
)

const readyTimeout = 10 * time.Second

type Services struct {
	// Store is nil when the backend could not be reached; room entry then
	// fails with room.ErrConnectionUnavailable.
	Store    store.RemoteStore
	Device   *identity.Device
	Clock    clockwork.Clock
	Registry *prometheus.Registry
	Sync     roomsync.MetricsCollector

	config  *Config
	closers []func() error
}

func setupServices(ctx context.Context, config *Config) *Services {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Services{
		Device:   setupDevice(config.Device.Path),
		Clock:    clockwork.NewRealClock(),
		Registry: registry,
		Sync:     roomsync.NewPrometheusMetrics(registry),
		config:   config,
	}

	st, err := s.setupStore(ctx)
	if err != nil {
		log.Warn().Err(err).Str("backend", config.Store.Backend).Msg("Remote store unavailable")
	} else {
		s.Store = st
	}
	return s
}

func (s *Services) setupStore(ctx context.Context) (store.RemoteStore, error) {
	switch s.config.Store.Backend {
	case backendMemory:
		return store.NewMemory(), nil

	case backendNATS:
		kv, err := natskv.Connect(ctx, s.config.Store.NATSURL, s.config.Store.Bucket)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, kv.Close)
		return kv, nil

	case backendPostgres:
		db, dbConfig, err := setupDatabase(ctx)
		if err != nil {
			return nil, err
		}
		pgConfig := pgstore.DefaultConfig()
		pgConfig.DatabaseURL = dbConfig.DSN()
		pg, err := pgstore.Open(ctx, db, pgConfig)
		if err != nil {
			db.Close()
			return nil, err
		}

		runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		go func() {
			if err := pg.Run(runCtx); err != nil {
				log.Error().Err(err).Msg("document listener stopped")
			}
		}()
		// Run closes the listener once cancelled.
		s.closers = append(s.closers, db.Close, func() error {
			cancel()
			return nil
		})
		return pg, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", s.config.Store.Backend)
	}
}

func setupDevice(path string) *identity.Device {
	if path == "" {
		var err error
		if path, err = identity.DefaultDevicePath(); err != nil {
			log.Warn().Err(err).Msg("No device file, preferences will not persist")
			return identity.NewDevice(identity.NewMemoryStore())
		}
	}

	fileStore, err := identity.OpenFileStore(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to open device file, preferences will not persist")
		return identity.NewDevice(identity.NewMemoryStore())
	}
	return identity.NewDevice(fileStore)
}

func (s *Services) syncOptions() roomsync.Options {
	return roomsync.Options{
		Clock:        s.Clock,
		Metrics:      s.Sync,
		WriteTimeout: time.Duration(s.config.SyncWriteTimeoutSeconds) * time.Second,
	}
}

func (s *Services) lobby() *room.Lobby {
	return room.NewLobby(s.Store, s.Device, s.Clock)
}

// openRoom opens a sync client and waits for all four slices.
func (s *Services) openRoom(ctx context.Context, code string) (*roomsync.Client, error) {
	client := roomsync.Open(ctx, code, s.Store, s.syncOptions())

	waitCtx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	if err := client.WaitReady(waitCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: room %s did not sync: %w", room.ErrConnectionUnavailable, code, err)
	}
	return client, nil
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("failed to close service")
		}
	}
}
