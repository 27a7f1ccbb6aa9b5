package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachcore/playvault/internal/api"
	"github.com/coachcore/playvault/internal/config"
	"github.com/coachcore/playvault/internal/store"
	pgstore "github.com/coachcore/playvault/internal/store/postgres"
)

// createRemoteStore builds the configured remote backend plus its
// connectivity probe and cleanup function. Type "none" runs local-only.
func createRemoteStore(cfg config.RemoteConfig, logger zerolog.Logger) (store.Remote, func() bool, func(), error) {
	noop := func() {}

	switch cfg.Type {
	case "postgres":
		pg, err := pgstore.New(pgstore.Config{
			Host:     config.GetString("db.host"),
			Port:     config.GetString("db.port"),
			Username: config.GetString("db.username"),
			Password: config.GetString("db.password"),
			Database: config.GetString("db.database"),
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create postgres remote: %w", err)
		}
		probe := func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return pg.Ping(ctx) == nil
		}
		logger.Info().Msg("Postgres remote store initialized")
		return pg, probe, func() { pg.Close() }, nil

	case "api":
		client := api.New(
			config.GetString("api.serverUrl"),
			config.GetString("api.apiKey"),
			cfg.Timeout,
		)
		probe := func() bool { return client.Healthcheck() == nil }
		logger.Info().Str("serverUrl", config.GetString("api.serverUrl")).Msg("API remote store initialized")
		return client, probe, noop, nil

	case "none":
		logger.Warn().Msg("Remote store disabled, running local-only")
		return nil, func() bool { return false }, noop, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown remote store type: %s", cfg.Type)
	}
}
