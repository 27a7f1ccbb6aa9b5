package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachcore/playvault/internal/config"
	"github.com/coachcore/playvault/internal/influx"
	"github.com/coachcore/playvault/internal/logging"
	"github.com/coachcore/playvault/internal/playstore"
	"github.com/coachcore/playvault/internal/retry"
	sqlitestore "github.com/coachcore/playvault/internal/store/sqlite"
	"github.com/coachcore/playvault/internal/syncqueue"
	"github.com/coachcore/playvault/internal/telemetry"
)

const appName = "playvault"

func metricsFilePath(logsDir string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.metrics.json", appName, sessionStart.Format("20060102_150405")))
}

// connectivity caches the latest probe result so every facade operation
// reads a synchronous boolean snapshot instead of making a network call.
type connectivity struct {
	online atomic.Bool
	probe  func() bool
}

func (c *connectivity) refresh() bool {
	v := c.probe()
	c.online.Store(v)
	return v
}

func (c *connectivity) snapshot() bool { return c.online.Load() }

func main() {
	cli := parseArgs(os.Args[1:])
	sessionStart := time.Now()

	if err := config.Load(cli.ConfigDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config, using defaults: %v\n", err)
	}

	logsDir := config.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	var logFile io.Writer
	f, err := os.OpenFile(logging.LogFilePath(logsDir, appName, sessionStart), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		logFile = f
		defer f.Close()
	}

	var extraWriters []io.Writer
	if config.GetBool("graylog.enabled") {
		gw, err := logging.NewGelfWriter(config.GetString("graylog.address"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "graylog disabled: %v\n", err)
		} else {
			extraWriters = append(extraWriters, gw)
		}
	}

	logger := logging.Setup(config.GetString("logLevel"), logFile, extraWriters...)
	logger.Info().Str("version", "dev").Msg("Starting playvault")

	if config.GetBool("metrics.enabled") {
		mf, err := os.OpenFile(metricsFilePath(logsDir, sessionStart), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Warn().Err(err).Msg("Metrics export disabled")
		} else {
			defer mf.Close()
			tp, err := telemetry.Install(telemetry.Config{
				Enabled:        true,
				ServiceName:    appName,
				ExportInterval: time.Duration(config.GetInt("metrics.exportIntervalSeconds")) * time.Second,
				Writer:         mf,
			})
			if err != nil {
				logger.Warn().Err(err).Msg("Metrics export disabled")
			} else {
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := tp.Shutdown(ctx); err != nil {
						logger.Warn().Err(err).Msg("Metrics shutdown failed")
					}
				}()
			}
		}
	}

	if err := run(cli, logger); err != nil {
		logger.Fatal().Err(err).Msg("playvault exited with error")
	}
}

func run(cli cliArgs, logger zerolog.Logger) error {
	localCfg := config.GetLocalConfig()
	remoteCfg := config.GetRemoteConfig()
	syncCfg := config.GetSyncConfig()

	local := sqlitestore.New(sqlitestore.Config{Path: localCfg.Path}, logger)
	defer local.Close()

	remote, probe, cleanup, err := createRemoteStore(remoteCfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	queue, err := syncqueue.Open(syncCfg.QueuePath)
	if err != nil {
		return fmt.Errorf("failed to open sync queue: %w", err)
	}

	conn := &connectivity{probe: probe}
	conn.refresh()

	var reporter playstore.Reporter
	if config.GetBool("influx.enabled") {
		mgr := influx.NewManager(logger)
		if err := mgr.Connect(); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB reporting disabled")
		} else {
			reporter = mgr
			defer mgr.Close()
		}
	}

	svc, err := playstore.New(playstore.Dependencies{
		Local:         local,
		Remote:        remote,
		Queue:         queue,
		Online:        conn.snapshot,
		Reporter:      reporter,
		Logger:        logger,
		RemoteTimeout: remoteCfg.Timeout,
		Retry: retry.Options{
			MaxAttempts:     syncCfg.MaxAttempts,
			InitialInterval: time.Duration(syncCfg.InitialIntervalMs) * time.Millisecond,
			MaxInterval:     time.Duration(syncCfg.MaxIntervalMs) * time.Millisecond,
			Multiplier:      2.0,
		},
	})
	if err != nil {
		return err
	}

	switch cli.Command {
	case "sync":
		return runSync(svc, logger)
	case "list":
		return runList(svc, cli, logger)
	case "export":
		return runExport(svc, cli, logger)
	case "import":
		return runImport(svc, cli, logger)
	default:
		return runDaemon(svc, conn, logger)
	}
}

// runDaemon probes connectivity on an interval and flushes the sync queue
// on every offline-to-online transition, until SIGINT/SIGTERM.
func runDaemon(svc *playstore.Service, conn *connectivity, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(config.GetInt("connectivity.probeIntervalSeconds")) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	wasOnline := conn.snapshot()
	if wasOnline && svc.PendingCount() > 0 {
		flush(ctx, svc, logger)
	}

	logger.Info().Dur("probeInterval", interval).Bool("online", wasOnline).Msg("Watching connectivity")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down")
			return nil
		case <-ticker.C:
			online := conn.refresh()
			if online && !wasOnline {
				logger.Info().Msg("Back online, syncing pending changes")
				flush(ctx, svc, logger)
			}
			wasOnline = online
		}
	}
}

func flush(ctx context.Context, svc *playstore.Service, logger zerolog.Logger) {
	result, err := svc.SyncPending(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Sync flush did not run")
		return
	}
	for _, f := range result.Failed {
		logger.Warn().Str("playId", f.PlayID).Str("op", string(f.Op)).
			Int("attempts", f.Attempts).Str("error", f.Err).Msg("Sync item still pending")
	}
}
