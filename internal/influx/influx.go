// Package influx ships save/flush statistics to InfluxDB. Optional: when
// disabled or unreachable, the facade runs without a reporter.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/coachcore/playvault/pkg/core"
)

// Manager handles the InfluxDB connection and stat writes.
type Manager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Bucket  string
	Logger  zerolog.Logger
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
	}
}

// Connect establishes a connection to InfluxDB using the influx.* config.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())
	if err != nil || !running {
		m.IsValid = false
		return fmt.Errorf("failed to reach InfluxDB: %v", err)
	}

	m.Bucket = viper.GetString("influx.bucket")
	m.Writer = m.Client.WriteAPI(viper.GetString("influx.org"), m.Bucket)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}()

	m.IsValid = true
	m.Logger.Info().Str("bucket", m.Bucket).Msg("InfluxDB client initialized")
	return nil
}

// PlaySaved records one save: route totals and whether the remote write
// landed on the first try.
func (m *Manager) PlaySaved(play *core.Play, routeLength float64, remoteOK bool) {
	if !m.IsValid {
		return
	}
	point := influxdb2.NewPoint("play_saved",
		map[string]string{
			"teamId":    play.TeamID,
			"fieldType": string(play.FieldType),
		},
		map[string]interface{}{
			"players":     len(play.Players),
			"routes":      len(play.Routes),
			"routeLength": routeLength,
			"version":     play.Version,
			"remoteOk":    remoteOK,
		},
		time.Now().UTC(),
	)
	m.Writer.WritePoint(point)
}

// FlushCompleted records the outcome of one sync-queue flush pass.
func (m *Manager) FlushCompleted(succeeded, failed int, duration time.Duration) {
	if !m.IsValid {
		return
	}
	point := influxdb2.NewPoint("sync_flush",
		map[string]string{},
		map[string]interface{}{
			"succeeded":  succeeded,
			"failed":     failed,
			"durationMs": duration.Milliseconds(),
		},
		time.Now().UTC(),
	)
	m.Writer.WritePoint(point)
}

// Close flushes pending points and shuts the client down.
func (m *Manager) Close() {
	if m.Client != nil {
		m.Client.Close()
	}
}
