// Package pgstore implements the remote durable store on PostgreSQL via
// GORM. The row shape mirrors the local SQLite store, with the full play as
// a jsonb document. Every call runs under the caller's context so the facade
// can bound remote latency with a deadline.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/coachcore/playvault/internal/store"
	"github.com/coachcore/playvault/pkg/core"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// Store is the store.Remote implementation backed by PostgreSQL.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

type playRow struct {
	ID        string         `gorm:"primaryKey"`
	Category  string         `gorm:"index"`
	Formation string         `gorm:"index"`
	TeamID    string         `gorm:"index"`
	CoachID   string         `gorm:"index"`
	UpdatedAt time.Time      `gorm:"index"`
	Doc       datatypes.JSON `gorm:"type:jsonb"`
}

func (playRow) TableName() string { return "plays" }

// New connects to PostgreSQL and migrates the plays table.
func New(cfg Config, log zerolog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.AutoMigrate(&playRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate remote schema: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to remote Postgres store")
	return &Store{db: db, log: log}, nil
}

// Ping reports whether the database is currently reachable. Used as the
// connectivity probe when Postgres is the remote.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Set upserts the play document keyed by its ID.
func (s *Store) Set(ctx context.Context, play *core.Play) error {
	doc, err := json.Marshal(play)
	if err != nil {
		return fmt.Errorf("failed to encode play %s: %w", play.ID, err)
	}
	row := playRow{
		ID:        play.ID,
		Category:  play.Category,
		Formation: play.Formation,
		TeamID:    play.TeamID,
		CoachID:   play.CoachID,
		UpdatedAt: play.UpdatedAt.UTC(),
		Doc:       datatypes.JSON(doc),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("remote set failed: %w", err)
	}
	return nil
}

// Get returns the play with the given ID, or store.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*core.Play, error) {
	var row playRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("remote get failed: %w", err)
	}

	var play core.Play
	if err := json.Unmarshal(row.Doc, &play); err != nil {
		return nil, fmt.Errorf("failed to decode play %s: %w", row.ID, err)
	}
	play.CreatedAt = play.CreatedAt.UTC()
	play.UpdatedAt = play.UpdatedAt.UTC()
	return &play, nil
}

// Query returns plays matching the filter, newest updatedAt first.
func (s *Store) Query(ctx context.Context, f store.Filter) ([]core.Play, error) {
	tx := s.db.WithContext(ctx).Model(&playRow{})
	if f.CoachID != "" {
		tx = tx.Where("coach_id = ?", f.CoachID)
	}
	if f.TeamID != "" {
		tx = tx.Where("team_id = ?", f.TeamID)
	}
	if f.Category != "" {
		tx = tx.Where("category = ?", f.Category)
	}
	if f.Formation != "" {
		tx = tx.Where("formation = ?", f.Formation)
	}
	tx = tx.Order("updated_at DESC")
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}

	var rows []playRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("remote query failed: %w", err)
	}

	plays := make([]core.Play, 0, len(rows))
	for _, row := range rows {
		var play core.Play
		if err := json.Unmarshal(row.Doc, &play); err != nil {
			s.log.Warn().Err(err).Str("id", row.ID).Msg("Skipping undecodable remote play")
			continue
		}
		play.CreatedAt = play.CreatedAt.UTC()
		play.UpdatedAt = play.UpdatedAt.UTC()
		plays = append(plays, play)
	}
	return plays, nil
}

// Delete removes the play document. Deleting a missing ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&playRow{ID: id}).Error; err != nil {
		return fmt.Errorf("remote delete failed: %w", err)
	}
	return nil
}
