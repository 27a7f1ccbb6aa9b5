// Package sqlitestore implements the local durable store on a SQLite
// database via GORM. Plays are persisted as JSON documents alongside
// indexed scalar columns so List can filter without unmarshalling every row.
// The database is opened lazily on first use; opening is idempotent and safe
// under concurrent first calls.
package sqlitestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/coachcore/playvault/internal/store"
	"github.com/coachcore/playvault/pkg/core"
)

// Config holds configuration for the SQLite store.
type Config struct {
	Path string // empty = in-memory (testing only; offline durability needs a file)
}

// Store is the store.Local implementation backed by SQLite.
type Store struct {
	cfg Config
	log zerolog.Logger

	mu sync.Mutex
	db *gorm.DB
}

// playRow is the table schema: one row per play, full record in Doc.
type playRow struct {
	ID        string    `gorm:"primaryKey"`
	Category  string    `gorm:"index"`
	Formation string    `gorm:"index"`
	TeamID    string    `gorm:"index"`
	CoachID   string    `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`
	Doc       datatypes.JSON
}

func (playRow) TableName() string { return "plays" }

// New creates a SQLite store. The database is not opened until first use.
func New(cfg Config, log zerolog.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

// ensureOpen opens and migrates the database on first call. Later calls
// return the existing handle.
func (s *Store) ensureOpen() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	dsn := s.cfg.Path
	if dsn == "" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB: %w", err)
	}

	// WAL keeps committed local writes durable across crashes; the busy
	// timeout covers overlapping calls from the same process.
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&playRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate local schema: %w", err)
	}

	s.log.Debug().Str("path", s.cfg.Path).Msg("Local SQLite store opened")
	s.db = db
	return db, nil
}

// Close closes the underlying database if it was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

// Get returns the play with the given ID, or store.ErrNotFound.
func (s *Store) Get(id string) (*core.Play, error) {
	db, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}

	var row playRow
	if err := db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("local get failed: %w", err)
	}
	return fromRow(row)
}

// Put upserts the play keyed by its ID.
func (s *Store) Put(play *core.Play) error {
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}

	row, err := toRow(play)
	if err != nil {
		return err
	}
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("local put failed: %w", err)
	}
	return nil
}

// Delete removes the play. Deleting a missing ID is not an error.
func (s *Store) Delete(id string) error {
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}

	if err := db.Delete(&playRow{ID: id}).Error; err != nil {
		return fmt.Errorf("local delete failed: %w", err)
	}
	return nil
}

// List returns plays matching the filter, newest updatedAt first. Rows whose
// document no longer parses are skipped and logged, never fatal to the batch.
func (s *Store) List(f store.Filter) ([]core.Play, error) {
	db, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}

	tx := db.Model(&playRow{})
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
		return nil, fmt.Errorf("local list failed: %w", err)
	}

	plays := make([]core.Play, 0, len(rows))
	for _, row := range rows {
		play, err := fromRow(row)
		if err != nil {
			s.log.Warn().Err(err).Str("id", row.ID).Msg("Skipping undecodable local play")
			continue
		}
		plays = append(plays, *play)
	}
	return plays, nil
}

func toRow(play *core.Play) (playRow, error) {
	doc, err := json.Marshal(play)
	if err != nil {
		return playRow{}, fmt.Errorf("failed to encode play %s: %w", play.ID, err)
	}
	return playRow{
		ID:        play.ID,
		Category:  play.Category,
		Formation: play.Formation,
		TeamID:    play.TeamID,
		CoachID:   play.CoachID,
		UpdatedAt: play.UpdatedAt.UTC(),
		Doc:       datatypes.JSON(doc),
	}, nil
}

func fromRow(row playRow) (*core.Play, error) {
	var play core.Play
	if err := json.Unmarshal(row.Doc, &play); err != nil {
		return nil, fmt.Errorf("failed to decode play %s: %w", row.ID, err)
	}
	// JSON round-trips dates as RFC 3339; normalize back to UTC.
	play.CreatedAt = play.CreatedAt.UTC()
	play.UpdatedAt = play.UpdatedAt.UTC()
	return &play, nil
}
