// Package recorder archives instrument readings in a local sqlite database,
// grouped into measurement runs.
package recorder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/uedlab/instctl/logger"
)

// Run is one measurement session. Readings reference their run by ID.
type Run struct {
	ID        string `gorm:"primaryKey"`
	Operator  string
	Notes     string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Reading is a single timestamped value from one instrument.
type Reading struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"index"`
	Instrument string `gorm:"index"`
	Quantity   string
	Unit       string
	Value      float64
	TakenAt    time.Time
}

// Store is a run/reading archive backed by a sqlite file.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
}

// Open opens (creating if needed) the archive at path and migrates the
// schema. Use ":memory:" for a throwaway archive.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("recorder: opening %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}, &Reading{}); err != nil {
		return nil, fmt.Errorf("recorder: migrating schema: %w", err)
	}

	return &Store{db: db, logger: logger.GetLogger()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// StartRun opens a new measurement run.
func (s *Store) StartRun(operator, notes string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Operator:  operator,
		Notes:     notes,
		StartedAt: time.Now(),
	}
	if err := s.db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("recorder: creating run: %w", err)
	}
	s.logger.Info("run started", "run_id", run.ID, "operator", operator)

	return run, nil
}

// EndRun marks a run as finished.
func (s *Store) EndRun(runID string) error {
	now := time.Now()
	res := s.db.Model(&Run{}).Where("id = ?", runID).Update("ended_at", &now)
	if res.Error != nil {
		return fmt.Errorf("recorder: ending run %s: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("recorder: run %s not found", runID)
	}

	return nil
}

// Record stores one reading against a run.
func (s *Store) Record(runID, instrument, quantity, unit string, value float64) error {
	reading := &Reading{
		RunID:      runID,
		Instrument: instrument,
		Quantity:   quantity,
		Unit:       unit,
		Value:      value,
		TakenAt:    time.Now(),
	}
	if err := s.db.Create(reading).Error; err != nil {
		return fmt.Errorf("recorder: recording %s/%s: %w", instrument, quantity, err)
	}

	return nil
}

// Runs lists all runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	var runs []Run
	if err := s.db.Order("started_at desc").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("recorder: listing runs: %w", err)
	}

	return runs, nil
}

// Readings returns all readings of one run in acquisition order.
func (s *Store) Readings(runID string) ([]Reading, error) {
	var readings []Reading
	err := s.db.Where("run_id = ?", runID).Order("taken_at asc, id asc").Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("recorder: reading run %s: %w", runID, err)
	}

	return readings, nil
}

// InstrumentReadings returns one instrument's readings of one run in
// acquisition order.
func (s *Store) InstrumentReadings(runID, instrument string) ([]Reading, error) {
	var readings []Reading
	err := s.db.Where("run_id = ? AND instrument = ?", runID, instrument).
		Order("taken_at asc, id asc").Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("recorder: reading run %s instrument %s: %w", runID, instrument, err)
	}

	return readings, nil
}
