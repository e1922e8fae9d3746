package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitfeed/internal"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config mirrors the storage configuration for the events table.
type Config struct {
	Driver      string
	DSN         string
	Dialect     string
	Table       string
	AutoMigrate bool
}

// Store implements storage.EventStore on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

type row struct {
	ID         string    `gorm:"column:id;size:36;primaryKey"`
	Author     string    `gorm:"column:author;size:255;not null"`
	Action     string    `gorm:"column:action;size:32;not null"`
	FromBranch *string   `gorm:"column:from_branch;size:255"`
	ToBranch   string    `gorm:"column:to_branch;size:255;not null"`
	// The timestamp column is the poll watermark key; range queries
	// depend on this index staying in place.
	Timestamp string    `gorm:"column:timestamp;size:64;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Open creates a GORM-backed events store.
func Open(cfg Config) (*Store, error) {
	if cfg.Driver == "" && cfg.Dialect == "" {
		return nil, errors.New("storage driver or dialect is required")
	}
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		driver = normalizeDriver(cfg.Dialect)
	}
	if driver == "" {
		return nil, errors.New("unsupported storage driver")
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = "gitfeed_events"
	}
	store := &Store{
		db:    gormDB,
		table: table,
	}
	if cfg.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WriteEvent appends a canonical event, assigning its identifier. The
// returned record is the immutable stored form.
func (s *Store) WriteEvent(ctx context.Context, event internal.CanonicalEvent) (internal.StoredEvent, error) {
	if s == nil || s.db == nil {
		return internal.StoredEvent{}, errors.New("store is not initialized")
	}

	data := toRow(event)
	data.ID = uuid.NewString()
	if err := s.tableDB().WithContext(ctx).Create(&data).Error; err != nil {
		return internal.StoredEvent{}, err
	}
	return fromRow(data), nil
}

// QueryEvents returns stored events newer than after (strict greater-than on
// the timestamp field), newest first, at most limit entries. An empty after
// returns the newest events unconditionally.
func (s *Store) QueryEvents(ctx context.Context, after string, limit int) ([]internal.StoredEvent, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	query := s.tableDB().WithContext(ctx)
	if after != "" {
		query = query.Where("timestamp > ?", after)
	}

	var data []row
	err := query.
		Order("timestamp desc").
		Limit(limit).
		Find(&data).Error
	if err != nil {
		return nil, err
	}

	records := make([]internal.StoredEvent, 0, len(data))
	for _, item := range data {
		records = append(records, fromRow(item))
	}
	return records, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) migrate() error {
	return s.tableDB().AutoMigrate(&row{})
}

func (s *Store) tableDB() *gorm.DB {
	return s.db.Table(s.table)
}

func toRow(event internal.CanonicalEvent) row {
	return row{
		Author:     event.Author,
		Action:     string(event.Action),
		FromBranch: event.FromBranch,
		ToBranch:   event.ToBranch,
		Timestamp:  event.Timestamp,
	}
}

func fromRow(data row) internal.StoredEvent {
	return internal.StoredEvent{
		ID: data.ID,
		CanonicalEvent: internal.CanonicalEvent{
			Author:     data.Author,
			Action:     internal.Action(data.Action),
			FromBranch: data.FromBranch,
			ToBranch:   data.ToBranch,
			Timestamp:  data.Timestamp,
		},
	}
}

func normalizeDriver(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
