package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Alert statuses
const (
	AlertSent   = "sent"
	AlertMuted  = "muted"
	AlertFailed = "failed"
)

type Database struct {
	db *gorm.DB
}

// Models

// Alert is one notification attempt. The journal is history only; it is
// not consulted when deciding whether a coin is new.
type Alert struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	EntityID  string `gorm:"index"`
	Symbol    string
	Name      string
	Kind      string          `gorm:"index"` // new_listing, rapid_move
	Window    string          // 1h, 24h for rapid moves
	ChangePct decimal.Decimal `gorm:"type:decimal(12,4)"`
	Price     decimal.Decimal `gorm:"type:decimal(30,12)"`
	ChatID    int64
	Status    string    `gorm:"index"` // sent, muted, failed
	Error     string
	CreatedAt time.Time `gorm:"index"`
}

func New(dbPath string) (*Database, error) {
	var db *gorm.DB
	var err error

	// Check if this is a PostgreSQL connection string
	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connected (PostgreSQL)")
	} else {
		// SQLite fallback
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("Database initialized (SQLite)")
	}

	if err := db.AutoMigrate(&Alert{}); err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

// Close releases the underlying connection pool
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Alert operations

func (d *Database) SaveAlert(ctx context.Context, alert *Alert) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	return d.db.WithContext(ctx).Create(alert).Error
}

// RecentAlerts returns the newest alerts first
func (d *Database) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	var alerts []Alert
	err := d.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}

// CountAlertsByStatus returns totals keyed by status
func (d *Database) CountAlertsByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var rows []statusCount
	err := d.db.WithContext(ctx).Model(&Alert{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
