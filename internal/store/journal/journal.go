// Package journal persists executed engine operations with Gorm + SQLite
// for auditing. Writes are best effort: a storage failure is logged, never
// propagated into the trading path.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"normex/internal/engine"
	"normex/internal/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type executionModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Venue     string `gorm:"size:32;index:idx_exec_venue_symbol"`
	Symbol    string `gorm:"size:32;index:idx_exec_venue_symbol"`
	Operation string `gorm:"size:32"`
	Side      string `gorm:"size:8"`
	Quantity  string `gorm:"size:64"`
	Price     string `gorm:"size:64"`
	OrderID   string `gorm:"size:64"`
	Status    string `gorm:"size:32"`
	ErrorKind string `gorm:"size:48"`
	RawError  string
	CreatedAt time.Time `gorm:"index"`
}

func (executionModel) TableName() string { return "executions" }

// Store implements engine.Journal over a SQLite file.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&executionModel{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Record appends one execution row.
func (s *Store) Record(ctx context.Context, entry engine.JournalEntry) {
	row := executionModel{
		Venue:     string(entry.Venue),
		Symbol:    entry.Symbol,
		Operation: entry.Operation,
		Side:      string(entry.Side),
		Quantity:  entry.Quantity.String(),
		Price:     entry.Price.String(),
		OrderID:   entry.OrderID,
		Status:    entry.Status,
		ErrorKind: string(entry.ErrorKind),
		RawError:  entry.RawError,
		CreatedAt: entry.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Warnf("journal write failed: %v", err)
	}
}

// Recent returns the latest n executions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]engine.JournalEntry, error) {
	if n <= 0 {
		n = 50
	}
	var rows []executionModel
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]engine.JournalEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}
