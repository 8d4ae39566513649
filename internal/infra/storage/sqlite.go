package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"iceberg_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists emitted iceberg alerts and detection-setting overrides.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance. An empty path resolves
// to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.IcebergAlert{}, &domain.SettingOverride{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// defaultDBPath resolves the database file path based on OS
func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "IcebergGo", "data", "iceberg.db"), nil
}

// ======================================================================================
// Alert Operations
// ======================================================================================

// SaveAlert appends a confirmed iceberg record.
func (s *Storage) SaveAlert(alert *domain.IcebergAlert) error {
	return s.db.Create(alert).Error
}

// RecentAlerts retrieves the most recent alerts, newest first.
func (s *Storage) RecentAlerts(limit int) ([]domain.IcebergAlert, error) {
	var alerts []domain.IcebergAlert
	err := s.db.Order("detected_at desc").Limit(limit).Find(&alerts).Error
	return alerts, err
}

// AlertsBySymbol retrieves alerts for one instrument, newest first.
func (s *Storage) AlertsBySymbol(symbol string, limit int) ([]domain.IcebergAlert, error) {
	var alerts []domain.IcebergAlert
	err := s.db.Where("symbol = ?", symbol).Order("detected_at desc").Limit(limit).Find(&alerts).Error
	return alerts, err
}

// CountAlerts returns the total number of persisted alerts.
func (s *Storage) CountAlerts() (int64, error) {
	var count int64
	err := s.db.Model(&domain.IcebergAlert{}).Count(&count).Error
	return count, err
}

// ======================================================================================
// Settings Override Operations
// ======================================================================================

// SaveSetting saves a detection-setting override written by the settings surface.
func (s *Storage) SaveSetting(key, value string) error {
	override := domain.SettingOverride{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&override).Error
}

// LoadSettingsMap loads all persisted setting overrides as a map.
func (s *Storage) LoadSettingsMap() (map[string]string, error) {
	var overrides []domain.SettingOverride
	if err := s.db.Find(&overrides).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, o := range overrides {
		result[o.Key] = o.Value
	}
	return result, nil
}

// DeleteSetting removes one override, reverting the parameter to its
// configured value on next startup.
func (s *Storage) DeleteSetting(key string) error {
	return s.db.Where("key = ?", key).Delete(&domain.SettingOverride{}).Error
}
