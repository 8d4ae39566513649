package storage

import (
	"os"
	"testing"
	"time"

	"iceberg_go/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := "test.db"
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(&domain.IcebergAlert{}, &domain.SettingOverride{}); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		os.Remove(dbName)
	})

	return &Storage{db: db}
}

func TestSaveAndListAlerts(t *testing.T) {
	s := setupTestDB(t)

	alert := &domain.IcebergAlert{
		Detector:       "scoring",
		Symbol:         "BTC-USD",
		Side:           "BID",
		Price:          "50000.25",
		TotalFilled:    250,
		MaxVisibleSize: 50,
		ExecutionRatio: 5.0,
		RefillCount:    3,
		Score:          0.7,
		DetectedAt:     time.Now(),
	}

	if err := s.SaveAlert(alert); err != nil {
		t.Fatalf("SaveAlert failed: %v", err)
	}

	alerts, err := s.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Symbol != "BTC-USD" {
		t.Errorf("expected symbol BTC-USD, got %s", alerts[0].Symbol)
	}
	if alerts[0].Price != "50000.25" {
		t.Errorf("expected price 50000.25, got %s", alerts[0].Price)
	}
}

func TestAlertsBySymbol(t *testing.T) {
	s := setupTestDB(t)

	s.SaveAlert(&domain.IcebergAlert{Symbol: "BTC-USD", Detector: "scoring", DetectedAt: time.Now()})
	s.SaveAlert(&domain.IcebergAlert{Symbol: "ETH-USD", Detector: "threshold", DetectedAt: time.Now()})
	s.SaveAlert(&domain.IcebergAlert{Symbol: "BTC-USD", Detector: "threshold", DetectedAt: time.Now()})

	alerts, err := s.AlertsBySymbol("BTC-USD", 10)
	if err != nil {
		t.Fatalf("AlertsBySymbol failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Errorf("expected 2 BTC-USD alerts, got %d", len(alerts))
	}

	count, err := s.CountAlerts()
	if err != nil {
		t.Fatalf("CountAlerts failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 total alerts, got %d", count)
	}
}

func TestSettingOverrides(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveSetting("alert_execution_ratio", "7.5"); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}
	if err := s.SaveSetting("min_refill_count", "2"); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}

	// Upsert should replace, not duplicate
	if err := s.SaveSetting("alert_execution_ratio", "8.0"); err != nil {
		t.Fatalf("SaveSetting upsert failed: %v", err)
	}

	m, err := s.LoadSettingsMap()
	if err != nil {
		t.Fatalf("LoadSettingsMap failed: %v", err)
	}
	if len(m) != 2 {
		t.Errorf("expected 2 overrides, got %d", len(m))
	}
	if m["alert_execution_ratio"] != "8.0" {
		t.Errorf("expected 8.0, got %s", m["alert_execution_ratio"])
	}

	if err := s.DeleteSetting("min_refill_count"); err != nil {
		t.Fatalf("DeleteSetting failed: %v", err)
	}
	m, _ = s.LoadSettingsMap()
	if _, ok := m["min_refill_count"]; ok {
		t.Error("expected min_refill_count to be deleted")
	}
}
