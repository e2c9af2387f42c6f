package testutil

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"legalrecords-assistant/internal/model"
	"legalrecords-assistant/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// DB opens a private in-memory SQLite database with the service tables
// migrated. It is closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("get sqlite sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.CaseRecord{},
		&model.Document{},
		&model.Conversation{},
		&model.Message{},
		&model.QueryLog{},
	); err != nil {
		tb.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func SeedRecord(tb testing.TB, db *gorm.DB, record model.CaseRecord) *model.CaseRecord {
	tb.Helper()
	if record.Status == "" {
		record.Status = model.StatusActive
	}
	if err := db.Create(&record).Error; err != nil {
		tb.Fatalf("seed record failed: %v", err)
	}
	return &record
}

func SeedDocument(tb testing.TB, db *gorm.DB, doc model.Document) *model.Document {
	tb.Helper()
	if err := db.Create(&doc).Error; err != nil {
		tb.Fatalf("seed document failed: %v", err)
	}
	return &doc
}
