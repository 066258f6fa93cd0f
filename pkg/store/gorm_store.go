package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const (
	migrateLockID int64 = 24061189
	reminderRowID       = 1
)

// GormReminderStore implements ReminderStore using GORM + Postgres.
type GormReminderStore struct {
	db *gorm.DB
}

// NewGormReminderStore opens the DB and runs auto-migrations.
func NewGormReminderStore(dsn string) (*GormReminderStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&ReminderModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return NewGormReminderStoreFromDB(db), nil
}

// NewGormReminderStoreFromDB wraps an already opened and migrated DB.
func NewGormReminderStoreFromDB(db *gorm.DB) *GormReminderStore {
	return &GormReminderStore{db: db}
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

func (s *GormReminderStore) Get(ctx context.Context) (Reminder, bool, error) {
	var model ReminderModel
	err := s.db.WithContext(ctx).First(&model, reminderRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Reminder{}, false, nil
	}
	if err != nil {
		return Reminder{}, false, fmt.Errorf("get reminder: %w", err)
	}
	return Reminder{Time: model.Time, UpdatedAt: model.UpdatedAt}, true, nil
}

func (s *GormReminderStore) Save(ctx context.Context, at string) error {
	if at == "" {
		return ErrEmptyTime
	}
	model := ReminderModel{ID: reminderRowID, Time: at, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"time", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}

func (s *GormReminderStore) Delete(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Delete(&ReminderModel{}, reminderRowID).Error; err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}
