package store

import "time"

// ReminderModel is the single-row reminder table. ID is always reminderRowID.
type ReminderModel struct {
	ID        int    `gorm:"primaryKey;autoIncrement:false"`
	Time      string `gorm:"not null"`
	UpdatedAt time.Time
}

func (ReminderModel) TableName() string {
	return "reminders"
}
