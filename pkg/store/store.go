// Package store persists the daily reminder time so a restarted worker can
// re-arm it.
package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEmptyTime is returned when saving a reminder without a time of day.
var ErrEmptyTime = errors.New("reminder time required")

// Reminder is the persisted schedule. Time is the "HH:MM" time of day.
type Reminder struct {
	Time      string    `json:"time"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ReminderStore holds at most one reminder.
type ReminderStore interface {
	Get(ctx context.Context) (Reminder, bool, error)
	Save(ctx context.Context, at string) error
	Delete(ctx context.Context) error
}

// MemoryReminderStore keeps the reminder for the life of the process.
type MemoryReminderStore struct {
	mu       sync.Mutex
	reminder *Reminder
}

func NewMemoryReminderStore() *MemoryReminderStore {
	return &MemoryReminderStore{}
}

func (s *MemoryReminderStore) Get(context.Context) (Reminder, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reminder == nil {
		return Reminder{}, false, nil
	}
	return *s.reminder, true, nil
}

func (s *MemoryReminderStore) Save(_ context.Context, at string) error {
	if at == "" {
		return ErrEmptyTime
	}
	s.mu.Lock()
	s.reminder = &Reminder{Time: at, UpdatedAt: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

func (s *MemoryReminderStore) Delete(context.Context) error {
	s.mu.Lock()
	s.reminder = nil
	s.mu.Unlock()
	return nil
}
