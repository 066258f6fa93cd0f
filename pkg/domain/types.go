package domain

import (
	"net/http"
	"time"
)

type Collection string

const (
	CollectionOld Collection = "OLD"
	CollectionNew Collection = "NEW"
)

// Label returns the display name used to group books in selection lists.
func (c Collection) Label() string {
	switch c {
	case CollectionOld:
		return "Ancien Testament"
	case CollectionNew:
		return "Nouveau Testament"
	default:
		return string(c)
	}
}

type Book struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	ChapterCount int        `json:"chapterCount"`
	Collection   Collection `json:"collection"`
}

// CumulativeBook carries the chapter offsets of a book within the whole
// catalog and within each collection.
type CumulativeBook struct {
	Book
	ChaptersBeforeInBible int `json:"chaptersBeforeInBible"`
	ChaptersBeforeInOld   int `json:"chaptersBeforeInOld"`
	ChaptersBeforeInNew   int `json:"chaptersBeforeInNew"`
}

type Totals struct {
	Old   int `json:"totalOld"`
	New   int `json:"totalNew"`
	Bible int `json:"totalBible"`
}

// CalculationInput is one calculation request. A nil Chapter means no
// chapter was selected; zero is an out of range selection.
type CalculationInput struct {
	BookID     int    `json:"bookId"`
	Chapter    *int   `json:"chapter"`
	TargetDate string `json:"targetDate"`
	IncludeOld bool   `json:"includeOld"`
	IncludeNew bool   `json:"includeNew"`
}

type CalculationResult struct {
	RemainingInBible  int    `json:"remainingInBible"`
	RemainingInOld    int    `json:"remainingInOT"`
	RemainingInNew    int    `json:"remainingInNT"`
	DaysLeft          int    `json:"daysLeft"`
	DailyGoalForBible int    `json:"dailyGoalForBible"`
	DailyGoalForOld   int    `json:"dailyGoalForOT"`
	DailyGoalForNew   int    `json:"dailyGoalForNT"`
	OldIncluded       bool   `json:"otIncluded"`
	NewIncluded       bool   `json:"ntIncluded"`
	EndDate           string `json:"endDate"`
}

type CommandType string

const (
	CommandSetReminder   CommandType = "SET_REMINDER"
	CommandClearReminder CommandType = "CLEAR_REMINDER"
)

// ReminderCommand is the message exchanged between a page and the worker.
type ReminderCommand struct {
	Type CommandType `json:"type"`
	Time string      `json:"time,omitempty"`
}

type Notification struct {
	Tag       string    `json:"tag"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Icon      string    `json:"icon,omitempty"`
	Badge     string    `json:"badge,omitempty"`
	Vibrate   []int     `json:"vibrate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientWindow is a page controlled by the worker.
type ClientWindow struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Focused bool   `json:"focused"`
}

// CacheEntry is the last known good response stored for a request URL.
type CacheEntry struct {
	URL      string      `json:"url"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"-"`
	StoredAt time.Time   `json:"storedAt"`
}
