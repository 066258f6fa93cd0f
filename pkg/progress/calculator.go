// Package progress computes how many chapters remain before a deadline and
// the daily pace needed to reach it.
package progress

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"biblepace/pkg/catalog"
	"biblepace/pkg/domain"
)

// DateLayout is the calendar date format accepted for target dates.
const DateLayout = "2006-01-02"

// NotApplicable is displayed for a daily goal whose scope was not counted.
const NotApplicable = "-"

// InclusionPolicy decides how the flag for the collection the current book
// does not belong to is read.
type InclusionPolicy int

const (
	// PolicyToggle keeps the historical polarity: with an OLD book the NEW
	// collection is counted when IncludeNew is set, with a NEW book the OLD
	// collection is counted when IncludeOld is NOT set.
	PolicyToggle InclusionPolicy = iota
	// PolicySymmetric counts the other collection whenever its flag is set.
	PolicySymmetric
)

// ParsePolicy maps a config value to a policy. Unknown values fall back to
// PolicyToggle.
func ParsePolicy(raw string) InclusionPolicy {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "symmetric":
		return PolicySymmetric
	default:
		return PolicyToggle
	}
}

func (p InclusionPolicy) String() string {
	if p == PolicySymmetric {
		return "symmetric"
	}
	return "toggle"
}

// Calculator turns a reading position and a deadline into a pace.
// The zero value uses the wall clock, time.Local, French output and
// PolicyToggle. Calculator holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	Now      func() time.Time
	Location *time.Location
	Language language.Tag
	Policy   InclusionPolicy
}

// Calculate validates the input against the catalog and computes the result.
// Validation failures are returned as *ValidationError.
func (c Calculator) Calculate(in domain.CalculationInput, cat *catalog.Catalog) (domain.CalculationResult, error) {
	if in.BookID == 0 || in.Chapter == nil {
		return domain.CalculationResult{}, selectionRequired()
	}
	rawDate := strings.TrimSpace(in.TargetDate)
	if rawDate == "" {
		return domain.CalculationResult{}, dateRequired()
	}
	book, ok := cat.Find(in.BookID)
	if !ok {
		return domain.CalculationResult{}, bookNotFound()
	}
	chapter := *in.Chapter
	if chapter <= 0 || chapter > book.ChapterCount {
		return domain.CalculationResult{}, chapterOutOfRange(book.ChapterCount)
	}
	loc := c.location()
	target, err := time.ParseInLocation(DateLayout, rawDate, loc)
	if err != nil {
		return domain.CalculationResult{}, dateInvalid(rawDate)
	}

	totals := cat.Totals()
	res := c.remaining(book, chapter, in, totals)
	res.DaysLeft = DaysBetween(c.Today(), target)
	res.DailyGoalForBible = DailyGoal(res.RemainingInBible, res.DaysLeft)
	res.DailyGoalForOld = DailyGoal(res.RemainingInOld, res.DaysLeft)
	res.DailyGoalForNew = DailyGoal(res.RemainingInNew, res.DaysLeft)
	res.EndDate = FormatLongDate(target, c.language())
	return res, nil
}

func (c Calculator) remaining(book domain.CumulativeBook, chapter int, in domain.CalculationInput, totals domain.Totals) domain.CalculationResult {
	readInCurrentBook := chapter - 1
	var res domain.CalculationResult
	if book.Collection == domain.CollectionOld {
		res.RemainingInOld = totals.Old - (book.ChaptersBeforeInOld + readInCurrentBook)
		res.OldIncluded = true
		if in.IncludeNew {
			res.RemainingInNew = totals.New
			res.NewIncluded = true
		}
	} else {
		res.RemainingInNew = totals.New - (book.ChaptersBeforeInNew + readInCurrentBook)
		res.NewIncluded = true
		countOld := !in.IncludeOld
		if c.Policy == PolicySymmetric {
			countOld = in.IncludeOld
		}
		if countOld {
			res.RemainingInOld = totals.Old
			res.OldIncluded = true
		}
	}
	res.RemainingInBible = res.RemainingInOld + res.RemainingInNew
	return res
}

// Chapter returns a pointer to n for building a CalculationInput.
func Chapter(n int) *int {
	return &n
}

// DaysBetween counts whole calendar days from the day of now to target,
// never below zero. Both ends are taken at local midnight, so a deadline of
// today yields zero and daylight saving shifts do not add a day.
func DaysBetween(now, target time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := target.Date()
	from := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	to := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	days := int((to.Unix() - from.Unix()) / 86400)
	if days < 0 {
		return 0
	}
	return days
}

// DailyGoal is the ceiling of remaining over days. With no days left or
// nothing remaining it reports remaining unchanged.
func DailyGoal(remaining, days int) int {
	if days <= 0 || remaining <= 0 {
		return remaining
	}
	return (remaining + days - 1) / days
}

// DailyGoalLabel renders the per-collection goal for display, using
// NotApplicable for a collection that was not counted in the goal.
func DailyGoalLabel(res domain.CalculationResult, col domain.Collection) string {
	switch col {
	case domain.CollectionOld:
		if !res.OldIncluded {
			return NotApplicable
		}
		return strconv.Itoa(res.DailyGoalForOld)
	case domain.CollectionNew:
		if !res.NewIncluded {
			return NotApplicable
		}
		return strconv.Itoa(res.DailyGoalForNew)
	default:
		return strconv.Itoa(res.DailyGoalForBible)
	}
}

// EndOfYear returns December 31 of the year of now, formatted as DateLayout.
// It is the default deadline offered to readers.
func EndOfYear(now time.Time) string {
	return time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()).Format(DateLayout)
}

func (c Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Today is the current instant in the calculator's location.
func (c Calculator) Today() time.Time {
	return c.now().In(c.location())
}

func (c Calculator) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}

func (c Calculator) language() language.Tag {
	if c.Language == language.Und {
		return language.French
	}
	return c.Language
}
