package progress

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

var (
	supportedLanguages = []language.Tag{language.French, language.English}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// ParseLanguage picks the closest supported display language for an
// Accept-Language style value. French is used when nothing matches.
func ParseLanguage(raw string) language.Tag {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return language.French
	}
	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(tags) == 0 {
		return language.French
	}
	_, idx, confidence := languageMatcher.Match(tags...)
	if confidence == language.No {
		return language.French
	}
	return supportedLanguages[idx]
}

// FormatLongDate renders a calendar date with the day, the full month name
// and the year, e.g. "31 décembre 2026" or "December 31, 2026".
func FormatLongDate(t time.Time, tag language.Tag) string {
	base, _ := tag.Base()
	switch base.String() {
	case "en":
		return t.Format("January 2, 2006")
	default:
		return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
	}
}
