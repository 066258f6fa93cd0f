package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"biblepace/pkg/catalog"
	"biblepace/pkg/domain"
	"biblepace/pkg/progress"
)

var (
	ErrNoPublisher  = errors.New("reminder delivery not configured")
	ErrInvalidTime  = errors.New("invalid time of day")
	ErrBookNotFound = errors.New("book not found")
)

// Publisher forwards reminder commands to the worker.
type Publisher interface {
	Publish(ctx context.Context, cmd domain.ReminderCommand) error
}

// Config holds runtime configuration for the planner core.
type Config struct {
	Catalog   *catalog.Catalog
	Location  *time.Location
	Language  language.Tag
	Policy    progress.InclusionPolicy
	Now       func() time.Time
	Publisher Publisher
}

// App serves the book catalog, computes reading paces and relays reminder
// commands.
type App struct {
	catalog    *catalog.Catalog
	calculator progress.Calculator
	publisher  Publisher
}

func New(cfg Config) *App {
	cat := cfg.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	return &App{
		catalog: cat,
		calculator: progress.Calculator{
			Now:      cfg.Now,
			Location: cfg.Location,
			Language: cfg.Language,
			Policy:   cfg.Policy,
		},
		publisher: cfg.Publisher,
	}
}

// CatalogView is the read-only catalog for selection lists.
type CatalogView struct {
	Groups []catalog.Group `json:"groups"`
	Totals domain.Totals   `json:"totals"`
	// DefaultTargetDate is the deadline offered before the reader picks one.
	DefaultTargetDate string `json:"defaultTargetDate"`
}

func (a *App) Catalog() CatalogView {
	return CatalogView{
		Groups:            a.catalog.Grouped(),
		Totals:            a.catalog.Totals(),
		DefaultTargetDate: progress.EndOfYear(a.now()),
	}
}

// BookView is one book with the chapter numbers the reader can pick.
type BookView struct {
	domain.CumulativeBook
	Chapters []int `json:"chapters"`
}

func (a *App) Book(id int) (BookView, error) {
	book, ok := a.catalog.Find(id)
	if !ok {
		return BookView{}, ErrBookNotFound
	}
	chapters, _ := a.catalog.Chapters(id)
	return BookView{CumulativeBook: book, Chapters: chapters}, nil
}

// Calculate computes a pace. lang, when set, overrides the default display
// language for the formatted deadline.
func (a *App) Calculate(in domain.CalculationInput, lang string) (domain.CalculationResult, error) {
	calc := a.calculator
	if strings.TrimSpace(lang) != "" {
		calc.Language = progress.ParseLanguage(lang)
	}
	res, err := calc.Calculate(in, a.catalog)
	outcome := "ok"
	if err != nil {
		var verr *progress.ValidationError
		if errors.As(err, &verr) {
			outcome = string(verr.Reason)
		} else {
			outcome = "error"
		}
	}
	calculationsTotal.WithLabelValues(outcome).Inc()
	return res, err
}

// SetReminder asks the worker to arm the daily reminder at "HH:MM".
func (a *App) SetReminder(ctx context.Context, at string) error {
	at = strings.TrimSpace(at)
	if _, err := time.Parse("15:04", at); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTime, at)
	}
	return a.publish(ctx, domain.ReminderCommand{Type: domain.CommandSetReminder, Time: at})
}

func (a *App) ClearReminder(ctx context.Context) error {
	return a.publish(ctx, domain.ReminderCommand{Type: domain.CommandClearReminder})
}

func (a *App) publish(ctx context.Context, cmd domain.ReminderCommand) error {
	if a.publisher == nil {
		return ErrNoPublisher
	}
	if err := a.publisher.Publish(ctx, cmd); err != nil {
		remindersPublished.WithLabelValues(string(cmd.Type), "failed").Inc()
		return fmt.Errorf("publish %s: %w", cmd.Type, err)
	}
	remindersPublished.WithLabelValues(string(cmd.Type), "ok").Inc()
	return nil
}

func (a *App) now() time.Time {
	return a.calculator.Today()
}
