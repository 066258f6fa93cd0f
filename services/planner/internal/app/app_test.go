package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"biblepace/pkg/domain"
	"biblepace/pkg/progress"
	"biblepace/pkg/queue"
)

var paris = time.FixedZone("CET", 3600)

type recordingPublisher struct {
	cmds []domain.ReminderCommand
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, cmd domain.ReminderCommand) error {
	if p.err != nil {
		return p.err
	}
	p.cmds = append(p.cmds, cmd)
	return nil
}

func newTestApp(pub Publisher) *App {
	now := time.Date(2026, time.October, 17, 14, 35, 0, 0, paris)
	return New(Config{
		Location:  paris,
		Now:       func() time.Time { return now },
		Publisher: pub,
	})
}

func TestCatalogView(t *testing.T) {
	view := newTestApp(nil).Catalog()
	if len(view.Groups) != 2 || len(view.Groups[0].Books) != 39 || len(view.Groups[1].Books) != 27 {
		t.Fatalf("unexpected groups")
	}
	if view.Groups[0].Label != "Ancien Testament" {
		t.Fatalf("label = %q", view.Groups[0].Label)
	}
	if view.Totals.Bible != 1189 {
		t.Fatalf("total = %d", view.Totals.Bible)
	}
	if view.DefaultTargetDate != "2026-12-31" {
		t.Fatalf("default target = %q", view.DefaultTargetDate)
	}
}

func TestCatalogViewDefaultTargetFollowsLocation(t *testing.T) {
	a := New(Config{
		Location: time.FixedZone("UTC+2", 2*60*60),
		Now:      func() time.Time { return time.Date(2026, time.December, 31, 23, 30, 0, 0, time.UTC) },
	})
	if got := a.Catalog().DefaultTargetDate; got != "2027-12-31" {
		t.Fatalf("default target = %q, want 2027-12-31", got)
	}
}

func TestBook(t *testing.T) {
	a := newTestApp(nil)
	b, err := a.Book(19)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if b.ChapterCount != 150 || len(b.Chapters) != 150 || b.Chapters[149] != 150 {
		t.Fatalf("unexpected book %+v", b.Book)
	}
	if _, err := a.Book(0); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestCalculateLanguageOverride(t *testing.T) {
	a := newTestApp(nil)
	in := domain.CalculationInput{BookID: 1, Chapter: progress.Chapter(25), TargetDate: "2026-10-26", IncludeNew: true}

	before := testutil.ToFloat64(calculationsTotal.WithLabelValues("ok"))
	fr, err := a.Calculate(in, "")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if fr.EndDate != "26 octobre 2026" || fr.DailyGoalForBible != 130 {
		t.Fatalf("unexpected result %+v", fr)
	}
	en, err := a.Calculate(in, "en-GB")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if en.EndDate != "October 26, 2026" {
		t.Fatalf("endDate = %q", en.EndDate)
	}
	if got := testutil.ToFloat64(calculationsTotal.WithLabelValues("ok")) - before; got != 2 {
		t.Fatalf("ok calculations counted = %v, want 2", got)
	}
}

func TestCalculateCountsValidationReason(t *testing.T) {
	a := newTestApp(nil)
	label := string(progress.ReasonBookNotFound)
	before := testutil.ToFloat64(calculationsTotal.WithLabelValues(label))
	_, err := a.Calculate(domain.CalculationInput{BookID: 99, Chapter: progress.Chapter(1), TargetDate: "2026-12-31"}, "")
	var verr *progress.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got := testutil.ToFloat64(calculationsTotal.WithLabelValues(label)) - before; got != 1 {
		t.Fatalf("counted = %v", got)
	}
}

func TestReminderCommands(t *testing.T) {
	pub := &recordingPublisher{}
	a := newTestApp(pub)
	ctx := context.Background()

	if err := a.SetReminder(ctx, " 07:00 "); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := a.ClearReminder(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(pub.cmds) != 2 || pub.cmds[0].Time != "07:00" || pub.cmds[1].Type != domain.CommandClearReminder {
		t.Fatalf("unexpected commands %+v", pub.cmds)
	}
	if err := a.SetReminder(ctx, "7h"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
	if len(pub.cmds) != 2 {
		t.Fatalf("invalid time must not be published")
	}

	pub.err = errors.New("stream unavailable")
	if err := a.ClearReminder(ctx); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestReminderWithoutPublisher(t *testing.T) {
	if err := newTestApp(nil).ClearReminder(context.Background()); !errors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
}

func TestQueuePublisher(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q, err := queue.NewRedisCommandQueue(queue.Config{Client: client, Stream: "test:reminders"})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	a := newTestApp(QueuePublisher{Queue: q})
	if err := a.SetReminder(context.Background(), "21:30"); err != nil {
		t.Fatalf("set: %v", err)
	}
	n, err := client.XLen(context.Background(), "test:reminders").Result()
	if err != nil {
		t.Fatalf("xlen: %v", err)
	}
	if n != 1 {
		t.Fatalf("stream length = %d, want 1", n)
	}
}
