package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"biblepace/pkg/domain"
	"biblepace/pkg/progress"
)

func runPace(t *testing.T, args ...string) (string, error) {
	t.Helper()
	fixed := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.Local)
	prev := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = prev })

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBooksCommand(t *testing.T) {
	out, err := runPace(t, "books")
	if err != nil {
		t.Fatalf("books: %v", err)
	}
	for _, want := range []string{"Ancien Testament", "Nouveau Testament", "Genèse", "Apocalypse"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCalcJSON(t *testing.T) {
	out, err := runPace(t, "calc", "--book", "1", "--chapter", "25", "--until", "2026-10-26", "--include-new", "--json")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	var res domain.CalculationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if res.RemainingInBible != 1165 || res.DaysLeft != 9 || res.DailyGoalForBible != 130 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCalcTextDefaultsToEndOfYear(t *testing.T) {
	out, err := runPace(t, "calc", "--book", "apocalypse", "--chapter", "22", "--include-old")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	if !strings.Contains(out, "31 décembre 2026 (75 jours)") {
		t.Fatalf("unexpected deadline line:\n%s", out)
	}
	// with the historical polarity the flag leaves the Old Testament out
	var oldGoal string
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) == 3 && fields[0] == "Ancien" {
			oldGoal = fields[2]
		}
	}
	if oldGoal != progress.NotApplicable {
		t.Fatalf("expected sentinel for the Old Testament goal:\n%s", out)
	}
}

func TestCalcSymmetricAndLanguage(t *testing.T) {
	out, err := runPace(t, "calc", "--book", "66", "--chapter", "22", "--until", "2026-12-31", "--include-old", "--symmetric", "--lang", "en", "--json")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	var res domain.CalculationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RemainingInOld != 929 || !res.OldIncluded || res.EndDate != "December 31, 2026" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCalcValidation(t *testing.T) {
	_, err := runPace(t, "calc", "--book", "1", "--chapter", "51")
	var verr *progress.ValidationError
	if !errors.As(err, &verr) || verr.MaxChapter != 50 {
		t.Fatalf("expected out of range error, got %v", err)
	}
	_, err = runPace(t, "calc", "--book", "1")
	if !errors.As(err, &verr) || verr.Reason != progress.ReasonSelectionRequired {
		t.Fatalf("expected selection required, got %v", err)
	}
	if _, err := runPace(t, "calc", "--book", "Hénoch", "--chapter", "1"); err == nil || !strings.Contains(err.Error(), "unknown book") {
		t.Fatalf("expected unknown book, got %v", err)
	}
}
