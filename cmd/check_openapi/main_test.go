package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckRepositoryDocs(t *testing.T) {
	if err := check("../../api/planner-openapi.yaml", "../../api/worker-openapi.yaml"); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestCheckDetectsDrift(t *testing.T) {
	raw, err := os.ReadFile("../../api/worker-openapi.yaml")
	if err != nil {
		t.Fatalf("read worker doc: %v", err)
	}
	drifted := strings.Replace(string(raw), "        maxChapter:\n          type: integer\n", "", 1)
	path := filepath.Join(t.TempDir(), "worker.yaml")
	if err := os.WriteFile(path, []byte(drifted), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	err = check("../../api/planner-openapi.yaml", path)
	if err == nil || !strings.Contains(err.Error(), "ErrorDetail property maxChapter: only in planner") {
		t.Fatalf("expected ErrorDetail mismatch, got %v", err)
	}
}

func TestConformRequiresCode(t *testing.T) {
	s := schema{
		Type:     "object",
		Required: []string{"error"},
		Properties: map[string]schema{
			"error": {Type: "string"},
		},
	}
	errs := conform("planner", "ErrorResponse", s)
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	joined := strings.Join(msgs, "\n")
	for _, want := range []string{`required must include "code"`, "ErrorResponse.requestId missing", "ErrorResponse.details missing"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in:\n%s", want, joined)
		}
	}
}

func TestConformAllowsMissingOptionalField(t *testing.T) {
	s := schema{
		Type:       "object",
		Required:   []string{"reason"},
		Properties: map[string]schema{"reason": {Type: "string"}},
	}
	if errs := conform("worker", "ErrorDetail", s); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	s.Properties["maxChapter"] = schema{Type: "string"}
	if errs := conform("worker", "ErrorDetail", s); len(errs) != 1 {
		t.Fatalf("expected maxChapter type error, got %v", errs)
	}
}

func TestCompareReportsEveryDifference(t *testing.T) {
	planner := schema{
		Type:     "object",
		Required: []string{"code", "error"},
		Properties: map[string]schema{
			"error": {Type: "string"},
			"code":  {Type: "string"},
		},
	}
	worker := schema{
		Type:     "object",
		Required: []string{"error"},
		Properties: map[string]schema{
			"error": {Type: "integer"},
			"hint":  {Type: "string"},
		},
	}
	errs := compare("ErrorResponse", planner, worker)
	if len(errs) != 4 {
		t.Fatalf("expected 4 differences, got %d: %v", len(errs), errs)
	}
	want := []string{
		"ErrorResponse property code: only in planner",
		"ErrorResponse property error: planner \"string\", worker \"integer\"",
		"ErrorResponse property hint: only in worker",
		"ErrorResponse required: planner \"code,error\", worker \"error\"",
	}
	for i, w := range want {
		if !strings.HasPrefix(errs[i].Error(), w) {
			t.Fatalf("difference %d = %q, want prefix %q", i, errs[i], w)
		}
	}
}
