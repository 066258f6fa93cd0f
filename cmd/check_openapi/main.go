package main

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// envelopeSchemas are the component schemas both services must share.
var envelopeSchemas = []string{"ErrorResponse", "ErrorDetail"}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

// apiDoc is the part of an OpenAPI document the check reads.
type apiDoc struct {
	label   string
	schemas map[string]schema
}

func readAPIDoc(label, path string) (*apiDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	var parsed struct {
		Components struct {
			Schemas map[string]schema `yaml:"schemas"`
		} `yaml:"components"`
	}
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%s: parse %s: %w", label, path, err)
	}
	return &apiDoc{label: label, schemas: parsed.Components.Schemas}, nil
}

func (d *apiDoc) lookup(name string) (schema, error) {
	if d.schemas == nil {
		return schema{}, fmt.Errorf("%s: components.schemas missing", d.label)
	}
	s, ok := d.schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("%s: schema %q missing", d.label, name)
	}
	return s, nil
}

// field is one property an envelope schema must carry.
type field struct {
	name     string
	kind     string
	required bool
	optional bool
	itemsRef string
}

var envelopeFields = map[string][]field{
	"ErrorResponse": {
		{name: "error", kind: "string", required: true},
		{name: "code", kind: "string", required: true},
		{name: "requestId", kind: "string"},
		{name: "details", kind: "array", itemsRef: "#/components/schemas/ErrorDetail"},
	},
	"ErrorDetail": {
		{name: "reason", kind: "string", required: true},
		{name: "maxChapter", kind: "integer", optional: true},
	},
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <planner-openapi.yaml> <worker-openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	if err := check(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

// check reports every way the two documents break or disagree on the shared
// error envelope.
func check(plannerPath, workerPath string) error {
	planner, err := readAPIDoc("planner", plannerPath)
	if err != nil {
		return err
	}
	worker, err := readAPIDoc("worker", workerPath)
	if err != nil {
		return err
	}

	var problems []error
	for _, name := range envelopeSchemas {
		left, lerr := planner.lookup(name)
		right, rerr := worker.lookup(name)
		if lerr != nil || rerr != nil {
			problems = append(problems, lerr, rerr)
			continue
		}
		problems = append(problems, conform(planner.label, name, left)...)
		problems = append(problems, conform(worker.label, name, right)...)
		problems = append(problems, compare(name, left, right)...)
	}
	return errors.Join(problems...)
}

// conform checks s against the envelope fields registered for name.
func conform(label, name string, s schema) []error {
	var errs []error
	if s.Type != "object" {
		errs = append(errs, fmt.Errorf("%s %s must be object", label, name))
	}
	for _, f := range envelopeFields[name] {
		if f.required && !slices.Contains(s.Required, f.name) {
			errs = append(errs, fmt.Errorf("%s %s.required must include %q", label, name, f.name))
		}
		prop, ok := s.Properties[f.name]
		if !ok {
			if !f.optional {
				errs = append(errs, fmt.Errorf("%s %s.%s missing", label, name, f.name))
			}
			continue
		}
		if prop.Type != f.kind {
			errs = append(errs, fmt.Errorf("%s %s.%s must be %s", label, name, f.name, f.kind))
		}
		if f.itemsRef != "" && (prop.Items == nil || strings.TrimSpace(prop.Items.Ref) != f.itemsRef) {
			errs = append(errs, fmt.Errorf("%s %s.%s.items must reference %s", label, name, f.name, f.itemsRef))
		}
	}
	return errs
}

// fingerprint flattens the comparable parts of a schema into key/value
// pairs: its type, its sorted required list and one entry per property.
func fingerprint(s schema) map[string]string {
	required := slices.Clone(s.Required)
	slices.Sort(required)
	out := map[string]string{
		"type":     s.Type,
		"required": strings.Join(required, ","),
	}
	for name, prop := range s.Properties {
		desc := prop.Type
		if prop.Items != nil {
			desc += " of " + strings.TrimSpace(prop.Items.Ref)
		}
		out["property "+name] = desc
	}
	return out
}

func compare(name string, planner, worker schema) []error {
	left, right := fingerprint(planner), fingerprint(worker)
	keys := make([]string, 0, len(left)+len(right))
	for k := range left {
		keys = append(keys, k)
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var errs []error
	for _, k := range keys {
		l, lok := left[k]
		r, rok := right[k]
		switch {
		case !lok:
			errs = append(errs, fmt.Errorf("%s %s: only in worker (%q)", name, k, r))
		case !rok:
			errs = append(errs, fmt.Errorf("%s %s: only in planner (%q)", name, k, l))
		case l != r:
			errs = append(errs, fmt.Errorf("%s %s: planner %q, worker %q", name, k, l, r))
		}
	}
	return errs
}
