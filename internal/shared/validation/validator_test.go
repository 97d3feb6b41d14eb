package validation

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		problems map[string]string
		path     []string
		wantMsg  string
	}{
		{
			name: "single problem",
			problems: map[string]string{
				"promql": "promql is required",
			},
			path:    []string{"query"},
			wantMsg: "validation errors found in 'query': promql: promql is required",
		},
		{
			name: "multiple problems are sorted by field",
			problems: map[string]string{
				"timeout": "must be positive",
				"url":     "must start with http:// or https://",
			},
			path:    []string{"config"},
			wantMsg: "validation errors found in 'config': timeout: must be positive; url: must start with http:// or https://",
		},
		{
			name:     "empty problems",
			problems: map[string]string{},
			path:     []string{"config"},
			wantMsg:  "validation errors found in 'config':",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewValidationError(tt.problems, tt.path...)

			msg := err.Error()
			if msg != tt.wantMsg {
				t.Errorf("expected error message %q, got %q", tt.wantMsg, msg)
			}

			for field, problem := range tt.problems {
				if !strings.Contains(msg, field) {
					t.Errorf("expected error message to contain field %q", field)
				}
				if !strings.Contains(msg, problem) {
					t.Errorf("expected error message to contain problem %q", problem)
				}
			}
		})
	}
}

func TestValidationError_Is(t *testing.T) {
	err1 := NewValidationError(map[string]string{"promql": "required"}, "query")
	err2 := NewValidationError(map[string]string{"url": "invalid"}, "config")

	if !errors.Is(err1, err2) {
		t.Error("expected ValidationError.Is to return true for another ValidationError")
	}
	if errors.Is(err1, errors.New("other")) {
		t.Error("expected ValidationError.Is to return false for a plain error")
	}

	wrapped := errors.Join(errors.New("outer"), err1)
	var validationErr *ValidationError
	if !errors.As(wrapped, &validationErr) {
		t.Fatal("expected errors.As to find the ValidationError")
	}
	if validationErr.Path != "query" {
		t.Errorf("expected path 'query', got %q", validationErr.Path)
	}
}

func TestValidationError_PrependPath(t *testing.T) {
	err := NewValidationError(map[string]string{"promql": "required"}, "query")
	err.PrependPath("request")
	if err.Path != "request.query" {
		t.Errorf("expected path 'request.query', got %q", err.Path)
	}

	empty := NewValidationError(map[string]string{"promql": "required"})
	empty.PrependPath("request")
	if empty.Path != "request" {
		t.Errorf("expected path 'request', got %q", empty.Path)
	}
}

type stubValidator map[string]string

func (s stubValidator) Valid(ctx context.Context) map[string]string {
	return s
}

func TestValidate(t *testing.T) {
	if err := Validate(context.Background(), stubValidator(nil), "query"); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}

	err := Validate(context.Background(), stubValidator{"promql": "required"}, "query")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if validationErr.Problems["promql"] != "required" {
		t.Errorf("unexpected problems: %v", validationErr.Problems)
	}
}
