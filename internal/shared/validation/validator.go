package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type ValidationError struct {
	Path     string
	Problems map[string]string
}

func NewValidationError(problems map[string]string, path ...string) *ValidationError {
	return &ValidationError{strings.Join(path, "."), problems}
}

// Error lists problems sorted by field so the message is stable.
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Problems))
	for field := range e.Problems {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var b strings.Builder
	fmt.Fprintf(&b, "validation errors found in '%s':", e.Path)
	for _, field := range fields {
		fmt.Fprintf(&b, " %s: %s;", field, e.Problems[field])
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *ValidationError) Is(other error) bool {
	_, ok := other.(*ValidationError)
	return ok
}

func (e *ValidationError) PrependPath(path string) *ValidationError {
	if e.Path == "" {
		e.Path = path
		return e
	}
	e.Path = fmt.Sprint(path, ".", e.Path)
	return e
}

type Validator interface {
	// Returns a map of field and human readable explanation of what's wrong
	Valid(ctx context.Context) (problems map[string]string)
}

// Validate runs v and wraps any problems into a *ValidationError rooted at path.
func Validate(ctx context.Context, v Validator, path ...string) error {
	problems := v.Valid(ctx)
	if len(problems) == 0 {
		return nil
	}
	return NewValidationError(problems, path...)
}
