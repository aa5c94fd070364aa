package registry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FieldError represents a validation failure for a specific field.
type FieldError struct {
	Field   string // field path, e.g. "versions[0].num"
	Message string
}

func (e *FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []*FieldError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&b, "\n  - %s", err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying errors for errors.Is/As compatibility.
func (e *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &FieldError{Field: field, Message: message})
}

// HasErrors returns true if any errors were collected.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if no errors, otherwise returns self.
func (e *ValidationErrors) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

var (
	// Crate names: alphanumeric start, then alphanumerics, hyphens and
	// underscores.
	crateNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

	// Published versions are always full three-component semver, with
	// optional pre-release and build metadata.
	versionNumPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
)

// Validate checks that the crate document holds what the API contract
// promises. Returns nil if valid, or ValidationErrors with all issues
// found.
func (r *CrateResponse) Validate() error {
	var errs ValidationErrors

	switch {
	case r.Crate.Name == "":
		errs.Add("crate.name", "required field is missing")
	case !crateNamePattern.MatchString(r.Crate.Name):
		errs.Add("crate.name", "must be alphanumeric with hyphens and underscores")
	}

	if len(r.Versions) == 0 {
		errs.Add("versions", "required field is missing or empty")
	}
	for i := range r.Versions {
		num := r.Versions[i].Num
		field := fmt.Sprintf("versions[%d].num", i)
		switch {
		case num == "":
			errs.Add(field, "required field is missing")
		case !versionNumPattern.MatchString(num):
			errs.Add(field, "must be a full three-component version")
		}
	}

	return errs.ToError()
}

// Validate checks a dependency document.
func (r *DependenciesResponse) Validate() error {
	var errs ValidationErrors
	for i := range r.Dependencies {
		r.Dependencies[i].validate(fmt.Sprintf("dependencies[%d]", i), &errs)
	}
	return errs.ToError()
}

func (d *DependencyData) validate(prefix string, errs *ValidationErrors) {
	switch {
	case d.CrateID == "":
		errs.Add(prefix+".crate_id", "required field is missing")
	case !crateNamePattern.MatchString(d.CrateID):
		errs.Add(prefix+".crate_id", "must be alphanumeric with hyphens and underscores")
	}

	if d.Req == "" {
		errs.Add(prefix+".req", "required field is missing")
	}

	switch d.Kind {
	case KindNormal, KindBuild, KindDev:
	default:
		errs.Add(prefix+".kind", fmt.Sprintf("expected normal, build or dev, got %q", d.Kind))
	}
}

// ValidateCrateJSON parses and validates a crate document in one step.
func ValidateCrateJSON(data []byte) (*CrateResponse, error) {
	var r CrateResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &FieldError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ValidateDependenciesJSON parses and validates a dependency document
// in one step.
func ValidateDependenciesJSON(data []byte) (*DependenciesResponse, error) {
	var r DependenciesResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, &FieldError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
