package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// validIdentifierRe validates SQL identifiers (alphanumeric and underscores).
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidationError represents a table description problem.
type ValidationError struct {
	Table   string
	Column  string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err returns the first error, or nil.
func (r *ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	section := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	section("Errors", r.Errors)
	section("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

func (r *ValidationResult) merge(o *ValidationResult) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// ValidateTable validates a single table description.
//
// Primary key columns must not be nullable: rows read from an outer join
// report a missing joined row through a NULL key, which is only sound if
// a stored key is never NULL.
func ValidateTable(t *Table) *ValidationResult {
	result := &ValidationResult{}
	errorf := func(col, format string, args ...any) {
		result.Errors = append(result.Errors, &ValidationError{Table: t.Name, Column: col, Message: fmt.Sprintf(format, args...)})
	}

	if !validIdentifierRe.MatchString(t.Name) {
		errorf("", "invalid table name")
	}
	if len(t.Columns) == 0 {
		errorf("", "table has no columns")
	}
	if len(t.PrimaryKey) == 0 {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   t.Name,
			Message: "table has no primary key; only row id lookups are available",
		})
	}

	colNames := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if !validIdentifierRe.MatchString(c.Name) {
			errorf(c.Name, "invalid column name")
		}
		if colNames[c.Name] {
			errorf(c.Name, "duplicate column name")
		}
		colNames[c.Name] = true
		if c.Type == TypeInvalid {
			errorf(c.Name, "column has no type")
		}
	}
	for _, pk := range t.PrimaryKey {
		if !colNames[pk.Name] {
			errorf(pk.Name, "primary key references non-existent column")
		}
		if pk.Nullable {
			errorf(pk.Name, "primary key column must not be nullable")
		}
	}
	return result
}

// ValidateSchema validates all tables in a schema.
func ValidateSchema(tables []*Table) *ValidationResult {
	result := &ValidationResult{}
	tableNames := make(map[string]bool, len(tables))
	for _, t := range tables {
		if tableNames[t.Name] {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.Name,
				Message: "duplicate table name",
			})
		}
		tableNames[t.Name] = true
		result.merge(ValidateTable(t))
	}
	return result
}
