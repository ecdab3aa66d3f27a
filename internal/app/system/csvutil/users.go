// Package csvutil parses user import files.
package csvutil

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dalemusser/sitetrack/internal/app/system/normalize"
	"github.com/dalemusser/sitetrack/internal/domain/models"
)

// ErrTooManyRows is returned when a file holds more data rows than allowed.
var ErrTooManyRows = errors.New("csv has too many rows")

// ParseOptions controls parsing limits. A zero MaxRows means no limit.
type ParseOptions struct {
	MaxRows int
}

// DefaultParseOptions applies MaxRows.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{MaxRows: MaxRows}
}

// UserRow is a validated row: name,mobile,role.
type UserRow struct {
	Line   int    `json:"line"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
}

// RowError describes why one line was rejected. Line 0 means the problem is
// with the file itself.
type RowError struct {
	Line   int      `json:"line"`
	Reason string   `json:"reason"`
	Raw    []string `json:"raw,omitempty"`
}

// ParsedUsers holds the outcome of ParseUsersCSV. A file with any errors
// should be rejected as a whole.
type ParsedUsers struct {
	Rows   []UserRow
	Errors []RowError
}

// HasErrors returns true if there are any validation errors.
func (r *ParsedUsers) HasErrors() bool {
	return len(r.Errors) > 0
}

// ParseUsersCSV reads rows of name,mobile,role. A header row is skipped
// wherever it appears, blank rows are ignored, and a mobile may appear only
// once per file.
func ParseUsersCSV(r io.Reader, opts ParseOptions) (ParsedUsers, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result ParsedUsers
	seen := make(map[string]int) // mobile -> first line
	rows := 0

	for first := true; ; first = false {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A malformed quote poisons the rest of the file.
			result.Errors = append(result.Errors, RowError{Reason: err.Error()})
			return result, nil
		}
		line, _ := reader.FieldPos(0)
		if first && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
		}
		if isBlank(rec) || isHeaderRow(rec) {
			continue
		}

		rows++
		if opts.MaxRows > 0 && rows > opts.MaxRows {
			return result, ErrTooManyRows
		}

		row, rowErr := parseRow(rec, line)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		if first, dup := seen[row.Mobile]; dup {
			result.Errors = append(result.Errors, RowError{
				Line:   line,
				Reason: fmt.Sprintf("duplicate mobile (first appears on line %d)", first),
				Raw:    rec,
			})
			continue
		}
		seen[row.Mobile] = line
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// isHeaderRow reports whether rec is a column header rather than data.
func isHeaderRow(rec []string) bool {
	if len(rec) < 2 {
		return false
	}
	c0 := strings.ToLower(strings.TrimSpace(rec[0]))
	c1 := strings.ToLower(strings.TrimSpace(rec[1]))
	switch c0 {
	case "name", "full name", "full_name", "fullname":
		return true
	}
	return c1 == "mobile" || c1 == "phone" || c1 == "mobile number"
}

func parseRow(rec []string, line int) (UserRow, *RowError) {
	if len(rec) < 3 {
		return UserRow{}, &RowError{Line: line, Reason: "expected name,mobile,role", Raw: rec}
	}
	row := UserRow{
		Line:   line,
		Name:   normalize.Name(rec[0]),
		Mobile: normalize.Mobile(rec[1]),
		Role:   normalize.Role(rec[2]),
	}
	switch {
	case row.Name == "":
		return UserRow{}, &RowError{Line: line, Reason: "missing name", Raw: rec}
	case row.Mobile == "":
		return UserRow{}, &RowError{Line: line, Reason: "missing mobile", Raw: rec}
	case !models.IsValidRole(row.Role):
		return UserRow{}, &RowError{Line: line, Reason: fmt.Sprintf("invalid role %q", strings.TrimSpace(rec[2])), Raw: rec}
	}
	return row, nil
}
