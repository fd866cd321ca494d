// Package ticket holds the pure domain logic for follow-up tickets:
// extracting labeled fields from free-text ticket bodies, deciding which
// party a reminder should address, and rendering the reminder templates.
// Nothing in this package performs I/O.
package ticket

import (
	"regexp"
	"strings"
)

// Fields maps a known field label to its trimmed value. Labels absent from
// the ticket body are absent from the map.
type Fields map[string]string

// Field labels recognized in ticket bodies.
const (
	FieldDate        = "Date"
	FieldProvince    = "Province"
	FieldProject     = "Project"
	FieldType        = "Type"
	FieldCustomer    = "Customer"
	FieldDescription = "Description"
)

type fieldPattern struct {
	name string
	re   *regexp.Regexp
}

// Patterns mirror the workflow form the monitored channel posts: a label,
// a colon, and a value running to the end of the line. Matching is
// case-insensitive and the value is accepted verbatim.
var fieldPatterns = []fieldPattern{
	{FieldDate, regexp.MustCompile(`(?i)Date:\s*(.+?)(?:\n|$)`)},
	{FieldProvince, regexp.MustCompile(`(?i)Province:\s*(.+?)(?:\n|$)`)},
	{FieldProject, regexp.MustCompile(`(?i)Project:\s*(.+?)(?:\n|$)`)},
	{FieldType, regexp.MustCompile(`(?i)Type:\s*(.+?)(?:\n|$)`)},
	{FieldCustomer, regexp.MustCompile(`(?i)Customer(?:\s*Name)?:\s*(.+?)(?:\n|$)`)},
	{FieldDescription, regexp.MustCompile(`(?i)Description:\s*(.+?)(?:\n|$)`)},
}

// ExtractFields parses the labeled fields out of a ticket body. Only the
// first match per label counts; values are trimmed of surrounding
// whitespace but otherwise not validated.
func ExtractFields(text string) Fields {
	fields := make(Fields)
	for _, p := range fieldPatterns {
		match := p.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		value := strings.TrimSpace(match[1])
		if value == "" {
			continue
		}
		fields[p.name] = value
	}
	return fields
}
