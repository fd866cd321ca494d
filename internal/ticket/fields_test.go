package ticket

import "testing"

func TestExtractFieldsSubset(t *testing.T) {
	fields := ExtractFields("Date: 2024-01-01\nProvince: Ontario\n")

	if got := fields[FieldDate]; got != "2024-01-01" {
		t.Fatalf("Date = %q, want %q", got, "2024-01-01")
	}
	if got := fields[FieldProvince]; got != "Ontario" {
		t.Fatalf("Province = %q, want %q", got, "Ontario")
	}
	for _, name := range []string{FieldProject, FieldType, FieldCustomer, FieldDescription} {
		if _, ok := fields[name]; ok {
			t.Fatalf("field %s should be absent, got %q", name, fields[name])
		}
	}
}

func TestExtractFieldsCaseInsensitiveAndTrimmed(t *testing.T) {
	fields := ExtractFields("date:   2024-03-05  \nDESCRIPTION: router down in Halifax\n")

	if got := fields[FieldDate]; got != "2024-03-05" {
		t.Fatalf("Date = %q, want trimmed value", got)
	}
	if got := fields[FieldDescription]; got != "router down in Halifax" {
		t.Fatalf("Description = %q", got)
	}
}

func TestExtractFieldsCustomerNameVariant(t *testing.T) {
	fields := ExtractFields("Customer Name: Acme Corp\n")
	if got := fields[FieldCustomer]; got != "Acme Corp" {
		t.Fatalf("Customer = %q, want %q", got, "Acme Corp")
	}
}

func TestExtractFieldsValueRunsToEndOfLine(t *testing.T) {
	fields := ExtractFields("Description: first line only\nsecond line ignored")
	if got := fields[FieldDescription]; got != "first line only" {
		t.Fatalf("Description = %q", got)
	}
}

func TestExtractFieldsEmptyBody(t *testing.T) {
	if fields := ExtractFields(""); len(fields) != 0 {
		t.Fatalf("expected no fields, got %v", fields)
	}
}
