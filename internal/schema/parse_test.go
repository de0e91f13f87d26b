package schema

import (
	"errors"
	"testing"

	"parqconvert/internal/errs"
)

func TestParseTypeScalars(t *testing.T) {
	tests := []struct {
		input string
		want  ColumnType
	}{
		{"string", String},
		{"int64", Int64},
		{"int", Int64},
		{"double", Double},
		{"float", Double},
		{"decimal", Double},
		{"date32", Date32},
		{"date64", Date64},
		{"date", Date64},
		{"bool", Bool},
		{" int64 ", Int64},
		{"string not null", String},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseType(tc.input)
			if err != nil {
				t.Fatalf("ParseType(%q) returned error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ParseType(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseTypeTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  TimestampType
	}{
		{"timestamp", TimestampType{Unit: "us"}},
		{"timestamp[us]", TimestampType{Unit: "us"}},
		{"timestamp[us, tz=UTC]", TimestampType{Unit: "us", TZ: "UTC"}},
		{"timestamp[tz=America/New_York]", TimestampType{Unit: "us", TZ: "America/New_York"}},
		{"timestamp[ms]", TimestampType{Unit: "ms"}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseType(tc.input)
			if err != nil {
				t.Fatalf("ParseType(%q) returned error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("ParseType(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseTypeList(t *testing.T) {
	got, err := ParseType("list<int64>")
	if err != nil {
		t.Fatalf("ParseType returned error: %v", err)
	}
	want := ListType{Elem: Int64, ElemNullable: true}
	if got != want {
		t.Errorf("ParseType(list<int64>) = %v, want %v", got, want)
	}

	got, err = ParseType("list<string not null>")
	if err != nil {
		t.Fatalf("ParseType returned error: %v", err)
	}
	want = ListType{Elem: String, ElemNullable: false}
	if got != want {
		t.Errorf("ParseType(list<string not null>) = %v, want %v", got, want)
	}

	got, err = ParseType("list<list<double>>")
	if err != nil {
		t.Fatalf("ParseType returned error: %v", err)
	}
	nested := ListType{Elem: ListType{Elem: Double, ElemNullable: true}, ElemNullable: true}
	if got != nested {
		t.Errorf("ParseType(list<list<double>>) = %v, want %v", got, nested)
	}
}

func TestParseTypeUnknown(t *testing.T) {
	for _, input := range []string{"varchar", "list<varchar>", "list<int64", "timestamp[us"} {
		if _, err := ParseType(input); !errors.Is(err, errs.ErrConfig) {
			t.Errorf("ParseType(%q) error = %v, want ErrConfig", input, err)
		}
	}
}

func TestTypeStringRoundTrip(t *testing.T) {
	for _, input := range []string{
		"string",
		"int64",
		"timestamp[us, tz=UTC]",
		"list<int64>",
		"list<string not null>",
	} {
		typ, err := ParseType(input)
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", input, err)
		}
		reparsed, err := ParseType(typ.String())
		if err != nil {
			t.Fatalf("ParseType(%q) returned error: %v", typ.String(), err)
		}
		if reparsed != typ {
			t.Errorf("round trip of %q produced %v, want %v", input, reparsed, typ)
		}
	}
}
