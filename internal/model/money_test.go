package model

import (
	"encoding/json"
	"testing"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   float64
		wantOK bool
	}{
		{"with cents", "13.25", 13.25, true},
		{"whole number", "100", 100, true},
		{"padded", " 9.5 ", 9.5, true},
		{"zero is a price", "0.00", 0, true},
		{"empty string", "", 0, false},
		{"invalid string", "abc", 0, false},
		{"currency symbol", "$5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParsePrice(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDecimalUnmarshal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      float64
	}{
		{"number", `12.5`, true, 12.5},
		{"numeric string", `"7.95"`, true, 7.95},
		{"null", `null`, false, 0},
		{"empty string", `""`, false, 0},
		{"garbage string", `"n/a"`, false, 0},
		{"object", `{"amount":"1"}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Decimal
			if err := json.Unmarshal([]byte(tt.input), &d); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if d.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", d.Valid, tt.wantValid)
			}
			if d.Value != tt.want {
				t.Errorf("Value = %v, want %v", d.Value, tt.want)
			}
		})
	}
}

func TestDecimalInStruct(t *testing.T) {
	var row struct {
		Price Decimal `json:"price"`
	}
	if err := json.Unmarshal([]byte(`{}`), &row); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if row.Price.Valid {
		t.Error("missing field should decode as invalid")
	}
	if row.Price.Ptr() != nil {
		t.Error("Ptr() should be nil for invalid decimal")
	}

	out, _ := json.Marshal(row)
	if string(out) != `{"price":null}` {
		t.Errorf("Marshal = %s, want {\"price\":null}", out)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{12.5, "12.50"},
		{3, "3.00"},
		{19.999, "20.00"},
		{0.125, "0.13"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.input); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
