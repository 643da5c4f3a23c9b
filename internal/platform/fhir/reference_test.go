package fhir

import "testing"

func TestFormatCanonical(t *testing.T) {
	if got := FormatCanonical("Questionnaire", "f1", "3"); got != "Questionnaire/f1|3" {
		t.Errorf("FormatCanonical = %q, want Questionnaire/f1|3", got)
	}
	if got := FormatCanonical("Questionnaire", "f1", ""); got != "Questionnaire/f1" {
		t.Errorf("FormatCanonical without version = %q, want Questionnaire/f1", got)
	}
}

func TestParseCanonical(t *testing.T) {
	tests := []struct {
		ref         string
		wantID      string
		wantVersion string
	}{
		{"Questionnaire/f1|3", "f1", "3"},
		{"Questionnaire/f1", "f1", ""},
		{"https://example.org/fhir/Questionnaire/intake|1.2", "intake", "1.2"},
		{"f1", "f1", ""},
		{"", "", ""},
		{"Questionnaire/f1|", "f1", ""},
	}
	for _, tt := range tests {
		id, version := ParseCanonical(tt.ref)
		if id != tt.wantID || version != tt.wantVersion {
			t.Errorf("ParseCanonical(%q) = (%q, %q), want (%q, %q)", tt.ref, id, version, tt.wantID, tt.wantVersion)
		}
	}
}
