package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"en-US", "en"},
		{"eng", "en"},
		{"fra", "fr"},
		{"deu", "de"},
		{"jpn", "ja"},
		{"english", "en"},
		{"French", "fr"},
		{"GERMAN", "de"},
		{"", ""},
		{"   ", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Fatalf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "Auto"},
		{"en", "English"},
		{"spa", "Spanish"},
		{"not a language", "NOT A LANGUAGE"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Fatalf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
