package language

import "testing"

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"es", "es"},
		{"eng", "en"},
		{"spa", "es"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"english", "en"},
		{"French", "fr"},
		{"GERMAN", "de"},
		{"en-US", "en"},
		{"pt_BR", "pt"},
		{"und", ""},
		{"", ""},
		{" ", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"de", "German"},
		{"", "Unknown"},
		{"not a language", "NOT A LANGUAGE"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFromTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     map[string]string
		expected string
	}{
		{"nil", nil, ""},
		{"lowercase key", map[string]string{"language": "eng"}, "en"},
		{"uppercase key", map[string]string{"LANGUAGE": "spa"}, "es"},
		{"ietf", map[string]string{"language_ietf": "fr-CA"}, "fr"},
		{"undetermined", map[string]string{"language": "und"}, ""},
		{"null padded", map[string]string{"language": "eng\u0000"}, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromTags(tt.tags); got != tt.expected {
				t.Errorf("FromTags(%v) = %q, want %q", tt.tags, got, tt.expected)
			}
		})
	}
}

func TestWhisper(t *testing.T) {
	for input, want := range map[string]string{"": Auto, "AUTO": Auto, "english": "en", "deu": "de"} {
		got, err := Whisper(input)
		if err != nil || got != want {
			t.Errorf("Whisper(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := Whisper("klingonese"); err == nil {
		t.Error("expected error for unknown language")
	}
}
