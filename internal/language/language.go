package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks whisper-cli to detect the spoken language itself.
const Auto = "auto"

// aliases covers English word forms and the ISO 639-2/B codes that container
// muxers still write; everything else goes through BCP 47 parsing.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"eng":        "en",
	"spa":        "es",
	"fra":        "fr",
	"fre":        "fr",
	"deu":        "de",
	"ger":        "de",
	"ita":        "it",
	"por":        "pt",
	"jpn":        "ja",
	"kor":        "ko",
	"zho":        "zh",
	"chi":        "zh",
	"rus":        "ru",
	"nld":        "nl",
	"dut":        "nl",
}

// ToISO2 converts a recognized language code, BCP 47 tag or English name to
// its base ISO 639-1 code. Unrecognized input yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "\u0000", "")))
	if code == "" || code == "und" || code == Auto {
		return ""
	}
	if mapped, ok := aliases[code]; ok {
		return mapped
	}
	tag, err := xlanguage.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for a recognized code.
func DisplayName(code string) string {
	iso := ToISO2(code)
	if iso == "" {
		if strings.TrimSpace(code) == "" {
			return "Unknown"
		}
		return strings.ToUpper(strings.TrimSpace(code))
	}
	if name := display.English.Languages().Name(xlanguage.Make(iso)); name != "" {
		return name
	}
	return strings.ToUpper(iso)
}

// FromTags extracts the stream language from ffprobe tags.
func FromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"} {
		if value, ok := tags[key]; ok {
			if iso := ToISO2(value); iso != "" {
				return iso
			}
		}
	}
	return ""
}

// Whisper normalizes a configured language for whisper-cli. Empty and "auto"
// select detection.
func Whisper(value string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || trimmed == Auto {
		return Auto, nil
	}
	iso := ToISO2(trimmed)
	if iso == "" {
		return "", fmt.Errorf("unrecognized language %q", value)
	}
	return iso, nil
}
