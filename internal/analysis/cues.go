package analysis

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reNumber   = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reAddress  = regexp.MustCompile(`(?i)\b(you|your|you're)\b`)
	reEmphasis = regexp.MustCompile(`(?i)\b(important|secret|mistake|never|always|here\s+is\s+why|remember)\b`)
	reWord     = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

var folder = cases.Fold()

// distinctWords counts case-folded unique words in text.
func distinctWords(text string) int {
	seen := map[string]struct{}{}
	for _, w := range reWord.FindAllString(text, -1) {
		w = strings.Trim(folder.String(w), "'")
		if w == "" {
			continue
		}
		seen[w] = struct{}{}
	}
	return len(seen)
}

// cueBonus rewards spoken patterns that tend to hold attention. The result is
// in [0, 0.2].
func cueBonus(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	bonus := 0.0
	bonus += 0.05 * float64(strings.Count(t, "?"))
	bonus += 0.02 * float64(strings.Count(t, "!"))
	bonus += 0.02 * float64(len(reNumber.FindAllStringIndex(t, -1)))
	if reAddress.MatchString(t) {
		bonus += 0.03
	}
	bonus += 0.04 * float64(len(reEmphasis.FindAllStringIndex(t, -1)))
	return clamp(bonus, 0, 0.2)
}

// titleCaser renders candidate labels.
var titleCaser = cases.Title(language.English)

// Label renders a short title for a candidate, taken from its opening words.
func Label(transcript []Segment, c Candidate, maxWords int) string {
	if maxWords <= 0 {
		maxWords = 6
	}
	var words []string
	for _, seg := range transcript {
		if seg.End <= c.HookStart || seg.Start >= c.End {
			continue
		}
		for _, w := range reWord.FindAllString(seg.Text, -1) {
			words = append(words, w)
			if len(words) == maxWords {
				return titleCaser.String(strings.Join(words, " "))
			}
		}
	}
	return titleCaser.String(strings.Join(words, " "))
}
