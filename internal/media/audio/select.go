package audio

import (
	"fmt"
	"strings"

	"clipforge/internal/language"
	"clipforge/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for transcription.
type Selection struct {
	Stream ffprobe.Stream
	// Ordinal is the position among audio streams, as used by -map 0:a:N.
	// It is -1 when the source has no audio.
	Ordinal  int
	Language string
}

// Found reports whether an audio stream was selected.
func (s Selection) Found() bool { return s.Ordinal >= 0 }

// Label returns a short human-readable summary of the selected stream.
func (s Selection) Label() string {
	if !s.Found() {
		return ""
	}
	parts := []string{fmt.Sprintf("a:%d", s.Ordinal)}
	if codec := strings.TrimSpace(s.Stream.CodecName); codec != "" {
		parts = append(parts, codec)
	}
	if s.Stream.Channels > 0 {
		parts = append(parts, fmt.Sprintf("%dch", s.Stream.Channels))
	}
	if s.Language != "" {
		parts = append(parts, language.DisplayName(s.Language))
	}
	return strings.Join(parts, " ")
}

// Select ranks audio streams for speech transcription. preferred is an
// ISO 639-1 code or "auto".
func Select(streams []ffprobe.Stream, preferred string) Selection {
	candidates := buildCandidates(streams)
	if len(candidates) == 0 {
		return Selection{Ordinal: -1}
	}
	preferred = language.ToISO2(preferred)

	best := candidates[0]
	bestScore := score(best, preferred)
	for _, cand := range candidates[1:] {
		if s := score(cand, preferred); s > bestScore {
			best, bestScore = cand, s
		}
	}
	return Selection{Stream: best.stream, Ordinal: best.ordinal, Language: best.language}
}

type candidate struct {
	stream      ffprobe.Stream
	ordinal     int
	language    string
	title       string
	channels    int
	isDefault   bool
	isSecondary bool
}

func buildCandidates(streams []ffprobe.Stream) []candidate {
	var result []candidate
	ordinal := 0
	for _, stream := range streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		cand := candidate{
			stream:    stream,
			ordinal:   ordinal,
			language:  language.FromTags(stream.Tags),
			title:     normalizeTitle(stream.Tags),
			channels:  stream.Channels,
			isDefault: stream.Disposition["default"] == 1,
		}
		cand.isSecondary = stream.Disposition["comment"] == 1 ||
			stream.Disposition["visual_impaired"] == 1 ||
			strings.Contains(cand.title, "commentary") ||
			strings.Contains(cand.title, "description")
		result = append(result, cand)
		ordinal++
	}
	return result
}

func score(cand candidate, preferred string) float64 {
	s := 0.0
	if !cand.isSecondary {
		s += 1000
	}
	if preferred != "" && cand.language == preferred {
		s += 500
	}
	if cand.isDefault {
		s += 100
	}
	if cand.channels >= 2 {
		s += 10
	}
	s -= float64(cand.ordinal) * 0.1
	return s
}

func normalizeTitle(tags map[string]string) string {
	for _, key := range []string{"title", "TITLE", "handler_name", "HANDLER_NAME"} {
		if value, ok := tags[key]; ok {
			return strings.ToLower(strings.TrimSpace(value))
		}
	}
	return ""
}
