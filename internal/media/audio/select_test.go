package audio

import (
	"testing"

	"clipforge/internal/media/ffprobe"
)

func TestSelectNoAudio(t *testing.T) {
	sel := Select([]ffprobe.Stream{{Index: 0, CodecType: "video"}}, "auto")
	if sel.Found() || sel.Ordinal != -1 || sel.Label() != "" {
		t.Fatalf("expected no selection, got %+v", sel)
	}
}

func TestSelectSkipsCommentaryTrack(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{
			Index:       1,
			CodecType:   "audio",
			CodecName:   "aac",
			Channels:    2,
			Tags:        map[string]string{"language": "eng", "title": "Director Commentary"},
			Disposition: map[string]int{"default": 1},
		},
		{Index: 2, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "eng"}},
	}

	sel := Select(streams, "auto")
	if sel.Ordinal != 1 || sel.Stream.Index != 2 {
		t.Fatalf("expected main program track (a:1), got %+v", sel)
	}
	if sel.Language != "en" {
		t.Fatalf("expected language en, got %q", sel.Language)
	}
}

func TestSelectPrefersConfiguredLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", Channels: 2, Tags: map[string]string{"language": "eng"}, Disposition: map[string]int{"default": 1}},
		{Index: 1, CodecType: "audio", Channels: 2, Tags: map[string]string{"language": "spa"}},
	}

	if sel := Select(streams, "es"); sel.Ordinal != 1 {
		t.Fatalf("expected Spanish track, got %+v", sel)
	}
	if sel := Select(streams, "auto"); sel.Ordinal != 0 {
		t.Fatalf("expected default track without preference, got %+v", sel)
	}
}

func TestSelectPrefersStereoOverMono(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "audio", Channels: 1},
		{Index: 1, CodecType: "audio", Channels: 2, CodecName: "aac"},
	}
	sel := Select(streams, "")
	if sel.Ordinal != 1 {
		t.Fatalf("expected stereo track, got %+v", sel)
	}
	if sel.Label() != "a:1 aac 2ch" {
		t.Fatalf("unexpected label %q", sel.Label())
	}
}
