package analysis

// Segment is one transcript entry in source seconds.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Interval is a half-open time range [Start, End) in source seconds.
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (i Interval) contains(t float64) bool {
	return t >= i.Start && t < i.End
}

// Window is an unscored candidate span. Length is the requested clip length
// (seconds) the window was generated for.
type Window struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Length int     `json:"length"`
}

// Duration returns End-Start.
func (w Window) Duration() float64 { return w.End - w.Start }

// Candidate is a scored window with its hook offset.
type Candidate struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Length        int     `json:"length"`
	Score         float64 `json:"score"`
	HookStart     float64 `json:"hookStart"`
	SpeechDensity float64 `json:"speechDensity"`
	SilenceRatio  float64 `json:"silenceRatio"`
	Energy        float64 `json:"energy"`
}

// Details describes the chosen candidate.
type Details struct {
	ChosenStart  float64  `json:"chosenStart"`
	ChosenEnd    float64  `json:"chosenEnd"`
	HookStart    float64  `json:"hookStart"`
	Improvements []string `json:"improvements"`
}

// ClipSeconds is the rendered span, from the hook to the chosen end.
func (d Details) ClipSeconds() float64 { return d.ChosenEnd - d.HookStart }

// EditAssessment reports how much of the source the chosen clip removes.
type EditAssessment struct {
	SourceSeconds  float64 `json:"sourceSeconds"`
	ClipSeconds    float64 `json:"clipSeconds"`
	RemovedSeconds float64 `json:"removedSeconds"`
	Meaningful     bool    `json:"meaningful"`
	Reason         string  `json:"reason,omitempty"`
}
