package models

// Enhancement stage names, in pipeline order.
const (
	EnhancementBlackFlashes   = "blackFlashes"
	EnhancementPlayerCard     = "playerCard"
	EnhancementViralSubtitles = "viralSubtitles"
)

// CardSpec describes the data card overlay. Either ImagePath (a pre-rendered
// card) or Title/Lines (drawn with the configured font) must be set.
type CardSpec struct {
	ImagePath       string   `json:"image_path,omitempty"`
	Title           string   `json:"title,omitempty"`
	Lines           []string `json:"lines,omitempty"`
	StartSeconds    float64  `json:"start_seconds"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Cue is one timed subtitle line.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SubtitleSpec selects the subtitle timing source. Exactly one of Cues,
// SRTPath or FromScript is used, checked in that order.
type SubtitleSpec struct {
	Cues       []Cue  `json:"cues,omitempty"`
	SRTPath    string `json:"srt_path,omitempty"`
	FromScript bool   `json:"from_script,omitempty"`
}

// EnhancementSpec lists which enhancement passes to apply.
type EnhancementSpec struct {
	BlackFlashes   bool          `json:"black_flashes"`
	PlayerCard     *CardSpec     `json:"player_card,omitempty"`
	ViralSubtitles *SubtitleSpec `json:"viral_subtitles,omitempty"`
}

// StageReport is the outcome of one enhancement pass.
type StageReport struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
	Skipped bool   `json:"skipped,omitempty"`
	Note    string `json:"note,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EnhancementReport is the partial-success result of an enhancement request.
type EnhancementReport struct {
	BaseVideoPath     string        `json:"base_video_path"`
	EnhancedVideoPath string        `json:"enhanced_video_path,omitempty"`
	Stages            []StageReport `json:"stages"`
}

// Stage returns the report of the named stage.
func (r EnhancementReport) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

// Failed reports whether any requested stage failed.
func (r EnhancementReport) Failed() bool {
	for _, s := range r.Stages {
		if s.Error != "" {
			return true
		}
	}
	return false
}
