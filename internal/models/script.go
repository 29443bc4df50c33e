package models

// SegmentRole is the narrative beat a segment plays.
type SegmentRole string

const (
	RoleHook        SegmentRole = "hook"
	RoleDevelopment SegmentRole = "development"
	RoleCTA         SegmentRole = "cta"
)

// Valid reports whether r is a known role tag.
func (r SegmentRole) Valid() bool {
	switch r {
	case RoleHook, RoleDevelopment, RoleCTA:
		return true
	}
	return false
}

// SegmentSpec is one beat of a script.
type SegmentSpec struct {
	Role                  SegmentRole `json:"role"`
	Dialogue              string      `json:"dialogue"`
	TargetDurationSeconds int         `json:"target_duration_seconds"`
	Emotion               string      `json:"emotion,omitempty"`
	ShotType              string      `json:"shot_type,omitempty"`
}

// Script is the ordered dialogue plan of one video.
type Script struct {
	Locale   string        `json:"locale,omitempty"`
	Segments []SegmentSpec `json:"segments"`
}

// TotalSeconds sums the target durations of all segments.
func (s Script) TotalSeconds() int {
	total := 0
	for _, seg := range s.Segments {
		total += seg.TargetDurationSeconds
	}
	return total
}

// DurationPreset fixes the shape of a video: how many segments and how long each.
type DurationPreset struct {
	Name           string `json:"name"`
	SegmentCount   int    `json:"segment_count"`
	SegmentSeconds int    `json:"segment_seconds"`
}

// TotalSeconds is the total dialogue duration of the preset, outro excluded.
func (p DurationPreset) TotalSeconds() int {
	return p.SegmentCount * p.SegmentSeconds
}

// Built-in presets.
var (
	Preset2x7 = DurationPreset{Name: "2x7", SegmentCount: 2, SegmentSeconds: 7}
	Preset3x8 = DurationPreset{Name: "3x8", SegmentCount: 3, SegmentSeconds: 8}
	Preset4x8 = DurationPreset{Name: "4x8", SegmentCount: 4, SegmentSeconds: 8}
)

// PresetByName looks up a built-in preset.
func PresetByName(name string) (DurationPreset, bool) {
	for _, p := range []DurationPreset{Preset2x7, Preset3x8, Preset4x8} {
		if p.Name == name {
			return p, true
		}
	}
	return DurationPreset{}, false
}
