// Package script validates per-segment dialogue scripts against a duration
// preset and rewrites numbers into their spoken form.
package script

import (
	"fmt"
	"math"
	"strings"

	"presenter-studio/internal/models"
)

// DefaultWordsPerSecond is the speaking-rate ceiling used when Options leaves it unset.
const DefaultWordsPerSecond = 2.8

// Reason identifies why a script was rejected.
type Reason string

const (
	ReasonInvalidPreset   Reason = "invalid_preset"
	ReasonSegmentCount    Reason = "segment_count"
	ReasonUnknownRole     Reason = "unknown_role"
	ReasonEmptyDialogue   Reason = "empty_dialogue"
	ReasonInvalidDuration Reason = "invalid_duration"
	ReasonTotalDuration   Reason = "total_duration"
	ReasonWordBudget      Reason = "word_budget"
)

// ValidationError describes the first rule a script broke. SegmentIndex is -1
// for script-level problems.
type ValidationError struct {
	Reason       Reason
	SegmentIndex int
	Words        int
	MaxWords     int
	Message      string
}

func (e *ValidationError) Error() string {
	if e.SegmentIndex >= 0 {
		return fmt.Sprintf("%v: segment %d: %s", models.ErrValidation, e.SegmentIndex, e.Message)
	}
	return fmt.Sprintf("%v: %s", models.ErrValidation, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return models.ErrValidation
}

// Options tunes validation.
type Options struct {
	WordsPerSecond float64
	// Locale is used when the script does not carry its own.
	Locale string
}

// ValidatedScript is a script that passed every check. Dialogue is already
// normalized into spoken form.
type ValidatedScript struct {
	Script     models.Script
	Preset     models.DurationPreset
	WordCounts []int
	MaxWords   []int
}

// MaxWords is the spoken-word ceiling for a segment of the given length.
func MaxWords(durationSeconds int, wordsPerSecond float64) int {
	if wordsPerSecond <= 0 {
		wordsPerSecond = DefaultWordsPerSecond
	}
	return int(math.Floor(float64(durationSeconds)*wordsPerSecond + 1e-9))
}

// CountWords counts whitespace separated words. Hyphenated compounds like
// "twenty-one" count once.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Validate checks a script against a preset. It never truncates: a segment
// over its word budget is rejected with ReasonWordBudget.
func Validate(s models.Script, preset models.DurationPreset, opts Options) (*ValidatedScript, error) {
	if preset.SegmentCount <= 0 || preset.SegmentSeconds <= 0 {
		return nil, &ValidationError{
			Reason:       ReasonInvalidPreset,
			SegmentIndex: -1,
			Message:      fmt.Sprintf("preset %q has no segments", preset.Name),
		}
	}
	if len(s.Segments) != preset.SegmentCount {
		return nil, &ValidationError{
			Reason:       ReasonSegmentCount,
			SegmentIndex: -1,
			Message:      fmt.Sprintf("preset %s expects %d segments, got %d", preset.Name, preset.SegmentCount, len(s.Segments)),
		}
	}

	locale := s.Locale
	if strings.TrimSpace(locale) == "" {
		locale = opts.Locale
	}
	if strings.TrimSpace(locale) == "" {
		locale = "en"
	}

	out := &ValidatedScript{
		Script: models.Script{
			Locale:   locale,
			Segments: make([]models.SegmentSpec, len(s.Segments)),
		},
		Preset:     preset,
		WordCounts: make([]int, len(s.Segments)),
		MaxWords:   make([]int, len(s.Segments)),
	}

	total := 0
	for i, seg := range s.Segments {
		if !seg.Role.Valid() {
			return nil, &ValidationError{
				Reason:       ReasonUnknownRole,
				SegmentIndex: i,
				Message:      fmt.Sprintf("unknown role %q", seg.Role),
			}
		}
		if strings.TrimSpace(seg.Dialogue) == "" {
			return nil, &ValidationError{
				Reason:       ReasonEmptyDialogue,
				SegmentIndex: i,
				Message:      "dialogue is empty",
			}
		}
		if seg.TargetDurationSeconds <= 0 {
			return nil, &ValidationError{
				Reason:       ReasonInvalidDuration,
				SegmentIndex: i,
				Message:      fmt.Sprintf("target duration %ds must be positive", seg.TargetDurationSeconds),
			}
		}
		total += seg.TargetDurationSeconds

		spoken := strings.Join(strings.Fields(NormalizeNumbers(seg.Dialogue, locale)), " ")
		seg.Dialogue = spoken
		out.Script.Segments[i] = seg
		out.WordCounts[i] = CountWords(spoken)
		out.MaxWords[i] = MaxWords(seg.TargetDurationSeconds, opts.WordsPerSecond)
	}

	if total != preset.TotalSeconds() {
		return nil, &ValidationError{
			Reason:       ReasonTotalDuration,
			SegmentIndex: -1,
			Message:      fmt.Sprintf("segments last %ds, preset %s needs %ds", total, preset.Name, preset.TotalSeconds()),
		}
	}

	for i := range out.Script.Segments {
		if out.WordCounts[i] > out.MaxWords[i] {
			return nil, &ValidationError{
				Reason:       ReasonWordBudget,
				SegmentIndex: i,
				Words:        out.WordCounts[i],
				MaxWords:     out.MaxWords[i],
				Message: fmt.Sprintf("%d spoken words exceed the budget of %d for %ds",
					out.WordCounts[i], out.MaxWords[i], out.Script.Segments[i].TargetDurationSeconds),
			}
		}
	}
	return out, nil
}
