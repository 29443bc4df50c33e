package enhance

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"presenter-studio/internal/media"
	"presenter-studio/internal/models"
)

// DefaultPhraseWords is the longest phrase shown at once.
const DefaultPhraseWords = 4

var errNoSubtitleSource = errors.New("no subtitle source given")

// ScriptCues splits each segment's dialogue into phrases of at most
// phraseWords words and spreads them over the segment's duration in
// proportion to their word count. durations are the real clip lengths; when
// one is missing the segment's target duration is used.
func ScriptCues(script models.Script, durations []float64, phraseWords int) []models.Cue {
	if phraseWords <= 0 {
		phraseWords = DefaultPhraseWords
	}
	var (
		cues  []models.Cue
		start float64
	)
	for i, seg := range script.Segments {
		dur := float64(seg.TargetDurationSeconds)
		if i < len(durations) && durations[i] > 0 {
			dur = durations[i]
		}
		words := strings.Fields(seg.Dialogue)
		if len(words) == 0 {
			start += dur
			continue
		}

		perWord := dur / float64(len(words))
		at := start
		for lo := 0; lo < len(words); lo += phraseWords {
			hi := min(lo+phraseWords, len(words))
			end := at + perWord*float64(hi-lo)
			if hi == len(words) {
				end = start + dur
			}
			cues = append(cues, models.Cue{Start: at, End: end, Text: strings.Join(words[lo:hi], " ")})
			at = end
		}
		start += dur
	}
	return cues
}

// resolveCues picks the first configured subtitle source.
func resolveCues(spec models.SubtitleSpec, script models.Script, durations []float64, phraseWords int) ([]models.Cue, error) {
	switch {
	case len(spec.Cues) > 0:
		if err := media.ValidateCues(spec.Cues); err != nil {
			return nil, err
		}
		return spec.Cues, nil
	case spec.SRTPath != "":
		f, err := os.Open(spec.SRTPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open subtitles: %w", err)
		}
		defer f.Close()
		cues, err := media.ParseSRT(f)
		if err != nil {
			return nil, fmt.Errorf("malformed subtitles %s: %w", spec.SRTPath, err)
		}
		return cues, nil
	case spec.FromScript:
		cues := ScriptCues(script, durations, phraseWords)
		if err := media.ValidateCues(cues); err != nil {
			return nil, err
		}
		return cues, nil
	default:
		return nil, errNoSubtitleSource
	}
}
