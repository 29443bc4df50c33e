package script_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presenter-studio/internal/models"
	"presenter-studio/internal/script"
)

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("goal ", n))
}

func twoBySeven(hook, cta string) models.Script {
	return models.Script{
		Locale: "en",
		Segments: []models.SegmentSpec{
			{Role: models.RoleHook, Dialogue: hook, TargetDurationSeconds: 7},
			{Role: models.RoleCTA, Dialogue: cta, TargetDurationSeconds: 7},
		},
	}
}

func TestMaxWords(t *testing.T) {
	assert.Equal(t, 19, script.MaxWords(7, 2.8))
	assert.Equal(t, 22, script.MaxWords(8, 2.8))
	assert.Equal(t, 14, script.MaxWords(5, 2.8))
	assert.Equal(t, 19, script.MaxWords(7, 0))
}

func TestValidateAcceptsIffWithinBudget(t *testing.T) {
	opts := script.Options{WordsPerSecond: script.DefaultWordsPerSecond}
	for n := 1; n <= 25; n++ {
		vs, err := script.Validate(twoBySeven(words(n), "Follow for more"), models.Preset2x7, opts)
		if n <= 19 {
			require.NoError(t, err, "n=%d", n)
			assert.Equal(t, n, vs.WordCounts[0])
			assert.Equal(t, 19, vs.MaxWords[0])
			continue
		}
		var verr *script.ValidationError
		require.True(t, errors.As(err, &verr), "n=%d", n)
		assert.Equal(t, script.ReasonWordBudget, verr.Reason)
		assert.Equal(t, 0, verr.SegmentIndex)
		assert.Equal(t, n, verr.Words)
		assert.Equal(t, 19, verr.MaxWords)
		assert.Nil(t, vs)
	}
}

func TestValidateCountsSpokenWords(t *testing.T) {
	// 17 written words, 21 once "1,250" becomes "one thousand two hundred fifty".
	dialogue := words(16) + " 1,250"
	_, err := script.Validate(twoBySeven(dialogue, "Follow"), models.Preset2x7, script.Options{})
	var verr *script.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, script.ReasonWordBudget, verr.Reason)
	assert.Equal(t, 21, verr.Words)
}

func TestValidateNormalizesDialogue(t *testing.T) {
	vs, err := script.Validate(twoBySeven("He scored 91 goals in 2012", "Follow   for\tmore"), models.Preset2x7, script.Options{})
	require.NoError(t, err)
	assert.Equal(t, "He scored ninety-one goals in two thousand twelve", vs.Script.Segments[0].Dialogue)
	assert.Equal(t, "Follow for more", vs.Script.Segments[1].Dialogue)
	assert.Equal(t, "en", vs.Script.Locale)
}

func TestValidateUsesLocaleFallback(t *testing.T) {
	s := twoBySeven("Marcó 45 goles", "Síguenos")
	s.Locale = ""
	vs, err := script.Validate(s, models.Preset2x7, script.Options{Locale: "es"})
	require.NoError(t, err)
	assert.Equal(t, "es", vs.Script.Locale)
	assert.Equal(t, "Marcó cuarenta y cinco goles", vs.Script.Segments[0].Dialogue)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		script models.Script
		preset models.DurationPreset
		reason script.Reason
		index  int
	}{
		{
			name:   "segment count",
			script: twoBySeven("a", "b"),
			preset: models.Preset3x8,
			reason: script.ReasonSegmentCount,
			index:  -1,
		},
		{
			name: "unknown role",
			script: models.Script{Segments: []models.SegmentSpec{
				{Role: models.RoleHook, Dialogue: "a", TargetDurationSeconds: 7},
				{Role: "outro", Dialogue: "b", TargetDurationSeconds: 7},
			}},
			preset: models.Preset2x7,
			reason: script.ReasonUnknownRole,
			index:  1,
		},
		{
			name:   "empty dialogue",
			script: twoBySeven("  ", "b"),
			preset: models.Preset2x7,
			reason: script.ReasonEmptyDialogue,
			index:  0,
		},
		{
			name: "total duration",
			script: models.Script{Segments: []models.SegmentSpec{
				{Role: models.RoleHook, Dialogue: "a", TargetDurationSeconds: 8},
				{Role: models.RoleCTA, Dialogue: "b", TargetDurationSeconds: 7},
			}},
			preset: models.Preset2x7,
			reason: script.ReasonTotalDuration,
			index:  -1,
		},
		{
			name: "non-positive duration",
			script: models.Script{Segments: []models.SegmentSpec{
				{Role: models.RoleHook, Dialogue: "a", TargetDurationSeconds: 14},
				{Role: models.RoleCTA, Dialogue: "b", TargetDurationSeconds: 0},
			}},
			preset: models.Preset2x7,
			reason: script.ReasonInvalidDuration,
			index:  1,
		},
		{
			name:   "empty preset",
			script: twoBySeven("a", "b"),
			preset: models.DurationPreset{Name: "none"},
			reason: script.ReasonInvalidPreset,
			index:  -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := script.Validate(tt.script, tt.preset, script.Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation))

			var verr *script.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.reason, verr.Reason)
			assert.Equal(t, tt.index, verr.SegmentIndex)
		})
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	s := twoBySeven("3 goals", "Follow")
	_, err := script.Validate(s, models.Preset2x7, script.Options{})
	require.NoError(t, err)
	assert.Equal(t, "3 goals", s.Segments[0].Dialogue)
}
