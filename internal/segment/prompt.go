package segment

import (
	"fmt"
	"strings"

	"presenter-studio/internal/models"
)

// DefaultDescriptorWords bounds the identity descriptor in video prompts.
const DefaultDescriptorWords = 25

var roleShots = map[models.SegmentRole]string{
	models.RoleHook:        "close-up, direct eye contact, energetic opening",
	models.RoleDevelopment: "medium shot, natural hand gestures",
	models.RoleCTA:         "close-up, leaning slightly towards camera",
}

// BuildPrompt writes the short generation prompt of one segment. Only the
// identity descriptor is truncated; the dialogue is always passed whole.
func BuildPrompt(profile models.PresenterProfile, spec models.SegmentSpec, descriptorWords int) string {
	if descriptorWords <= 0 {
		descriptorWords = DefaultDescriptorWords
	}
	descriptor := firstWords(profile.CharacterDescription, descriptorWords)

	shot := strings.TrimSpace(spec.ShotType)
	if shot == "" {
		shot = roleShots[spec.Role]
	}
	if shot == "" {
		shot = "medium shot"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The presenter from the reference image, %s, speaks to camera: %q.", descriptor, strings.TrimSpace(spec.Dialogue))
	fmt.Fprintf(&b, " Camera: %s.", shot)
	if e := strings.TrimSpace(spec.Emotion); e != "" {
		fmt.Fprintf(&b, " Mood: %s.", e)
	}
	if v := strings.TrimSpace(profile.Voice); v != "" {
		fmt.Fprintf(&b, " Voice: %s.", firstWords(v, 8))
	}
	return b.String()
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.TrimRight(strings.Join(fields, " "), ",.;:")
}
