package imagestage

import "fmt"

// Framing is the camera distance hint of one reference frame.
type Framing string

const (
	FramingWide    Framing = "wide"
	FramingMedium  Framing = "medium"
	FramingCloseUp Framing = "close-up"
)

// Progression styles.
const (
	StyleCinematic = "cinematic"
	StyleStatic    = "static"
)

var cinematicProgression = []Framing{FramingWide, FramingMedium, FramingCloseUp}

// ValidStyle reports whether style names a known progression.
func ValidStyle(style string) bool {
	return style == StyleCinematic || style == StyleStatic
}

// FramingFor picks the framing of position index. The cinematic style walks
// wide, medium, close-up and holds close-up for any further positions.
func FramingFor(style string, index int) Framing {
	if style == StyleStatic {
		return FramingMedium
	}
	if index >= len(cinematicProgression) {
		return FramingCloseUp
	}
	return cinematicProgression[index]
}

func (f Framing) hint() string {
	switch f {
	case FramingWide:
		return "wide establishing shot, full upper body visible, studio set in frame"
	case FramingCloseUp:
		return "close-up shot, head and shoulders, shallow depth of field"
	default:
		return "medium shot, waist up, facing camera"
	}
}

// ReferenceKey is the object storage key of a reference frame. Keys are
// namespaced per presenter so presenters never collide.
func ReferenceKey(presenter, sessionID string, index int) string {
	return fmt.Sprintf("presenters/%s/%s/ref-%d.png", slug(presenter), sessionID, index)
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '-')
		}
	}
	if len(out) == 0 {
		return "presenter"
	}
	return string(out)
}
