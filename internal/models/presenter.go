package models

// ReferenceImage is one identity image of a presenter. Role describes what it
// shows ("front", "profile", "full_body").
type ReferenceImage struct {
	URL  string `json:"url" yaml:"url"`
	Role string `json:"role" yaml:"role"`
}

// PresenterProfile is a fixed on-camera identity reused across sessions.
type PresenterProfile struct {
	Name                 string           `json:"name" yaml:"name"`
	FixedSeed            int64            `json:"fixed_seed" yaml:"fixed_seed"`
	ReferenceImages      []ReferenceImage `json:"reference_images" yaml:"reference_images"`
	CharacterDescription string           `json:"character_description" yaml:"character_description"`
	Voice                string           `json:"voice,omitempty" yaml:"voice,omitempty"`
}

// ReferenceURLs returns the reference image URLs in catalogue order.
func (p PresenterProfile) ReferenceURLs() []string {
	urls := make([]string, 0, len(p.ReferenceImages))
	for _, img := range p.ReferenceImages {
		urls = append(urls, img.URL)
	}
	return urls
}

// Clone returns a deep copy.
func (p PresenterProfile) Clone() PresenterProfile {
	c := p
	c.ReferenceImages = append([]ReferenceImage(nil), p.ReferenceImages...)
	return c
}
