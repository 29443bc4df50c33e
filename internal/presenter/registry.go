// Package presenter holds the read-only catalogue of presenter identities.
//
// The catalogue is loaded once at startup from a versioned YAML file. Profiles
// are copied on the way in and on the way out, so nothing outside this package
// can change a presenter's seed at runtime.
package presenter

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"presenter-studio/internal/models"
)

// catalogueFile is the on-disk format.
type catalogueFile struct {
	Version    string                    `yaml:"version"`
	Presenters []models.PresenterProfile `yaml:"presenters"`
}

// Registry is an immutable presenter catalogue. Safe for concurrent use.
type Registry struct {
	version string
	byName  map[string]models.PresenterProfile
	names   []string
}

// Load reads and validates a catalogue file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presenter catalogue %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalogue.
func Parse(data []byte) (*Registry, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse presenter catalogue: %w", err)
	}
	return New(file.Version, file.Presenters)
}

// New builds a registry from already decoded profiles.
func New(version string, profiles []models.PresenterProfile) (*Registry, error) {
	if strings.TrimSpace(version) == "" {
		return nil, errors.New("presenter catalogue has no version")
	}
	if len(profiles) == 0 {
		return nil, errors.New("presenter catalogue is empty")
	}

	r := &Registry{
		version: version,
		byName:  make(map[string]models.PresenterProfile, len(profiles)),
	}
	for i, p := range profiles {
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("presenter #%d: %w", i, err)
		}
		key := normalizeName(p.Name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("presenter %q is defined twice", p.Name)
		}
		r.byName[key] = p.Clone()
		r.names = append(r.names, key)
	}
	sort.Strings(r.names)
	return r, nil
}

func validateProfile(p models.PresenterProfile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	// Providers treat seed 0 as "pick a random seed", which defeats identity stability.
	if p.FixedSeed == 0 {
		return fmt.Errorf("presenter %q: fixed_seed must be non-zero", p.Name)
	}
	if strings.TrimSpace(p.CharacterDescription) == "" {
		return fmt.Errorf("presenter %q: character_description is required", p.Name)
	}
	if len(p.ReferenceImages) == 0 {
		return fmt.Errorf("presenter %q: at least one reference image is required", p.Name)
	}
	for j, img := range p.ReferenceImages {
		if strings.TrimSpace(img.URL) == "" {
			return fmt.Errorf("presenter %q: reference image #%d has no url", p.Name, j)
		}
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Version identifies the loaded catalogue revision.
func (r *Registry) Version() string {
	return r.version
}

// Get returns a copy of the named profile.
func (r *Registry) Get(name string) (models.PresenterProfile, error) {
	p, ok := r.byName[normalizeName(name)]
	if !ok {
		return models.PresenterProfile{}, fmt.Errorf("%w: %s", models.ErrPresenterNotFound, name)
	}
	return p.Clone(), nil
}

// List returns copies of all profiles sorted by name.
func (r *Registry) List() []models.PresenterProfile {
	out := make([]models.PresenterProfile, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name].Clone())
	}
	return out
}
