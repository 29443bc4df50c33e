package presenter_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presenter-studio/internal/models"
	"presenter-studio/internal/presenter"
)

const testCatalogue = `
version: "2026-10-01"
presenters:
  - name: Lucia
    fixed_seed: 424242
    character_description: "woman in her thirties, short dark hair, navy blazer, studio lighting"
    reference_images:
      - url: https://cdn.example.com/lucia/front.png
        role: front
      - url: https://cdn.example.com/lucia/profile.png
        role: profile
  - name: marco
    fixed_seed: 1337
    character_description: "man in his forties, grey beard, club scarf"
    reference_images:
      - url: https://cdn.example.com/marco/front.png
        role: front
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presenters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogue), 0644))

	reg, err := presenter.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", reg.Version())

	lucia, err := reg.Get("lucia")
	require.NoError(t, err)
	assert.Equal(t, int64(424242), lucia.FixedSeed)
	assert.Equal(t, []string{
		"https://cdn.example.com/lucia/front.png",
		"https://cdn.example.com/lucia/profile.png",
	}, lucia.ReferenceURLs())

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Lucia", list[0].Name)
	assert.Equal(t, "marco", list[1].Name)
}

func TestGetReturnsCopies(t *testing.T) {
	reg, err := presenter.Parse([]byte(testCatalogue))
	require.NoError(t, err)

	first, err := reg.Get("Lucia")
	require.NoError(t, err)
	first.FixedSeed = 1
	first.ReferenceImages[0].URL = "https://evil.example.com/x.png"

	second, err := reg.Get("Lucia")
	require.NoError(t, err)
	assert.Equal(t, int64(424242), second.FixedSeed)
	assert.Equal(t, "https://cdn.example.com/lucia/front.png", second.ReferenceImages[0].URL)
}

func TestGetUnknown(t *testing.T) {
	reg, err := presenter.Parse([]byte(testCatalogue))
	require.NoError(t, err)

	_, err = reg.Get("nobody")
	assert.True(t, errors.Is(err, models.ErrPresenterNotFound))
}

func TestNewRejectsInvalidCatalogues(t *testing.T) {
	valid := models.PresenterProfile{
		Name:                 "a",
		FixedSeed:            7,
		CharacterDescription: "desc",
		ReferenceImages:      []models.ReferenceImage{{URL: "https://x/a.png"}},
	}

	tests := []struct {
		name     string
		version  string
		profiles []models.PresenterProfile
	}{
		{"missing version", "", []models.PresenterProfile{valid}},
		{"empty", "v1", nil},
		{"zero seed", "v1", []models.PresenterProfile{func() models.PresenterProfile { p := valid.Clone(); p.FixedSeed = 0; return p }()}},
		{"no references", "v1", []models.PresenterProfile{func() models.PresenterProfile { p := valid.Clone(); p.ReferenceImages = nil; return p }()}},
		{"duplicate names", "v1", []models.PresenterProfile{valid, func() models.PresenterProfile { p := valid.Clone(); p.Name = " A "; return p }()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := presenter.New(tt.version, tt.profiles)
			assert.Error(t, err)
		})
	}
}

func TestShippedCatalogueIsValid(t *testing.T) {
	r, err := presenter.Load(filepath.Join("..", "..", "configs", "presenters.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, r.List())

	for _, p := range r.List() {
		assert.NotZero(t, p.FixedSeed, p.Name)
	}
}
