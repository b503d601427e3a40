package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altracloud/altrachat/internal/domain"
)

func TestLoadModeProfiles_EmptyPathGivesDefaults(t *testing.T) {
	profiles, err := LoadModeProfiles("")
	require.NoError(t, err)
	assert.Equal(t, DefaultModeProfiles(), profiles)
}

func TestLoadModeProfiles_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modes.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[code]
model = "google/gemini-2.5-pro"

[chat]
system_prompt = "Be terse."
`), 0o644))

	profiles, err := LoadModeProfiles(path)
	require.NoError(t, err)

	defaults := DefaultModeProfiles()
	assert.Equal(t, "google/gemini-2.5-pro", profiles[domain.ModeCode].Model)
	assert.Equal(t, defaults[domain.ModeCode].SystemPrompt, profiles[domain.ModeCode].SystemPrompt)
	assert.Equal(t, "Be terse.", profiles[domain.ModeChat].SystemPrompt)
	assert.Equal(t, defaults[domain.ModeChat].Model, profiles[domain.ModeChat].Model)
	assert.Equal(t, defaults[domain.ModeImage], profiles[domain.ModeImage])
}

func TestLoadModeProfiles_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadModeProfiles(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[video]\nmodel = \"x\"\n"), 0o644))
	_, err = LoadModeProfiles(unknown)
	assert.ErrorContains(t, err, "unknown mode")

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[chat\nmodel = "), 0o644))
	_, err = LoadModeProfiles(broken)
	assert.Error(t, err)
}

func TestModeProfiles_ProfileFallsBackToChat(t *testing.T) {
	profiles := DefaultModeProfiles()
	assert.Equal(t, profiles[domain.ModeChat], profiles.Profile(domain.Mode("video")))
}
