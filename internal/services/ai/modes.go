// File: internal/services/ai/modes.go
package ai

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/altracloud/altrachat/internal/domain"
)

// ModeProfile is the model and system prompt used for one mode.
type ModeProfile struct {
	Model        string `toml:"model"`
	SystemPrompt string `toml:"system_prompt"`
}

// ModeProfiles maps every mode onto its profile.
type ModeProfiles map[domain.Mode]ModeProfile

// DefaultModeProfiles mirrors what the hosted proxy selects per mode.
func DefaultModeProfiles() ModeProfiles {
	return ModeProfiles{
		domain.ModeChat: {
			Model:        "google/gemini-2.5-flash",
			SystemPrompt: "You are AltraChat, a helpful AI assistant created by AltraCloud and Mr. Masum Ahmed. Be friendly, informative, and concise.",
		},
		domain.ModeCode: {
			Model:        "google/gemini-2.5-flash",
			SystemPrompt: "You are an expert programming assistant. Provide clear, well-structured code solutions with explanations.",
		},
		domain.ModeImage: {
			Model: "google/gemini-2.5-flash-image-preview",
		},
	}
}

// Profile returns the profile for mode, falling back to chat.
func (p ModeProfiles) Profile(mode domain.Mode) ModeProfile {
	if prof, ok := p[mode]; ok {
		return prof
	}
	return p[domain.ModeChat]
}

// LoadModeProfiles reads overrides from a TOML file with one table per mode:
//
//	[code]
//	model = "google/gemini-2.5-pro"
//	system_prompt = "..."
//
// Fields left out keep their defaults. An empty path returns the defaults.
func LoadModeProfiles(path string) (ModeProfiles, error) {
	profiles := DefaultModeProfiles()
	if path == "" {
		return profiles, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mode profiles: %w", err)
	}

	var overrides map[string]ModeProfile
	if _, err := toml.Decode(string(data), &overrides); err != nil {
		return nil, fmt.Errorf("parse mode profiles %s: %w", path, err)
	}

	for name, o := range overrides {
		mode := domain.Mode(name)
		if !mode.Valid() {
			return nil, fmt.Errorf("mode profiles %s: unknown mode %q", path, name)
		}
		prof := profiles[mode]
		if o.Model != "" {
			prof.Model = o.Model
		}
		if o.SystemPrompt != "" {
			prof.SystemPrompt = o.SystemPrompt
		}
		profiles[mode] = prof
	}
	return profiles, nil
}
