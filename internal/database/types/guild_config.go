package types

import (
	"errors"
	"time"

	"github.com/wardenhq/warden/internal/database/types/enum"
)

var ErrGuildConfigNotFound = errors.New("guild moderation config not found")

// GuildModerationConfig holds a guild's moderation settings. The sub-configs
// are stored as JSONB; threshold sub-configs are only consulted when Mode is
// Advanced, while the simple presets expand to built-in values.
type GuildModerationConfig struct {
	GuildID       uint64          `bun:",pk"`                       // Guild the config belongs to
	Mode          enum.ConfigMode `bun:",notnull"`                  // Preset name or Advanced
	Spam          *SpamConfig     `bun:"spam,type:jsonb"`           // Spam detector settings
	ContentFilter *ContentConfig  `bun:"content_filter,type:jsonb"` // Content filter settings
	Raid          *RaidConfig     `bun:"raid,type:jsonb"`           // Raid detector settings
	UpdatedAt     time.Time       `bun:",notnull"`                  // Last explicit configuration update
}

// SpamConfig controls the spam detector for one guild.
type SpamConfig struct {
	// Messages allowed inside the window before a rate verdict.
	MessageThreshold int `json:"messageThreshold"`
	// Rolling window length in seconds.
	WindowSeconds int `json:"windowSeconds"`
	// Identical-content messages allowed inside the window.
	DuplicateThreshold int `json:"duplicateThreshold"`
	// Accounts younger than this many days get the new-account severity bump.
	MinAccountAgeDays int `json:"minAccountAgeDays"`
}

// Window returns the rolling window as a duration.
func (c *SpamConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// MinAccountAge returns the new-account cutoff as a duration.
func (c *SpamConfig) MinAccountAge() time.Duration {
	return time.Duration(c.MinAccountAgeDays) * 24 * time.Hour
}

// ContentConfig controls the content filter for one guild.
type ContentConfig struct {
	// Terms matched case-insensitively as substrings.
	BlockedTerms []string `json:"blockedTerms"`
	// Regular expressions compiled case-insensitively.
	BlockedPatterns []string `json:"blockedPatterns"`
}

// RaidConfig controls the raid detector for one guild.
type RaidConfig struct {
	// Joins allowed inside the window before a raid verdict is considered.
	JoinThreshold int `json:"joinThreshold"`
	// Rolling window length in seconds.
	WindowSeconds int `json:"windowSeconds"`
	// Accounts younger than this many days count as new.
	NewAccountAgeDays int `json:"newAccountAgeDays"`
	// Fraction of in-window joins that must be new accounts.
	NewAccountFraction float64 `json:"newAccountFraction"`
}

// Window returns the rolling window as a duration.
func (c *RaidConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// NewAccountAge returns the new-account cutoff as a duration.
func (c *RaidConfig) NewAccountAge() time.Duration {
	return time.Duration(c.NewAccountAgeDays) * 24 * time.Hour
}

// DefaultSpamConfig returns the built-in spam settings for a preset.
// Standard doubles as the conservative fallback when a guild has no config.
func DefaultSpamConfig(mode enum.ConfigMode) *SpamConfig {
	switch mode {
	case enum.ConfigModeLenient:
		return &SpamConfig{MessageThreshold: 12, WindowSeconds: 10, DuplicateThreshold: 6, MinAccountAgeDays: 3}
	case enum.ConfigModeStrict:
		return &SpamConfig{MessageThreshold: 5, WindowSeconds: 10, DuplicateThreshold: 3, MinAccountAgeDays: 14}
	default:
		return &SpamConfig{MessageThreshold: 8, WindowSeconds: 10, DuplicateThreshold: 4, MinAccountAgeDays: 7}
	}
}

// DefaultContentConfig returns the built-in content filter settings for a
// preset. Presets ship without blocklists; guilds provide their own terms.
func DefaultContentConfig(enum.ConfigMode) *ContentConfig {
	return &ContentConfig{}
}

// DefaultRaidConfig returns the built-in raid settings for a preset.
func DefaultRaidConfig(mode enum.ConfigMode) *RaidConfig {
	switch mode {
	case enum.ConfigModeLenient:
		return &RaidConfig{JoinThreshold: 20, WindowSeconds: 60, NewAccountAgeDays: 3, NewAccountFraction: 0.8}
	case enum.ConfigModeStrict:
		return &RaidConfig{JoinThreshold: 8, WindowSeconds: 60, NewAccountAgeDays: 14, NewAccountFraction: 0.5}
	default:
		return &RaidConfig{JoinThreshold: 12, WindowSeconds: 60, NewAccountAgeDays: 7, NewAccountFraction: 0.6}
	}
}

// EffectiveSpam resolves the spam settings the detectors should use,
// expanding presets and falling back to Standard defaults when Advanced
// mode is missing its sub-config.
func (g *GuildModerationConfig) EffectiveSpam() *SpamConfig {
	if g.Mode == enum.ConfigModeAdvanced && g.Spam != nil {
		return g.Spam
	}

	return DefaultSpamConfig(g.Mode)
}

// EffectiveContentFilter resolves the content filter settings. Blocklists
// are guild data rather than tuning, so a stored sub-config applies in every
// mode, not just Advanced.
func (g *GuildModerationConfig) EffectiveContentFilter() *ContentConfig {
	if g.ContentFilter != nil {
		return g.ContentFilter
	}

	return DefaultContentConfig(g.Mode)
}

// EffectiveRaid resolves the raid settings.
func (g *GuildModerationConfig) EffectiveRaid() *RaidConfig {
	if g.Mode == enum.ConfigModeAdvanced && g.Raid != nil {
		return g.Raid
	}

	return DefaultRaidConfig(g.Mode)
}
