package automod

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ConfigStore is the persistence surface the config cache reads from.
// The bun-backed GuildConfigModel implements it.
type ConfigStore interface {
	GetConfig(ctx context.Context, guildID uint64) (*types.GuildModerationConfig, error)
}

// cachedConfig is one cache slot. A nil config means the guild has no
// stored configuration and detectors should use built-in defaults.
type cachedConfig struct {
	config  *types.GuildModerationConfig
	expires time.Time
}

// GuildConfigCache keeps per-guild moderation configs in memory so detector
// hot paths never touch the database. Loads are deduplicated per guild, and
// store failures fall back to built-in conservative defaults rather than
// failing the caller.
type GuildConfigCache struct {
	store      ConfigStore
	ttl        time.Duration
	missingTTL time.Duration
	mu         sync.RWMutex
	entries    map[uint64]cachedConfig
	group      singleflight.Group
	logger     *zap.Logger
}

// NewGuildConfigCache creates a new guild config cache.
func NewGuildConfigCache(store ConfigStore, ttl, missingTTL time.Duration, logger *zap.Logger) *GuildConfigCache {
	return &GuildConfigCache{
		store:      store,
		ttl:        ttl,
		missingTTL: missingTTL,
		entries:    make(map[uint64]cachedConfig),
		logger:     logger.Named("guild_config_cache"),
	}
}

// Get returns the guild's stored config, or nil when the guild has none or
// the store is unavailable. Callers must treat nil as "use defaults".
func (c *GuildConfigCache) Get(ctx context.Context, guildID uint64) *types.GuildModerationConfig {
	c.mu.RLock()
	entry, ok := c.entries[guildID]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expires) {
		return entry.config
	}

	// Collapse concurrent loads for the same guild into one store call
	result, err, _ := c.group.Do(strconv.FormatUint(guildID, 10), func() (any, error) {
		return c.load(ctx, guildID), nil
	})
	if err != nil {
		return nil
	}

	cfg, _ := result.(*types.GuildModerationConfig)

	return cfg
}

func (c *GuildConfigCache) load(ctx context.Context, guildID uint64) *types.GuildModerationConfig {
	cfg, err := c.store.GetConfig(ctx, guildID)

	ttl := c.ttl

	switch {
	case err == nil:
	case errors.Is(err, types.ErrGuildConfigNotFound):
		cfg = nil
		ttl = c.missingTTL
	default:
		// Fail open: cache the miss briefly and let detectors run on
		// built-in defaults instead of silently disabling protection.
		c.logger.Warn("Guild config unavailable, using defaults",
			zap.Uint64("guildID", guildID),
			zap.Error(err))

		cfg = nil
		ttl = c.missingTTL
	}

	c.mu.Lock()
	c.entries[guildID] = cachedConfig{config: cfg, expires: time.Now().Add(ttl)}
	c.mu.Unlock()

	return cfg
}

// Invalidate drops a guild's cached config so the next access reloads it.
// Configuration services call this after explicit updates.
func (c *GuildConfigCache) Invalidate(guildID uint64) {
	c.mu.Lock()
	delete(c.entries, guildID)
	c.mu.Unlock()

	c.logger.Debug("Invalidated guild config", zap.Uint64("guildID", guildID))
}

// SpamConfig resolves the effective spam settings for a guild, falling back
// to the Standard preset when no config exists.
func (c *GuildConfigCache) SpamConfig(ctx context.Context, guildID uint64) *types.SpamConfig {
	if cfg := c.Get(ctx, guildID); cfg != nil {
		return cfg.EffectiveSpam()
	}

	return types.DefaultSpamConfig(enum.ConfigModeStandard)
}

// ContentFilterConfig resolves the effective content filter settings.
func (c *GuildConfigCache) ContentFilterConfig(ctx context.Context, guildID uint64) *types.ContentConfig {
	if cfg := c.Get(ctx, guildID); cfg != nil {
		return cfg.EffectiveContentFilter()
	}

	return types.DefaultContentConfig(enum.ConfigModeStandard)
}

// RaidConfig resolves the effective raid settings.
func (c *GuildConfigCache) RaidConfig(ctx context.Context, guildID uint64) *types.RaidConfig {
	if cfg := c.Get(ctx, guildID); cfg != nil {
		return cfg.EffectiveRaid()
	}

	return types.DefaultRaidConfig(enum.ConfigModeStandard)
}
