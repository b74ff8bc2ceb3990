package automod

import (
	"time"

	"github.com/wardenhq/warden/internal/database/service"
	"github.com/wardenhq/warden/internal/setup/config"
	"go.uber.org/zap"
)

// Cache TTLs used when the config file leaves them unset.
const (
	defaultConfigCacheTTL   = 60 * time.Second
	defaultMissingConfigTTL = 15 * time.Second
)

// New wires the full detection pipeline from application configuration: a
// guild config cache with the configured TTLs, the three detectors on top
// of it, and the coordinator in front. The chat transport embedding this
// feeds the coordinator message and join events.
func New(
	cfg *config.Automod, store ConfigStore, flags *service.FlagService,
	audit AuditSink, logger *zap.Logger,
) *Coordinator {
	cacheTTL := time.Duration(cfg.ConfigCacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = defaultConfigCacheTTL
	}

	missingTTL := time.Duration(cfg.MissingConfigTTL) * time.Second
	if missingTTL <= 0 {
		missingTTL = defaultMissingConfigTTL
	}

	cache := NewGuildConfigCache(store, cacheTTL, missingTTL, logger)

	return NewCoordinator(
		NewSpamDetector(cache, logger),
		NewRaidDetector(cache, logger),
		NewContentFilter(cache, logger),
		flags, audit, logger,
	)
}
