package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wardenhq/warden/internal/database/dbretry"
	"github.com/wardenhq/warden/internal/database/types"
	"go.uber.org/zap"
)

// GuildConfigModel handles database operations for guild moderation configs.
type GuildConfigModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuildConfig creates a new guild config model instance.
func NewGuildConfig(db *bun.DB, logger *zap.Logger) *GuildConfigModel {
	return &GuildConfigModel{
		db:     db,
		logger: logger.Named("db_guild_config"),
	}
}

// GetConfig retrieves a guild's moderation config.
func (m *GuildConfigModel) GetConfig(ctx context.Context, guildID uint64) (*types.GuildModerationConfig, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.GuildModerationConfig, error) {
		var cfg types.GuildModerationConfig

		err := m.db.NewSelect().
			Model(&cfg).
			Where("guild_id = ?", guildID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrGuildConfigNotFound
			}

			return nil, fmt.Errorf("failed to get guild moderation config: %w", err)
		}

		return &cfg, nil
	})
}

// UpsertConfig creates or replaces a guild's moderation config.
func (m *GuildConfigModel) UpsertConfig(ctx context.Context, cfg *types.GuildModerationConfig) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(cfg).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("mode = EXCLUDED.mode").
			Set("spam = EXCLUDED.spam").
			Set("content_filter = EXCLUDED.content_filter").
			Set("raid = EXCLUDED.raid").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert guild moderation config: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Upserted guild moderation config",
		zap.Uint64("guildID", cfg.GuildID),
		zap.String("mode", cfg.Mode.String()))

	return nil
}
