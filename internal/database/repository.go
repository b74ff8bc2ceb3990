package database

import (
	"github.com/uptrace/bun"
	"github.com/wardenhq/warden/internal/database/models"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	flag        *models.FlagModel
	modCase     *models.CaseModel
	guildConfig *models.GuildConfigModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		flag:        models.NewFlag(db, logger),
		modCase:     models.NewCase(db, logger),
		guildConfig: models.NewGuildConfig(db, logger),
	}
}

// Flag returns the flagged event model repository.
func (r *Repository) Flag() *models.FlagModel {
	return r.flag
}

// Case returns the moderation case model repository.
func (r *Repository) Case() *models.CaseModel {
	return r.modCase
}

// GuildConfig returns the guild moderation config model repository.
func (r *Repository) GuildConfig() *models.GuildConfigModel {
	return r.guildConfig
}
