package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/wardenhq/warden/internal/database/types"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.FlaggedEvent)(nil),
			(*types.ModerationCase)(nil),
			(*types.CaseSequence)(nil),
			(*types.GuildModerationConfig)(nil),
		}

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		// Case numbers are unique per guild
		_, err := db.NewCreateIndex().
			Model((*types.ModerationCase)(nil)).
			Index("moderation_cases_guild_number_idx").
			Unique().
			Column("guild_id", "case_number").
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create case number index: %w", err)
		}

		// Pending review queue is always filtered by guild and status
		_, err = db.NewCreateIndex().
			Model((*types.FlaggedEvent)(nil)).
			Index("flagged_events_guild_status_idx").
			Column("guild_id", "status", "created_at").
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create flagged event index: %w", err)
		}

		// The sweep only ever scans unswept temporary cases
		_, err = db.NewRaw(`
			CREATE INDEX IF NOT EXISTS moderation_cases_expiry_idx
			ON moderation_cases (expires_at)
			WHERE expires_at IS NOT NULL AND lifted_at IS NULL
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create expiry index: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.GuildModerationConfig)(nil),
			(*types.CaseSequence)(nil),
			(*types.ModerationCase)(nil),
			(*types.FlaggedEvent)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
