package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/wardenhq/warden/internal/database/dbretry"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// CaseModel handles database operations for moderation cases.
type CaseModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCase creates a new case model instance.
func NewCase(db *bun.DB, logger *zap.Logger) *CaseModel {
	return &CaseModel{
		db:     db,
		logger: logger.Named("db_case"),
	}
}

// CreateCase allocates the guild's next case number and inserts the case in
// a single transaction. The sequence row increments inside the transaction,
// so a failed insert rolls the reservation back and numbers stay gapless.
func (m *CaseModel) CreateCase(ctx context.Context, modCase *types.ModerationCase) error {
	err := dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		seq := &types.CaseSequence{GuildID: modCase.GuildID, NextNumber: 1}

		_, err := tx.NewInsert().
			Model(seq).
			On("CONFLICT (guild_id) DO UPDATE").
			Set("next_number = case_sequence.next_number + 1").
			Returning("next_number").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate case number: %w", err)
		}

		modCase.CaseNumber = seq.NextNumber

		_, err = tx.NewInsert().Model(modCase).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert moderation case: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created moderation case",
		zap.Uint64("guildID", modCase.GuildID),
		zap.Int64("caseNumber", modCase.CaseNumber),
		zap.Uint64("userID", modCase.UserID),
		zap.String("type", modCase.Type.String()))

	return nil
}

// GetCase retrieves a moderation case by its internal ID.
func (m *CaseModel) GetCase(ctx context.Context, id int64) (*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationCase, error) {
		var modCase types.ModerationCase

		err := m.db.NewSelect().
			Model(&modCase).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrCaseNotFound
			}

			return nil, fmt.Errorf("failed to get moderation case: %w", err)
		}

		return &modCase, nil
	})
}

// GetCaseByNumber retrieves a case by its guild-scoped number.
func (m *CaseModel) GetCaseByNumber(ctx context.Context, guildID uint64, number int64) (*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.ModerationCase, error) {
		var modCase types.ModerationCase

		err := m.db.NewSelect().
			Model(&modCase).
			Where("guild_id = ?", guildID).
			Where("case_number = ?", number).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrCaseNotFound
			}

			return nil, fmt.Errorf("failed to get moderation case by number: %w", err)
		}

		return &modCase, nil
	})
}

// GetGuildCases retrieves a guild's cases with cursor pagination, newest first.
func (m *CaseModel) GetGuildCases(
	ctx context.Context, guildID uint64, cursor *types.CaseCursor, limit int,
) ([]*types.ModerationCase, *types.CaseCursor, error) {
	var (
		cases      []*types.ModerationCase
		nextCursor *types.CaseCursor
	)

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		cases = nil
		nextCursor = nil

		query := m.db.NewSelect().
			Model(&cases).
			Where("guild_id = ?", guildID).
			Limit(limit + 1) // Get one extra to determine if there's a next page

		if cursor != nil {
			query = query.Where("(created_at, id) <= (?, ?)", cursor.CreatedAt, cursor.ID)
		}

		query = query.Order("created_at DESC", "id DESC")

		err := query.Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get guild cases: %w", err)
		}

		if len(cases) > limit {
			extra := cases[limit]
			nextCursor = &types.CaseCursor{
				CreatedAt: extra.CreatedAt,
				ID:        extra.ID,
			}
			cases = cases[:limit]
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return cases, nextCursor, nil
}

// GetExpiredCases retrieves temporary cases whose restriction has run out
// and has not been lifted yet, oldest expiry first, capped at batchSize.
func (m *CaseModel) GetExpiredCases(ctx context.Context, now time.Time, batchSize int) ([]*types.ModerationCase, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ModerationCase, error) {
		var cases []*types.ModerationCase

		err := m.db.NewSelect().
			Model(&cases).
			Where("expires_at IS NOT NULL").
			Where("expires_at <= ?", now).
			Where("lifted_at IS NULL").
			Order("expires_at ASC").
			Limit(batchSize).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get expired cases: %w", err)
		}

		return cases, nil
	})
}

// MarkLifted records that the sweep has lifted a case's restriction.
// Returns false if the case was already lifted, making re-sweeps a no-op.
func (m *CaseModel) MarkLifted(ctx context.Context, id int64, liftedAt time.Time) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewUpdate().
			Model((*types.ModerationCase)(nil)).
			Set("lifted_at = ?", liftedAt).
			Where("id = ?", id).
			Where("lifted_at IS NULL").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to mark case lifted: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// GetModeratorStats aggregates case counts per moderator and type for a
// guild over a date range.
func (m *CaseModel) GetModeratorStats(
	ctx context.Context, guildID uint64, start, end time.Time,
) ([]*types.ModeratorStats, error) {
	var rows []struct {
		ModeratorID uint64        `bun:"moderator_id"`
		Type        enum.CaseType `bun:"type"`
		Count       int           `bun:"count"`
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		rows = nil

		err := m.db.NewSelect().
			Model((*types.ModerationCase)(nil)).
			Column("moderator_id", "type").
			ColumnExpr("COUNT(*) AS count").
			Where("guild_id = ?", guildID).
			Where("created_at >= ?", start).
			Where("created_at < ?", end).
			Group("moderator_id", "type").
			Scan(ctx, &rows)
		if err != nil {
			return fmt.Errorf("failed to get moderator stats: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	byModerator := make(map[uint64]*types.ModeratorStats)
	for _, row := range rows {
		stats, ok := byModerator[row.ModeratorID]
		if !ok {
			stats = &types.ModeratorStats{ModeratorID: row.ModeratorID}
			byModerator[row.ModeratorID] = stats
		}

		stats.Add(row.Type, row.Count)
	}

	results := make([]*types.ModeratorStats, 0, len(byModerator))
	for _, stats := range byModerator {
		results = append(results, stats)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Total > results[j].Total
	})

	return results, nil
}
