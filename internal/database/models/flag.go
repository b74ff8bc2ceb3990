package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/wardenhq/warden/internal/database/dbretry"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// FlagModel handles database operations for flagged events.
type FlagModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFlag creates a new flag model instance.
func NewFlag(db *bun.DB, logger *zap.Logger) *FlagModel {
	return &FlagModel{
		db:     db,
		logger: logger.Named("db_flag"),
	}
}

// CreateFlag stores a new flagged event.
func (m *FlagModel) CreateFlag(ctx context.Context, flag *types.FlaggedEvent) error {
	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().Model(flag).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create flagged event: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	m.logger.Debug("Created flagged event",
		zap.String("id", flag.ID.String()),
		zap.Uint64("guildID", flag.GuildID),
		zap.Uint64("userID", flag.UserID),
		zap.String("ruleType", flag.RuleType.String()),
		zap.String("severity", flag.Severity.String()))

	return nil
}

// GetFlag retrieves a flagged event by ID.
func (m *FlagModel) GetFlag(ctx context.Context, id uuid.UUID) (*types.FlaggedEvent, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.FlaggedEvent, error) {
		var flag types.FlaggedEvent

		err := m.db.NewSelect().
			Model(&flag).
			Where("id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrFlagNotFound
			}

			return nil, fmt.Errorf("failed to get flagged event: %w", err)
		}

		return &flag, nil
	})
}

// GetPendingFlags retrieves pending flagged events for a guild with cursor
// pagination, optionally narrowed by rule type, severity or user.
func (m *FlagModel) GetPendingFlags(
	ctx context.Context, guildID uint64, filter types.FlagFilter, cursor *types.FlagCursor, limit int,
) ([]*types.FlaggedEvent, *types.FlagCursor, error) {
	var (
		flags      []*types.FlaggedEvent
		nextCursor *types.FlagCursor
	)

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		flags = nil
		nextCursor = nil

		query := m.db.NewSelect().
			Model(&flags).
			Where("guild_id = ?", guildID).
			Where("status = ?", enum.FlagStatusPending).
			Limit(limit + 1) // Get one extra to determine if there's a next page

		if filter.RuleType != nil {
			query = query.Where("rule_type = ?", *filter.RuleType)
		}

		if filter.Severity != nil {
			query = query.Where("severity = ?", *filter.Severity)
		}

		if filter.UserID != 0 {
			query = query.Where("user_id = ?", filter.UserID)
		}

		if cursor != nil {
			query = query.Where("(created_at, id) <= (?, ?)", cursor.CreatedAt, cursor.ID)
		}

		// Order by creation time and ID for stable pagination
		query = query.Order("created_at DESC", "id DESC")

		err := query.Scan(ctx)
		if err != nil {
			return fmt.Errorf("failed to get pending flagged events: %w", err)
		}

		if len(flags) > limit {
			extra := flags[limit]
			nextCursor = &types.FlagCursor{
				CreatedAt: extra.CreatedAt,
				ID:        extra.ID,
			}
			flags = flags[:limit]
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return flags, nextCursor, nil
}

// UpdateFlagStatus moves a flagged event to a new status if its current
// status is one of the allowed source states. Returns false when the event
// does not exist or is not in an allowed state, which callers treat the
// same as not found.
func (m *FlagModel) UpdateFlagStatus(
	ctx context.Context, id uuid.UUID, allowed []enum.FlagStatus,
	to enum.FlagStatus, reviewerID uint64, actionTaken string,
) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		query := m.db.NewUpdate().
			Model((*types.FlaggedEvent)(nil)).
			Set("status = ?", to).
			Set("reviewer_id = ?", reviewerID).
			Set("reviewed_at = ?", time.Now()).
			Where("id = ?", id).
			Where("status IN (?)", bun.In(allowed))

		if actionTaken != "" {
			query = query.Set("action_taken = ?", actionTaken)
		}

		result, err := query.Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to update flagged event status: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}

		return affected > 0, nil
	})
}
