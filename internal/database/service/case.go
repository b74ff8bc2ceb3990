package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// CaseStore is the persistence surface the case lifecycle needs. The
// bun-backed CaseModel implements it; tests use an in-memory store. Case
// number allocation must be atomic per guild inside CreateCase.
type CaseStore interface {
	CreateCase(ctx context.Context, modCase *types.ModerationCase) error
	GetCase(ctx context.Context, id int64) (*types.ModerationCase, error)
	GetCaseByNumber(ctx context.Context, guildID uint64, number int64) (*types.ModerationCase, error)
	GetGuildCases(
		ctx context.Context, guildID uint64, cursor *types.CaseCursor, limit int,
	) ([]*types.ModerationCase, *types.CaseCursor, error)
	GetExpiredCases(ctx context.Context, now time.Time, batchSize int) ([]*types.ModerationCase, error)
	MarkLifted(ctx context.Context, id int64, liftedAt time.Time) (bool, error)
	GetModeratorStats(ctx context.Context, guildID uint64, start, end time.Time) ([]*types.ModeratorStats, error)
}

// CaseParams holds everything needed to open a new moderation case.
type CaseParams struct {
	GuildID         uint64
	UserID          uint64
	ModeratorID     uint64
	Type            enum.CaseType
	Reason          string
	Duration        time.Duration // Zero for permanent actions
	FlagID          *uuid.UUID    // Originating flagged event, if any
	MessageSnapshot string        // Truncated before storage
}

// CaseService owns the moderation case lifecycle: creation with gapless
// per-guild numbering, expiration queries for the sweep, and reporting.
type CaseService struct {
	store  CaseStore
	logger *zap.Logger
}

// NewCase creates a new moderation case lifecycle service.
func NewCase(store CaseStore, logger *zap.Logger) *CaseService {
	return &CaseService{
		store:  store,
		logger: logger.Named("case_service"),
	}
}

// CreateCase opens a new case, allocating the guild's next case number.
// Temporary action types require a positive duration, which sets ExpiresAt.
func (s *CaseService) CreateCase(ctx context.Context, params CaseParams) (*types.ModerationCase, error) {
	if params.Duration < 0 {
		return nil, types.ErrInvalidDuration
	}

	now := time.Now()

	modCase := &types.ModerationCase{
		GuildID:         params.GuildID,
		UserID:          params.UserID,
		ModeratorID:     params.ModeratorID,
		Type:            params.Type,
		Reason:          params.Reason,
		MessageSnapshot: truncateSnapshot(params.MessageSnapshot),
		FlagID:          params.FlagID,
		CreatedAt:       now,
	}

	if params.Duration > 0 {
		if !params.Type.IsTemporary() {
			return nil, fmt.Errorf("%w: %s cases cannot carry a duration",
				types.ErrInvalidDuration, params.Type)
		}

		expiresAt := now.Add(params.Duration)
		modCase.ExpiresAt = &expiresAt
	}

	if err := s.store.CreateCase(ctx, modCase); err != nil {
		return nil, fmt.Errorf("failed to create case: %w (guildID=%d)", err, params.GuildID)
	}

	s.logger.Info("Opened moderation case",
		zap.Uint64("guildID", modCase.GuildID),
		zap.Int64("caseNumber", modCase.CaseNumber),
		zap.String("type", modCase.Type.String()),
		zap.Uint64("userID", modCase.UserID))

	return modCase, nil
}

// GetCase retrieves a case by its internal ID.
func (s *CaseService) GetCase(ctx context.Context, id int64) (*types.ModerationCase, error) {
	return s.store.GetCase(ctx, id)
}

// GetCaseByNumber retrieves a case by its guild-scoped number.
func (s *CaseService) GetCaseByNumber(ctx context.Context, guildID uint64, number int64) (*types.ModerationCase, error) {
	return s.store.GetCaseByNumber(ctx, guildID, number)
}

// GetGuildCases lists a guild's cases with cursor pagination.
func (s *CaseService) GetGuildCases(
	ctx context.Context, guildID uint64, cursor *types.CaseCursor, limit int,
) ([]*types.ModerationCase, *types.CaseCursor, error) {
	return s.store.GetGuildCases(ctx, guildID, cursor, limit)
}

// GetExpiredTemporaryActions returns temporary cases whose restriction has
// run out and has not yet been lifted, capped at batchSize.
func (s *CaseService) GetExpiredTemporaryActions(ctx context.Context, batchSize int) ([]*types.ModerationCase, error) {
	cases, err := s.store.GetExpiredCases(ctx, time.Now(), batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired temporary actions: %w", err)
	}

	return cases, nil
}

// MarkLifted records that a case's restriction was removed on the platform.
// Lifting an already-lifted case is a no-op, keeping the sweep idempotent.
func (s *CaseService) MarkLifted(ctx context.Context, id int64) error {
	lifted, err := s.store.MarkLifted(ctx, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark case lifted: %w (id=%d)", err, id)
	}

	if !lifted {
		s.logger.Debug("Case already lifted", zap.Int64("id", id))
		return nil
	}

	s.logger.Info("Lifted expired case", zap.Int64("id", id))

	return nil
}

// GetModeratorStats aggregates case counts per moderator for a guild over a
// date range. Read-only.
func (s *CaseService) GetModeratorStats(
	ctx context.Context, guildID uint64, start, end time.Time,
) ([]*types.ModeratorStats, error) {
	return s.store.GetModeratorStats(ctx, guildID, start, end)
}

func truncateSnapshot(snapshot string) string {
	if len(snapshot) <= types.MessageSnapshotLimit {
		return snapshot
	}

	return snapshot[:types.MessageSnapshotLimit]
}
