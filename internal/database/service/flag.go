package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// FlagStore is the persistence surface the flagged-event lifecycle needs.
// The bun-backed FlagModel implements it; tests use an in-memory store.
type FlagStore interface {
	CreateFlag(ctx context.Context, flag *types.FlaggedEvent) error
	GetFlag(ctx context.Context, id uuid.UUID) (*types.FlaggedEvent, error)
	GetPendingFlags(
		ctx context.Context, guildID uint64, filter types.FlagFilter, cursor *types.FlagCursor, limit int,
	) ([]*types.FlaggedEvent, *types.FlagCursor, error)
	UpdateFlagStatus(
		ctx context.Context, id uuid.UUID, allowed []enum.FlagStatus,
		to enum.FlagStatus, reviewerID uint64, actionTaken string,
	) (bool, error)
}

// FlagService owns the flagged-event lifecycle: creation and the one-way
// status transitions Pending -> Acknowledged/Dismissed/Actioned.
type FlagService struct {
	store  FlagStore
	logger *zap.Logger
}

// NewFlag creates a new flagged event lifecycle service.
func NewFlag(store FlagStore, logger *zap.Logger) *FlagService {
	return &FlagService{
		store:  store,
		logger: logger.Named("flag_service"),
	}
}

// CreateEvent persists a new flagged event in Pending status and returns it.
func (s *FlagService) CreateEvent(
	ctx context.Context, guildID, userID, channelID uint64,
	ruleType enum.RuleType, severity enum.Severity, description string, evidence json.RawMessage,
) (*types.FlaggedEvent, error) {
	flag := &types.FlaggedEvent{
		ID:          uuid.New(),
		GuildID:     guildID,
		UserID:      userID,
		ChannelID:   channelID,
		RuleType:    ruleType,
		Severity:    severity,
		Description: description,
		Evidence:    evidence,
		Status:      enum.FlagStatusPending,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateFlag(ctx, flag); err != nil {
		return nil, fmt.Errorf("failed to create flagged event: %w", err)
	}

	return flag, nil
}

// GetEvent retrieves a flagged event by ID.
func (s *FlagService) GetEvent(ctx context.Context, id uuid.UUID) (*types.FlaggedEvent, error) {
	return s.store.GetFlag(ctx, id)
}

// GetPendingEvents lists a guild's pending events with cursor pagination,
// optionally filtered by rule type, severity or user.
func (s *FlagService) GetPendingEvents(
	ctx context.Context, guildID uint64, filter types.FlagFilter, cursor *types.FlagCursor, limit int,
) ([]*types.FlaggedEvent, *types.FlagCursor, error) {
	flags, nextCursor, err := s.store.GetPendingFlags(ctx, guildID, filter, cursor, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pending events: %w (guildID=%d)", err, guildID)
	}

	return flags, nextCursor, nil
}

// AcknowledgeEvent marks a pending event as seen by a moderator. Returns
// ErrFlagNotFound when the event does not exist or already left Pending, so
// retries are safe no-ops.
func (s *FlagService) AcknowledgeEvent(ctx context.Context, id uuid.UUID, reviewerID uint64) error {
	return s.transition(ctx, id, reviewerID,
		[]enum.FlagStatus{enum.FlagStatusPending}, enum.FlagStatusAcknowledged, "")
}

// DismissEvent marks a pending event as requiring no action. Terminal.
func (s *FlagService) DismissEvent(ctx context.Context, id uuid.UUID, reviewerID uint64) error {
	return s.transition(ctx, id, reviewerID,
		[]enum.FlagStatus{enum.FlagStatusPending}, enum.FlagStatusDismissed, "")
}

// TakeAction records that a moderation action was taken for the event.
// Allowed from Pending or Acknowledged; terminal.
func (s *FlagService) TakeAction(ctx context.Context, id uuid.UUID, reviewerID uint64, actionTaken string) error {
	return s.transition(ctx, id, reviewerID,
		[]enum.FlagStatus{enum.FlagStatusPending, enum.FlagStatusAcknowledged},
		enum.FlagStatusActioned, actionTaken)
}

func (s *FlagService) transition(
	ctx context.Context, id uuid.UUID, reviewerID uint64,
	allowed []enum.FlagStatus, to enum.FlagStatus, actionTaken string,
) error {
	ok, err := s.store.UpdateFlagStatus(ctx, id, allowed, to, reviewerID, actionTaken)
	if err != nil {
		return fmt.Errorf("failed to transition flagged event: %w (id=%s, to=%s)", err, id, to)
	}

	if !ok {
		// Wrong-state transitions surface as not found so callers can
		// retry without special-casing races between moderators.
		return types.ErrFlagNotFound
	}

	s.logger.Debug("Flagged event transitioned",
		zap.String("id", id.String()),
		zap.String("status", to.String()),
		zap.Uint64("reviewerID", reviewerID))

	return nil
}
