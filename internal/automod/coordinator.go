package automod

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/panics"
	"github.com/wardenhq/warden/internal/database/service"
	"github.com/wardenhq/warden/internal/database/types"
	"go.uber.org/zap"
)

// MessageEvent is an inbound chat message to analyze.
type MessageEvent struct {
	GuildID          uint64
	UserID           uint64
	ChannelID        uint64
	MessageID        uint64
	Content          string
	AccountCreatedAt time.Time
}

// JoinEvent is an inbound member-join to analyze.
type JoinEvent struct {
	GuildID          uint64
	UserID           uint64
	AccountCreatedAt time.Time
}

// Coordinator is the sole detection entry point for external callers. It
// runs the detectors in order with per-detector fault isolation, keeps the
// highest-severity verdict and persists it as a flagged event. A fault in
// one detector never stops the others and never fails the caller's message
// pipeline.
type Coordinator struct {
	spam    *SpamDetector
	raid    *RaidDetector
	content *ContentFilter
	flags   *service.FlagService
	audit   AuditSink
	logger  *zap.Logger
}

// NewCoordinator creates a new detection coordinator.
func NewCoordinator(
	spam *SpamDetector, raid *RaidDetector, content *ContentFilter,
	flags *service.FlagService, audit AuditSink, logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		spam:    spam,
		raid:    raid,
		content: content,
		flags:   flags,
		audit:   audit,
		logger:  logger.Named("detection_coordinator"),
	}
}

// AnalyzeMessage runs the content filter and spam detector against a
// message, persists the winning verdict as a flagged event and returns it.
// Returns nil when no detector objects to the message.
func (c *Coordinator) AnalyzeMessage(ctx context.Context, event MessageEvent) (*DetectionResult, error) {
	results := []*DetectionResult{
		c.runDetector("content_filter", func() *DetectionResult {
			return c.content.AnalyzeMessage(ctx, event.GuildID, event.Content,
				event.UserID, event.ChannelID, event.MessageID)
		}),
		c.runDetector("spam", func() *DetectionResult {
			return c.spam.AnalyzeMessage(ctx, event.GuildID, event.UserID, event.ChannelID,
				event.Content, event.MessageID, event.AccountCreatedAt)
		}),
	}

	return c.persist(ctx, event.GuildID, event.UserID, event.ChannelID, bestResult(results))
}

// AnalyzeJoin runs the raid detector against a member join, persists any
// verdict as a flagged event and returns it. A raid verdict advises a
// lockdown; acting on that advice is left to the caller.
func (c *Coordinator) AnalyzeJoin(ctx context.Context, event JoinEvent) (*DetectionResult, error) {
	result := c.runDetector("raid", func() *DetectionResult {
		return c.raid.AnalyzeJoin(ctx, event.GuildID, event.UserID, event.AccountCreatedAt)
	})

	return c.persist(ctx, event.GuildID, event.UserID, 0, result)
}

// runDetector executes one detector with panic isolation. A faulting
// detector yields no verdict instead of taking down the pipeline.
func (c *Coordinator) runDetector(name string, fn func() *DetectionResult) *DetectionResult {
	var result *DetectionResult

	recovered := panics.Try(func() {
		result = fn()
	})
	if recovered != nil {
		c.logger.Error("Detector fault isolated",
			zap.String("detector", name),
			zap.Any("panic", recovered.Value),
			zap.String("stack", string(recovered.Stack)))

		return nil
	}

	return result
}

// persist records the winning verdict as a flagged event. Cancellation is
// honored before the write; detection itself is in-memory and has already
// completed.
func (c *Coordinator) persist(
	ctx context.Context, guildID, userID, channelID uint64, result *DetectionResult,
) (*DetectionResult, error) {
	if result == nil {
		return nil, nil
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("detection canceled before persistence: %w", err)
	}

	flag, err := c.flags.CreateEvent(ctx, guildID, userID, channelID,
		result.RuleType, result.Severity, result.Description, result.Evidence)
	if err != nil {
		// The verdict still reaches the caller; only the review record is lost
		c.logger.Error("Failed to persist flagged event",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Error(err))

		return result, err
	}

	c.notify(ctx, flag)

	return result, nil
}

func (c *Coordinator) notify(ctx context.Context, flag *types.FlaggedEvent) {
	if c.audit == nil {
		return
	}

	// Fire and forget; the sink must not slow down the message pipeline
	go c.audit.EventFlagged(context.WithoutCancel(ctx), flag)
}
