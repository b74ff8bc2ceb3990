package automod

import (
	"context"

	"github.com/wardenhq/warden/internal/database/types"
	"go.uber.org/zap"
)

// AuditSink receives notifications when detection produces a flagged
// event. Notification is fire-and-forget from the coordinator's
// perspective; implementations must not block detection.
type AuditSink interface {
	EventFlagged(ctx context.Context, flag *types.FlaggedEvent)
}

// LogAuditSink is the default audit sink. It writes flagged events to the
// application log.
type LogAuditSink struct {
	logger *zap.Logger
}

// NewLogAuditSink creates an audit sink backed by the application log.
func NewLogAuditSink(logger *zap.Logger) *LogAuditSink {
	return &LogAuditSink{logger: logger.Named("audit")}
}

// EventFlagged logs the flagged event.
func (s *LogAuditSink) EventFlagged(_ context.Context, flag *types.FlaggedEvent) {
	s.logger.Info("Event flagged",
		zap.String("id", flag.ID.String()),
		zap.Uint64("guildID", flag.GuildID),
		zap.Uint64("userID", flag.UserID),
		zap.String("ruleType", flag.RuleType.String()),
		zap.String("severity", flag.Severity.String()),
		zap.String("description", flag.Description))
}
