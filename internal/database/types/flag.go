package types

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/database/types/enum"
)

var (
	ErrFlagNotFound = errors.New("flagged event not found")
	ErrNoFlagsFound = errors.New("no flagged events found")
)

// FlaggedEvent is a detector verdict persisted for moderator review.
// Only the status, reviewer and action fields ever change after creation,
// and only through the allowed one-way transitions.
type FlaggedEvent struct {
	ID          uuid.UUID       `bun:",pk,type:uuid"` // Unique identifier
	GuildID     uint64          `bun:",notnull"`      // Guild the event occurred in
	UserID      uint64          `bun:",notnull"`      // User that triggered the detection
	ChannelID   uint64          `bun:",nullzero"`     // Channel of the offending message (0 for join events)
	RuleType    enum.RuleType   `bun:",notnull"`      // Which detector produced the verdict
	Severity    enum.Severity   `bun:",notnull"`      // Verdict severity
	Description string          `bun:",notnull"`      // Human-readable summary
	Evidence    json.RawMessage `bun:",type:jsonb"`   // Structured evidence snapshot
	Status      enum.FlagStatus `bun:",notnull"`      // Review lifecycle state
	ActionTaken string          `bun:",nullzero"`     // Description of the action, set on Actioned
	ReviewerID  uint64          `bun:",nullzero"`     // Moderator who handled the event
	CreatedAt   time.Time       `bun:",notnull"`      // When the verdict was recorded
	ReviewedAt  *time.Time      `bun:",nullzero"`     // When the event left Pending
}

// IsPending reports whether the event is still awaiting review.
func (f *FlaggedEvent) IsPending() bool {
	return f.Status == enum.FlagStatusPending
}

// IsTerminal reports whether the event can no longer transition.
func (f *FlaggedEvent) IsTerminal() bool {
	return f.Status == enum.FlagStatusDismissed || f.Status == enum.FlagStatusActioned
}

// FlagFilter narrows pending-event queries. Zero values match everything.
type FlagFilter struct {
	RuleType *enum.RuleType
	Severity *enum.Severity
	UserID   uint64
}

// FlagCursor marks a position in the flagged-event listing for pagination.
type FlagCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}
