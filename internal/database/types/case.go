package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/internal/database/types/enum"
)

var (
	ErrCaseNotFound    = errors.New("moderation case not found")
	ErrInvalidDuration = errors.New("case duration must be positive for temporary actions")
)

// MessageSnapshotLimit caps how much of the offending message is copied
// onto a case record.
const MessageSnapshotLimit = 512

// ModerationCase is a durable record of a moderation action. The record is
// immutable history except for LiftedAt, which the expiration sweep sets
// exactly once.
type ModerationCase struct {
	ID              int64         `bun:",pk,autoincrement"`   // Unique numeric identifier
	GuildID         uint64        `bun:",notnull"`            // Guild the case belongs to
	CaseNumber      int64         `bun:",notnull"`            // Guild-scoped sequential number, gapless
	UserID          uint64        `bun:",notnull"`            // Target of the action
	ModeratorID     uint64        `bun:",notnull"`            // Moderator who issued the action
	Type            enum.CaseType `bun:",notnull"`            // Kind of action
	Reason          string        `bun:",nullzero"`           // Optional reason
	MessageSnapshot string        `bun:",nullzero"`           // Truncated copy of the offending message
	FlagID          *uuid.UUID    `bun:",nullzero,type:uuid"` // Originating flagged event, if any
	CreatedAt       time.Time     `bun:",notnull"`            // When the case was opened
	ExpiresAt       *time.Time    `bun:",nullzero"`           // When a temporary action ends (null for permanent)
	LiftedAt        *time.Time    `bun:",nullzero"`           // When the sweep lifted the restriction
}

// IsTemporary reports whether the case carries an expiry the sweep must honor.
func (c *ModerationCase) IsTemporary() bool {
	return c.ExpiresAt != nil
}

// IsExpired reports whether a temporary case's restriction has run out.
func (c *ModerationCase) IsExpired() bool {
	return c.ExpiresAt != nil && time.Now().After(*c.ExpiresAt)
}

// IsLifted reports whether the sweep has already processed the case.
func (c *ModerationCase) IsLifted() bool {
	return c.LiftedAt != nil
}

// CaseSequence backs the atomic per-guild case number allocation.
// The row is incremented inside the same transaction that inserts the case,
// so a failed insert rolls the reservation back and numbers stay gapless.
type CaseSequence struct {
	GuildID    uint64 `bun:",pk"`
	NextNumber int64  `bun:",notnull"`
}

// CaseCursor marks a position in a guild's case listing for pagination.
type CaseCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ModeratorStats aggregates a moderator's case counts over a date range.
type ModeratorStats struct {
	ModeratorID uint64
	Warns       int
	Kicks       int
	Bans        int
	Mutes       int
	Notes       int
	Total       int
}

// Add records cases of the given type.
func (s *ModeratorStats) Add(caseType enum.CaseType, count int) {
	switch caseType {
	case enum.CaseTypeWarn:
		s.Warns += count
	case enum.CaseTypeKick:
		s.Kicks += count
	case enum.CaseTypeBan:
		s.Bans += count
	case enum.CaseTypeMute:
		s.Mutes += count
	case enum.CaseTypeNote:
		s.Notes += count
	}

	s.Total += count
}
