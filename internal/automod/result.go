package automod

import (
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// DetectionResult is a single detector's verdict for one inbound event.
// Results are immutable once returned.
type DetectionResult struct {
	RuleType    enum.RuleType
	Severity    enum.Severity
	Description string
	Evidence    json.RawMessage
}

// SpamEvidence is the structured snapshot attached to spam verdicts.
type SpamEvidence struct {
	MessageCount   int      `json:"messageCount"`
	DuplicateCount int      `json:"duplicateCount,omitempty"`
	WindowSeconds  int      `json:"windowSeconds"`
	MessageIDs     []uint64 `json:"messageIds,omitempty"`
	NewAccount     bool     `json:"newAccount,omitempty"`
	Duplicate      bool     `json:"duplicate,omitempty"`
}

// RaidEvidence is the structured snapshot attached to raid verdicts.
type RaidEvidence struct {
	JoinCount       int     `json:"joinCount"`
	NewAccountCount int     `json:"newAccountCount"`
	NewAccountRatio float64 `json:"newAccountRatio"`
	WindowSeconds   int     `json:"windowSeconds"`
	LockdownAdvised bool    `json:"lockdownAdvised"`
}

// ContentEvidence is the structured snapshot attached to content filter
// verdicts. It carries the pattern index and a hash prefix of the matched
// text instead of the raw term, so prohibited content is never re-published
// through logs or the review surface.
type ContentEvidence struct {
	Kind      string `json:"kind"` // "term" or "pattern"
	Index     int    `json:"index"`
	MatchHash string `json:"matchHash"`
	MessageID uint64 `json:"messageId,omitempty"`
}

// marshalEvidence serializes an evidence snapshot. Serialization failures
// are logged and produce a verdict without evidence rather than no verdict.
func marshalEvidence(v any, logger *zap.Logger) json.RawMessage {
	data, err := sonic.Marshal(v)
	if err != nil {
		logger.Warn("Failed to marshal detection evidence", zap.Error(err))
		return nil
	}

	return data
}

// bestResult picks the highest-severity verdict, preferring earlier
// detectors on ties.
func bestResult(results []*DetectionResult) *DetectionResult {
	var best *DetectionResult

	for _, result := range results {
		if result == nil {
			continue
		}

		if best == nil || result.Severity > best.Severity {
			best = result
		}
	}

	return best
}
