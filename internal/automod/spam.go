package automod

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// SpamDetector tracks per-user message rate and duplicate-content rate in
// rolling windows and produces spam verdicts. State is keyed by
// (guild, user); different keys never serialize on each other.
type SpamDetector struct {
	cache    *GuildConfigCache
	messages *keyedWindows[userKey]
	logger   *zap.Logger
}

// NewSpamDetector creates a new spam detector.
func NewSpamDetector(cache *GuildConfigCache, logger *zap.Logger) *SpamDetector {
	return &SpamDetector{
		cache:    cache,
		messages: newKeyedWindows[userKey](),
		logger:   logger.Named("spam_detector"),
	}
}

// AnalyzeMessage records a message and returns a verdict when the user's
// in-window message count or duplicate-content count exceeds the guild's
// thresholds. Accounts younger than the configured minimum raise the
// verdict's severity one level. At most one verdict is returned per call,
// rate before duplicates.
func (d *SpamDetector) AnalyzeMessage(
	ctx context.Context, guildID, userID, channelID uint64,
	content string, messageID uint64, accountCreatedAt time.Time,
) *DetectionResult {
	cfg := d.cache.SpamConfig(ctx, guildID)

	now := time.Now()
	cutoff := now.Add(-cfg.Window())
	entry := windowEntry{timestamp: now, hash: hashContent(content), id: messageID}

	log := d.messages.get(userKey{guildID: guildID, userID: userID})
	total, duplicates, ids := log.recordAndCount(entry, cutoff)

	newAccount := !accountCreatedAt.IsZero() && now.Sub(accountCreatedAt) < cfg.MinAccountAge()

	if total > cfg.MessageThreshold {
		severity := enum.SeverityHigh
		if newAccount {
			severity = severity.Raise()
		}

		d.logger.Debug("Message rate exceeded",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Int("count", total))

		return &DetectionResult{
			RuleType: enum.RuleTypeSpam,
			Severity: severity,
			Description: fmt.Sprintf("%d messages in %ds (limit %d)",
				total, cfg.WindowSeconds, cfg.MessageThreshold),
			Evidence: marshalEvidence(SpamEvidence{
				MessageCount:  total,
				WindowSeconds: cfg.WindowSeconds,
				MessageIDs:    ids,
				NewAccount:    newAccount,
			}, d.logger),
		}
	}

	if duplicates > cfg.DuplicateThreshold {
		severity := enum.SeverityMedium
		if newAccount {
			severity = severity.Raise()
		}

		d.logger.Debug("Duplicate content exceeded",
			zap.Uint64("guildID", guildID),
			zap.Uint64("userID", userID),
			zap.Int("duplicates", duplicates))

		return &DetectionResult{
			RuleType: enum.RuleTypeSpam,
			Severity: severity,
			Description: fmt.Sprintf("repeated content %d times in %ds (limit %d)",
				duplicates, cfg.WindowSeconds, cfg.DuplicateThreshold),
			Evidence: marshalEvidence(SpamEvidence{
				MessageCount:   total,
				DuplicateCount: duplicates,
				WindowSeconds:  cfg.WindowSeconds,
				MessageIDs:     ids,
				NewAccount:     newAccount,
				Duplicate:      true,
			}, d.logger),
		}
	}

	return nil
}

// RecordMessage appends a message to the user's rolling logs without
// running detection.
func (d *SpamDetector) RecordMessage(ctx context.Context, guildID, userID uint64, content string, messageID uint64) {
	cfg := d.cache.SpamConfig(ctx, guildID)

	now := time.Now()
	log := d.messages.get(userKey{guildID: guildID, userID: userID})
	log.record(windowEntry{timestamp: now, hash: hashContent(content), id: messageID}, now.Add(-cfg.Window()))
}

// GetMessageCount returns the user's current in-window message count.
func (d *SpamDetector) GetMessageCount(ctx context.Context, guildID, userID uint64) int {
	cfg := d.cache.SpamConfig(ctx, guildID)
	log := d.messages.get(userKey{guildID: guildID, userID: userID})

	return log.countSince(time.Now().Add(-cfg.Window()))
}

// GetDuplicateCount returns how many in-window messages match the given
// content.
func (d *SpamDetector) GetDuplicateCount(ctx context.Context, guildID, userID uint64, content string) int {
	cfg := d.cache.SpamConfig(ctx, guildID)
	log := d.messages.get(userKey{guildID: guildID, userID: userID})

	return log.countHashSince(hashContent(content), time.Now().Add(-cfg.Window()))
}

// hashContent normalizes and hashes message content for duplicate
// detection. Case and surrounding whitespace differences collapse to the
// same hash.
func hashContent(content string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(content))))

	return h.Sum64()
}
