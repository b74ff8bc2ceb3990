package automod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// newAccountMarker tags join-log entries from accounts younger than the
// configured minimum age.
const newAccountMarker = uint64(1)

// RaidDetector tracks per-guild join velocity and the ratio of new accounts
// among recent joins. It also owns per-guild lockdown state; lockdowns are
// recommended by verdicts but only ever triggered explicitly.
type RaidDetector struct {
	cache     *GuildConfigCache
	joins     *keyedWindows[uint64]
	mu        sync.RWMutex
	lockdowns map[uint64]time.Time
	logger    *zap.Logger
}

// NewRaidDetector creates a new raid detector.
func NewRaidDetector(cache *GuildConfigCache, logger *zap.Logger) *RaidDetector {
	return &RaidDetector{
		cache:     cache,
		joins:     newKeyedWindows[uint64](),
		lockdowns: make(map[uint64]time.Time),
		logger:    logger.Named("raid_detector"),
	}
}

// AnalyzeJoin records a member join and returns a Critical raid verdict
// when both the join count and the new-account ratio exceed the guild's
// thresholds. The verdict advises a lockdown; triggering one remains an
// explicit operation.
func (d *RaidDetector) AnalyzeJoin(
	ctx context.Context, guildID, userID uint64, accountCreatedAt time.Time,
) *DetectionResult {
	cfg := d.cache.RaidConfig(ctx, guildID)

	now := time.Now()
	cutoff := now.Add(-cfg.Window())

	var marker uint64
	if !accountCreatedAt.IsZero() && now.Sub(accountCreatedAt) < cfg.NewAccountAge() {
		marker = newAccountMarker
	}

	log := d.joins.get(guildID)
	total, _, _ := log.recordAndCount(windowEntry{timestamp: now, hash: marker, id: userID}, cutoff)

	if total <= cfg.JoinThreshold {
		return nil
	}

	// recordAndCount tallies matches of the current entry's marker, which
	// is only the new-account count when this join itself is new. Count
	// explicitly so old-account joins during a raid still see the ratio.
	newCount := log.countHashSince(newAccountMarker, cutoff)

	ratio := float64(newCount) / float64(total)
	if ratio < cfg.NewAccountFraction {
		return nil
	}

	d.logger.Warn("Raid conditions met",
		zap.Uint64("guildID", guildID),
		zap.Int("joins", total),
		zap.Float64("newAccountRatio", ratio))

	return &DetectionResult{
		RuleType: enum.RuleTypeRaid,
		Severity: enum.SeverityCritical,
		Description: fmt.Sprintf("%d joins in %ds with %.0f%% new accounts",
			total, cfg.WindowSeconds, ratio*100),
		Evidence: marshalEvidence(RaidEvidence{
			JoinCount:       total,
			NewAccountCount: newCount,
			NewAccountRatio: ratio,
			WindowSeconds:   cfg.WindowSeconds,
			LockdownAdvised: true,
		}, d.logger),
	}
}

// TriggerLockdown marks a guild as locked down. Returns false when the
// guild was already locked, making repeated triggers no-ops.
func (d *RaidDetector) TriggerLockdown(guildID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, locked := d.lockdowns[guildID]; locked {
		return false
	}

	d.lockdowns[guildID] = time.Now()
	d.logger.Info("Guild lockdown triggered", zap.Uint64("guildID", guildID))

	return true
}

// LiftLockdown clears a guild's lockdown. Returns false when the guild was
// not locked, making repeated lifts no-ops.
func (d *RaidDetector) LiftLockdown(guildID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, locked := d.lockdowns[guildID]; !locked {
		return false
	}

	delete(d.lockdowns, guildID)
	d.logger.Info("Guild lockdown lifted", zap.Uint64("guildID", guildID))

	return true
}

// IsLockedDown reports whether a guild is currently locked down.
func (d *RaidDetector) IsLockedDown(guildID uint64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, locked := d.lockdowns[guildID]

	return locked
}
