package automod

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// matchHashLen is how many hex characters of the match digest land in
// evidence.
const matchHashLen = 12

// guildPatterns is a guild's compiled blocklist.
type guildPatterns struct {
	terms    []string // lowercased blocked terms
	patterns []*regexp.Regexp
}

// ContentFilter matches message content against per-guild blocklists.
// Compiled pattern sets are cached until invalidated; evidence stores a
// hash of the matched text rather than the term itself, so banned phrases
// never round-trip into logs.
type ContentFilter struct {
	cache    *GuildConfigCache
	mu       sync.RWMutex
	compiled map[uint64]*guildPatterns
	logger   *zap.Logger
}

// NewContentFilter creates a new content filter.
func NewContentFilter(cache *GuildConfigCache, logger *zap.Logger) *ContentFilter {
	return &ContentFilter{
		cache:    cache,
		compiled: make(map[uint64]*guildPatterns),
		logger:   logger.Named("content_filter"),
	}
}

// AnalyzeMessage matches message content against the guild's blocklist.
// The first match wins. Returns nil when nothing matches or the guild has
// no blocklist.
func (f *ContentFilter) AnalyzeMessage(
	ctx context.Context, guildID uint64, content string, userID, channelID, messageID uint64,
) *DetectionResult {
	patterns := f.patternsFor(ctx, guildID)
	if patterns == nil || (len(patterns.terms) == 0 && len(patterns.patterns) == 0) {
		return nil
	}

	lower := strings.ToLower(content)

	for i, term := range patterns.terms {
		if strings.Contains(lower, term) {
			return f.verdict("term", i, term, messageID, userID)
		}
	}

	for i, re := range patterns.patterns {
		if match := re.FindString(content); match != "" {
			return f.verdict("pattern", i, match, messageID, userID)
		}
	}

	return nil
}

func (f *ContentFilter) verdict(kind string, index int, match string, messageID, userID uint64) *DetectionResult {
	f.logger.Debug("Blocked content matched",
		zap.String("kind", kind),
		zap.Int("index", index),
		zap.Uint64("userID", userID))

	return &DetectionResult{
		RuleType:    enum.RuleTypeContentFilter,
		Severity:    enum.SeverityHigh,
		Description: fmt.Sprintf("message matched blocked %s #%d", kind, index),
		Evidence: marshalEvidence(ContentEvidence{
			Kind:      kind,
			Index:     index,
			MatchHash: redactMatch(match),
			MessageID: messageID,
		}, f.logger),
	}
}

// LoadGuildFilters compiles and caches the guild's blocklist. Patterns
// that fail to compile are skipped and logged rather than disabling the
// rest of the list.
func (f *ContentFilter) LoadGuildFilters(ctx context.Context, guildID uint64) error {
	cfg := f.cache.ContentFilterConfig(ctx, guildID)

	compiled := &guildPatterns{
		terms: make([]string, 0, len(cfg.BlockedTerms)),
	}

	for _, term := range cfg.BlockedTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			compiled.terms = append(compiled.terms, term)
		}
	}

	for i, pattern := range cfg.BlockedPatterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			f.logger.Warn("Skipping invalid blocklist pattern",
				zap.Uint64("guildID", guildID),
				zap.Int("index", i),
				zap.Error(err))

			continue
		}

		compiled.patterns = append(compiled.patterns, re)
	}

	f.mu.Lock()
	f.compiled[guildID] = compiled
	f.mu.Unlock()

	f.logger.Debug("Loaded guild filters",
		zap.Uint64("guildID", guildID),
		zap.Int("terms", len(compiled.terms)),
		zap.Int("patterns", len(compiled.patterns)))

	return nil
}

// InvalidateCache drops a guild's compiled blocklist so the next message
// recompiles it. Configuration services call this after blocklist updates.
func (f *ContentFilter) InvalidateCache(guildID uint64) {
	f.mu.Lock()
	delete(f.compiled, guildID)
	f.mu.Unlock()
}

// patternsFor returns the guild's compiled blocklist, compiling it on
// first use.
func (f *ContentFilter) patternsFor(ctx context.Context, guildID uint64) *guildPatterns {
	f.mu.RLock()
	compiled, ok := f.compiled[guildID]
	f.mu.RUnlock()

	if ok {
		return compiled
	}

	if err := f.LoadGuildFilters(ctx, guildID); err != nil {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.compiled[guildID]
}

// redactMatch hashes matched text for evidence. The prefix is enough to
// correlate matches without storing the banned term.
func redactMatch(match string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(match)))

	return hex.EncodeToString(sum[:])[:matchHashLen]
}
