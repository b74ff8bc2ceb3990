package automod_test

import (
	"context"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/internal/automod"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

func newContentFilter(blocklist *types.ContentConfig) (*automod.ContentFilter, *stubConfigStore) {
	store := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {GuildID: 1, Mode: enum.ConfigModeStandard, ContentFilter: blocklist},
	}}

	return automod.NewContentFilter(newTestCache(store), zap.NewNop()), store
}

func TestContentFilter_TermMatch(t *testing.T) {
	t.Parallel()

	filter, _ := newContentFilter(&types.ContentConfig{
		BlockedTerms: []string{"forbidden phrase"},
	})

	result := filter.AnalyzeMessage(context.Background(), 1, "this has a FORBIDDEN phrase inside", 100, 10, 1000)
	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeContentFilter, result.RuleType)
	assert.Equal(t, enum.SeverityHigh, result.Severity)

	var evidence automod.ContentEvidence
	require.NoError(t, sonic.Unmarshal(result.Evidence, &evidence))
	assert.Equal(t, "term", evidence.Kind)
	assert.Equal(t, 0, evidence.Index)
	assert.Equal(t, uint64(1000), evidence.MessageID)

	assert.Nil(t, filter.AnalyzeMessage(context.Background(), 1, "a clean message", 100, 10, 1001))
}

func TestContentFilter_PatternMatch(t *testing.T) {
	t.Parallel()

	filter, _ := newContentFilter(&types.ContentConfig{
		BlockedPatterns: []string{`discord\.gg/\w+`},
	})

	result := filter.AnalyzeMessage(context.Background(), 1, "join Discord.GG/raidserver now", 100, 10, 1000)
	require.NotNil(t, result)

	var evidence automod.ContentEvidence
	require.NoError(t, sonic.Unmarshal(result.Evidence, &evidence))
	assert.Equal(t, "pattern", evidence.Kind)
}

func TestContentFilter_EvidenceIsRedacted(t *testing.T) {
	t.Parallel()

	filter, _ := newContentFilter(&types.ContentConfig{
		BlockedTerms: []string{"supersecretslur"},
	})

	result := filter.AnalyzeMessage(context.Background(), 1, "xx supersecretslur xx", 100, 10, 1000)
	require.NotNil(t, result)

	// Neither the verdict nor its evidence carries the blocked term
	assert.NotContains(t, result.Description, "supersecretslur")
	assert.NotContains(t, string(result.Evidence), "supersecretslur")

	var evidence automod.ContentEvidence
	require.NoError(t, sonic.Unmarshal(result.Evidence, &evidence))
	assert.Len(t, evidence.MatchHash, 12)
}

func TestContentFilter_InvalidPatternSkipped(t *testing.T) {
	t.Parallel()

	filter, _ := newContentFilter(&types.ContentConfig{
		BlockedPatterns: []string{`[unclosed`, `valid\d+`},
	})

	// The broken pattern is dropped without disabling the valid one
	result := filter.AnalyzeMessage(context.Background(), 1, "valid123", 100, 10, 1000)
	require.NotNil(t, result)

	var evidence automod.ContentEvidence
	require.NoError(t, sonic.Unmarshal(result.Evidence, &evidence))
	assert.Equal(t, "pattern", evidence.Kind)
	assert.Equal(t, 0, evidence.Index, "index counts compiled patterns")
}

func TestContentFilter_NoBlocklist(t *testing.T) {
	t.Parallel()

	filter := automod.NewContentFilter(newTestCache(&stubConfigStore{}), zap.NewNop())

	assert.Nil(t, filter.AnalyzeMessage(context.Background(), 1, "anything at all", 100, 10, 1000))
}

func TestContentFilter_InvalidateCache(t *testing.T) {
	t.Parallel()

	store := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {GuildID: 1, Mode: enum.ConfigModeStandard, ContentFilter: &types.ContentConfig{}},
	}}
	cache := newTestCache(store)
	filter := automod.NewContentFilter(cache, zap.NewNop())

	assert.Nil(t, filter.AnalyzeMessage(context.Background(), 1, "now banned words", 100, 10, 1000))

	// Guild adds a blocked term; both cache layers are invalidated
	store.mu.Lock()
	store.configs[1] = &types.GuildModerationConfig{
		GuildID:       1,
		Mode:          enum.ConfigModeStandard,
		ContentFilter: &types.ContentConfig{BlockedTerms: []string{"banned words"}},
	}
	store.mu.Unlock()

	cache.Invalidate(1)
	filter.InvalidateCache(1)

	result := filter.AnalyzeMessage(context.Background(), 1, "now banned words", 100, 10, 1001)
	assert.NotNil(t, result)
}
