package automod_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/internal/automod"
	"github.com/wardenhq/warden/internal/database/service"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"github.com/wardenhq/warden/internal/setup/config"
	"go.uber.org/zap"
)

// memoryFlagStore is an in-memory FlagStore capturing created flags.
type memoryFlagStore struct {
	mu    sync.Mutex
	flags []*types.FlaggedEvent
}

func (s *memoryFlagStore) CreateFlag(_ context.Context, flag *types.FlaggedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags = append(s.flags, flag)

	return nil
}

func (s *memoryFlagStore) GetFlag(_ context.Context, id uuid.UUID) (*types.FlaggedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, flag := range s.flags {
		if flag.ID == id {
			return flag, nil
		}
	}

	return nil, types.ErrFlagNotFound
}

func (s *memoryFlagStore) GetPendingFlags(
	_ context.Context, guildID uint64, _ types.FlagFilter, _ *types.FlagCursor, _ int,
) ([]*types.FlaggedEvent, *types.FlagCursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []*types.FlaggedEvent

	for _, flag := range s.flags {
		if flag.GuildID == guildID && flag.Status == enum.FlagStatusPending {
			pending = append(pending, flag)
		}
	}

	return pending, nil, nil
}

func (s *memoryFlagStore) UpdateFlagStatus(
	_ context.Context, id uuid.UUID, allowed []enum.FlagStatus,
	to enum.FlagStatus, reviewerID uint64, actionTaken string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, flag := range s.flags {
		if flag.ID != id {
			continue
		}

		for _, status := range allowed {
			if flag.Status == status {
				now := time.Now()
				flag.Status = to
				flag.ReviewerID = reviewerID
				flag.ReviewedAt = &now

				if actionTaken != "" {
					flag.ActionTaken = actionTaken
				}

				return true, nil
			}
		}

		return false, nil
	}

	return false, nil
}

func (s *memoryFlagStore) all() []*types.FlaggedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*types.FlaggedEvent(nil), s.flags...)
}

// chanAuditSink delivers notifications to a channel for assertions.
type chanAuditSink struct {
	notified chan *types.FlaggedEvent
}

func (s *chanAuditSink) EventFlagged(_ context.Context, flag *types.FlaggedEvent) {
	s.notified <- flag
}

func newTestCoordinator(
	configStore *stubConfigStore, flagStore *memoryFlagStore, audit automod.AuditSink,
) *automod.Coordinator {
	logger := zap.NewNop()
	cache := automod.NewGuildConfigCache(configStore, time.Minute, time.Minute, logger)

	return automod.NewCoordinator(
		automod.NewSpamDetector(cache, logger),
		automod.NewRaidDetector(cache, logger),
		automod.NewContentFilter(cache, logger),
		service.NewFlag(flagStore, logger),
		audit,
		logger,
	)
}

func TestCoordinator_PersistsVerdict(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {
			GuildID:       1,
			Mode:          enum.ConfigModeStandard,
			ContentFilter: &types.ContentConfig{BlockedTerms: []string{"blocked"}},
		},
	}}
	flagStore := &memoryFlagStore{}
	coordinator := newTestCoordinator(configStore, flagStore, nil)

	result, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:          1,
		UserID:           100,
		ChannelID:        10,
		MessageID:        1000,
		Content:          "this is blocked content",
		AccountCreatedAt: time.Now().AddDate(-1, 0, 0),
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeContentFilter, result.RuleType)

	flags := flagStore.all()
	require.Len(t, flags, 1)
	assert.Equal(t, uint64(1), flags[0].GuildID)
	assert.Equal(t, uint64(100), flags[0].UserID)
	assert.Equal(t, enum.FlagStatusPending, flags[0].Status)
	assert.Equal(t, result.Description, flags[0].Description)
}

func TestCoordinator_CleanMessage(t *testing.T) {
	t.Parallel()

	flagStore := &memoryFlagStore{}
	coordinator := newTestCoordinator(&stubConfigStore{}, flagStore, nil)

	result, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:          1,
		UserID:           100,
		Content:          "hello there",
		MessageID:        1,
		AccountCreatedAt: time.Now().AddDate(-1, 0, 0),
	})
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, flagStore.all())
}

func TestCoordinator_HighestSeverityWins(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {
			GuildID:       1,
			Mode:          enum.ConfigModeStandard,
			ContentFilter: &types.ContentConfig{BlockedTerms: []string{"blocked"}},
		},
	}}
	flagStore := &memoryFlagStore{}
	coordinator := newTestCoordinator(configStore, flagStore, nil)

	// A brand-new account floods with messages that also match the
	// blocklist: spam escalates to Critical and outranks the content hit
	var result *automod.DetectionResult

	var err error

	for i := range uint64(9) {
		result, err = coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
			GuildID:          1,
			UserID:           100,
			MessageID:        i,
			Content:          fmt.Sprintf("blocked message %d", i),
			AccountCreatedAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)
	}

	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeSpam, result.RuleType)
	assert.Equal(t, enum.SeverityCritical, result.Severity)
}

func TestCoordinator_DetectorFaultIsolated(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()
	cache := automod.NewGuildConfigCache(&stubConfigStore{}, time.Minute, time.Minute, logger)
	flagStore := &memoryFlagStore{}

	// A nil content filter panics when invoked; the coordinator must
	// isolate the fault and still run the spam detector
	coordinator := automod.NewCoordinator(
		automod.NewSpamDetector(cache, logger),
		automod.NewRaidDetector(cache, logger),
		nil,
		service.NewFlag(flagStore, logger),
		nil,
		logger,
	)

	var result *automod.DetectionResult

	var err error

	for i := range uint64(9) {
		result, err = coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
			GuildID:          1,
			UserID:           100,
			MessageID:        i,
			Content:          fmt.Sprintf("message %d", i),
			AccountCreatedAt: time.Now().AddDate(-1, 0, 0),
		})
		require.NoError(t, err)
	}

	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeSpam, result.RuleType)
	assert.Len(t, flagStore.all(), 1)
}

func TestCoordinator_AnalyzeJoin(t *testing.T) {
	t.Parallel()

	flagStore := &memoryFlagStore{}
	coordinator := newTestCoordinator(&stubConfigStore{}, flagStore, nil)

	var result *automod.DetectionResult

	var err error

	for i := range uint64(13) {
		result, err = coordinator.AnalyzeJoin(context.Background(), automod.JoinEvent{
			GuildID:          1,
			UserID:           100 + i,
			AccountCreatedAt: time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)
	}

	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeRaid, result.RuleType)

	flags := flagStore.all()
	require.Len(t, flags, 1)
	assert.Equal(t, enum.RuleTypeRaid, flags[0].RuleType)
	assert.Equal(t, enum.SeverityCritical, flags[0].Severity)
}

func TestCoordinator_CanceledContextSkipsPersistence(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {
			GuildID:       1,
			Mode:          enum.ConfigModeStandard,
			ContentFilter: &types.ContentConfig{BlockedTerms: []string{"blocked"}},
		},
	}}
	flagStore := &memoryFlagStore{}
	coordinator := newTestCoordinator(configStore, flagStore, nil)

	// Warm the config cache so cancellation hits persistence, not loading
	_, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID: 1, UserID: 100, MessageID: 1, Content: "clean",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := coordinator.AnalyzeMessage(ctx, automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 2,
		Content:   "blocked content",
	})
	require.Error(t, err)
	assert.NotNil(t, result, "the verdict itself still reaches the caller")
	assert.Empty(t, flagStore.all())
}

func TestCoordinator_NotifiesAuditSink(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {
			GuildID:       1,
			Mode:          enum.ConfigModeStandard,
			ContentFilter: &types.ContentConfig{BlockedTerms: []string{"blocked"}},
		},
	}}
	sink := &chanAuditSink{notified: make(chan *types.FlaggedEvent, 1)}
	coordinator := newTestCoordinator(configStore, &memoryFlagStore{}, sink)

	_, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 1,
		Content:   "blocked content",
	})
	require.NoError(t, err)

	select {
	case flag := <-sink.notified:
		assert.Equal(t, enum.RuleTypeContentFilter, flag.RuleType)
	case <-time.After(2 * time.Second):
		t.Fatal("audit sink was not notified")
	}
}

func TestNew_WiresPipelineFromConfig(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {
			GuildID:       1,
			Mode:          enum.ConfigModeStandard,
			ContentFilter: &types.ContentConfig{BlockedTerms: []string{"blocked"}},
		},
	}}
	flagStore := &memoryFlagStore{}
	logger := zap.NewNop()

	coordinator := automod.New(
		&config.Automod{ConfigCacheTTL: 30, MissingConfigTTL: 5},
		configStore, service.NewFlag(flagStore, logger), nil, logger,
	)

	result, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 1,
		Content:   "blocked content",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, enum.RuleTypeContentFilter, result.RuleType)
	assert.Len(t, flagStore.all(), 1)

	// The configured TTL keeps the guild config cached across calls
	_, err = coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 2,
		Content:   "fine",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, configStore.callCount())
}

func TestNew_ZeroTTLsFallBackToDefaults(t *testing.T) {
	t.Parallel()

	configStore := &stubConfigStore{}
	coordinator := automod.New(
		&config.Automod{}, configStore,
		service.NewFlag(&memoryFlagStore{}, zap.NewNop()), nil, zap.NewNop(),
	)

	result, err := coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 1,
		Content:   "hello",
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	// A zero TTL would bypass the cache and hit the store every call
	_, err = coordinator.AnalyzeMessage(context.Background(), automod.MessageEvent{
		GuildID:   1,
		UserID:    100,
		MessageID: 2,
		Content:   "hello again",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, configStore.callCount())
}
