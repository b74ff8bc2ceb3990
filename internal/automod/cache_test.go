package automod_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wardenhq/warden/internal/automod"
	"github.com/wardenhq/warden/internal/database/types"
	"github.com/wardenhq/warden/internal/database/types/enum"
	"go.uber.org/zap"
)

// stubConfigStore is an in-memory ConfigStore for detector tests.
type stubConfigStore struct {
	mu      sync.Mutex
	configs map[uint64]*types.GuildModerationConfig
	err     error
	calls   int
}

func (s *stubConfigStore) GetConfig(_ context.Context, guildID uint64) (*types.GuildModerationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if s.err != nil {
		return nil, s.err
	}

	cfg, ok := s.configs[guildID]
	if !ok {
		return nil, types.ErrGuildConfigNotFound
	}

	return cfg, nil
}

func (s *stubConfigStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func newTestCache(store *stubConfigStore) *automod.GuildConfigCache {
	return automod.NewGuildConfigCache(store, time.Minute, time.Minute, zap.NewNop())
}

func TestGuildConfigCache_Get(t *testing.T) {
	t.Parallel()

	stored := &types.GuildModerationConfig{
		GuildID: 1,
		Mode:    enum.ConfigModeStrict,
	}
	store := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{1: stored}}
	cache := newTestCache(store)

	cfg := cache.Get(context.Background(), 1)
	assert.Equal(t, stored, cfg)

	// Second access is served from memory
	cache.Get(context.Background(), 1)
	assert.Equal(t, 1, store.callCount())
}

func TestGuildConfigCache_MissingGuild(t *testing.T) {
	t.Parallel()

	store := &stubConfigStore{}
	cache := newTestCache(store)

	assert.Nil(t, cache.Get(context.Background(), 42))

	// The miss is cached too
	cache.Get(context.Background(), 42)
	assert.Equal(t, 1, store.callCount())
}

func TestGuildConfigCache_FailsOpen(t *testing.T) {
	t.Parallel()

	store := &stubConfigStore{err: errors.New("connection refused")}
	cache := newTestCache(store)

	assert.Nil(t, cache.Get(context.Background(), 1))

	// Detectors still get conservative defaults
	spam := cache.SpamConfig(context.Background(), 1)
	assert.Equal(t, types.DefaultSpamConfig(enum.ConfigModeStandard), spam)

	raid := cache.RaidConfig(context.Background(), 1)
	assert.Equal(t, types.DefaultRaidConfig(enum.ConfigModeStandard), raid)
}

func TestGuildConfigCache_Invalidate(t *testing.T) {
	t.Parallel()

	store := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {GuildID: 1, Mode: enum.ConfigModeLenient},
	}}
	cache := newTestCache(store)

	cfg := cache.Get(context.Background(), 1)
	assert.Equal(t, enum.ConfigModeLenient, cfg.Mode)

	// Simulate an explicit config update
	store.mu.Lock()
	store.configs[1] = &types.GuildModerationConfig{GuildID: 1, Mode: enum.ConfigModeStrict}
	store.mu.Unlock()

	cache.Invalidate(1)

	cfg = cache.Get(context.Background(), 1)
	assert.Equal(t, enum.ConfigModeStrict, cfg.Mode)
	assert.Equal(t, 2, store.callCount())
}

func TestGuildConfigCache_PresetResolution(t *testing.T) {
	t.Parallel()

	custom := &types.SpamConfig{MessageThreshold: 3, WindowSeconds: 5, DuplicateThreshold: 2, MinAccountAgeDays: 1}
	store := &stubConfigStore{configs: map[uint64]*types.GuildModerationConfig{
		1: {GuildID: 1, Mode: enum.ConfigModeStrict, Spam: custom},
		2: {GuildID: 2, Mode: enum.ConfigModeAdvanced, Spam: custom},
	}}
	cache := newTestCache(store)

	// Preset modes ignore stored thresholds
	assert.Equal(t, types.DefaultSpamConfig(enum.ConfigModeStrict), cache.SpamConfig(context.Background(), 1))

	// Advanced mode uses them
	assert.Equal(t, custom, cache.SpamConfig(context.Background(), 2))
}
