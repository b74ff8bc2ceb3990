package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/json"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"
)

// Actions performs moderation actions against the Discord API.
type Actions struct {
	rest   rest.Rest
	logger *zap.Logger
}

// NewActions creates a Discord action client authenticated with the given bot token.
func NewActions(token string, logger *zap.Logger) *Actions {
	return &Actions{
		rest:   rest.New(rest.NewClient(token)),
		logger: logger.Named("discord_actions"),
	}
}

// IsNotFound reports whether err is the API answering that the target no
// longer exists, such as an unknown ban or a member who already left the
// guild.
func IsNotFound(err error) bool {
	var restErr rest.Error

	return errors.As(err, &restErr) && restErr.Response != nil &&
		restErr.Response.StatusCode == http.StatusNotFound
}

// Ban bans a user from a guild, deleting their recent message history.
func (a *Actions) Ban(ctx context.Context, guildID, userID uint64, reason string) error {
	err := a.rest.AddBan(snowflake.ID(guildID), snowflake.ID(userID), 24*time.Hour,
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to ban user %d in guild %d: %w", userID, guildID, err)
	}

	a.logger.Info("Banned user",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID))

	return nil
}

// Unban removes a user's ban from a guild.
func (a *Actions) Unban(ctx context.Context, guildID, userID uint64, reason string) error {
	err := a.rest.DeleteBan(snowflake.ID(guildID), snowflake.ID(userID),
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to unban user %d in guild %d: %w", userID, guildID, err)
	}

	a.logger.Info("Unbanned user",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID))

	return nil
}

// Kick removes a user from a guild.
func (a *Actions) Kick(ctx context.Context, guildID, userID uint64, reason string) error {
	err := a.rest.RemoveMember(snowflake.ID(guildID), snowflake.ID(userID),
		rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to kick user %d from guild %d: %w", userID, guildID, err)
	}

	a.logger.Info("Kicked user",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID))

	return nil
}

// Timeout mutes a user until the given time using Discord's communication timeout.
func (a *Actions) Timeout(ctx context.Context, guildID, userID uint64, until time.Time, reason string) error {
	_, err := a.rest.UpdateMember(snowflake.ID(guildID), snowflake.ID(userID), discord.MemberUpdate{
		CommunicationDisabledUntil: json.NewNullablePtr(until),
	}, rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to timeout user %d in guild %d: %w", userID, guildID, err)
	}

	a.logger.Info("Timed out user",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID),
		zap.Time("until", until))

	return nil
}

// RemoveTimeout clears a user's communication timeout.
func (a *Actions) RemoveTimeout(ctx context.Context, guildID, userID uint64, reason string) error {
	_, err := a.rest.UpdateMember(snowflake.ID(guildID), snowflake.ID(userID), discord.MemberUpdate{
		CommunicationDisabledUntil: json.NullPtr[time.Time](),
	}, rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to remove timeout for user %d in guild %d: %w", userID, guildID, err)
	}

	a.logger.Info("Removed user timeout",
		zap.Uint64("guildID", guildID),
		zap.Uint64("userID", userID))

	return nil
}

// SetLockdown raises or restores a guild's verification level. Lockdown uses
// the highest verification level so that new accounts cannot participate
// until the raid passes.
func (a *Actions) SetLockdown(ctx context.Context, guildID uint64, enabled bool, reason string) error {
	level := discord.VerificationLevelMedium
	if enabled {
		level = discord.VerificationLevelVeryHigh
	}

	_, err := a.rest.UpdateGuild(snowflake.ID(guildID), discord.GuildUpdate{
		VerificationLevel: json.NewNullablePtr(level),
	}, rest.WithCtx(ctx), rest.WithReason(reason))
	if err != nil {
		return fmt.Errorf("failed to update lockdown for guild %d: %w", guildID, err)
	}

	a.logger.Info("Updated guild lockdown",
		zap.Uint64("guildID", guildID),
		zap.Bool("enabled", enabled))

	return nil
}
