// Package discord adapts the arikawa gateway and REST client to the rule
// engine's collaborator boundaries.
package discord

import (
	"context"
	"fmt"

	"github.com/diamondburned/arikawa/v3/api"
	arkdiscord "github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/utils/json/option"
	"github.com/fantom2513/vibe-ds-bot/internal/engine/dispatch"
	"go.uber.org/zap"
)

const auditReason = "voice rule enforcement"

// Adapter implements dispatch.Platform on top of an arikawa state. Cached
// gateway data answers the read-side queries; mutations go through REST.
type Adapter struct {
	state  *state.State
	logger *zap.Logger
}

// NewAdapter creates a platform adapter over the given state.
func NewAdapter(st *state.State, logger *zap.Logger) *Adapter {
	return &Adapter{
		state:  st,
		logger: logger.Named("discord"),
	}
}

// GuildOwnerID returns the guild owner, protected from all automated action.
func (a *Adapter) GuildOwnerID(guildID uint64) (uint64, bool) {
	guild, err := a.state.Guild(arkdiscord.GuildID(guildID))
	if err != nil {
		a.logger.Warn("Failed to resolve guild owner",
			zap.Uint64("guild_id", guildID),
			zap.Error(err))

		return 0, false
	}

	return uint64(guild.OwnerID), true
}

// HasCapability reports whether the bot holds the given capability in the
// guild, computed from its role permissions.
func (a *Adapter) HasCapability(guildID uint64, capability dispatch.Capability) bool {
	perms, ok := a.botPermissions(arkdiscord.GuildID(guildID))
	if !ok {
		return false
	}

	if perms.Has(arkdiscord.PermissionAdministrator) {
		return true
	}

	switch capability {
	case dispatch.CapabilityMuteMembers:
		return perms.Has(arkdiscord.PermissionMuteMembers)
	case dispatch.CapabilityMoveMembers:
		return perms.Has(arkdiscord.PermissionMoveMembers)
	default:
		return false
	}
}

// IsVoiceChannel reports whether the channel resolves to a voice channel in
// the guild. Stage channels count; members can sit in them the same way.
func (a *Adapter) IsVoiceChannel(guildID, channelID uint64) bool {
	channel, err := a.state.Channel(arkdiscord.ChannelID(channelID))
	if err != nil {
		return false
	}

	if uint64(channel.GuildID) != guildID {
		return false
	}

	return channel.Type == arkdiscord.GuildVoice || channel.Type == arkdiscord.GuildStageVoice
}

// MemberVoiceChannel returns the voice channel a member currently occupies
// according to the gateway's cached voice states.
func (a *Adapter) MemberVoiceChannel(guildID, userID uint64) (uint64, bool) {
	voiceState, err := a.state.VoiceState(arkdiscord.GuildID(guildID), arkdiscord.UserID(userID))
	if err != nil || !voiceState.ChannelID.IsValid() {
		return 0, false
	}

	return uint64(voiceState.ChannelID), true
}

// SetMute mutes or unmutes a member's audio.
func (a *Adapter) SetMute(ctx context.Context, guildID, userID uint64, mute bool) error {
	muteOpt := option.False
	if mute {
		muteOpt = option.True
	}

	err := a.state.WithContext(ctx).ModifyMember(
		arkdiscord.GuildID(guildID), arkdiscord.UserID(userID),
		api.ModifyMemberData{
			Mute:           muteOpt,
			AuditLogReason: auditReason,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to set mute state: %w", err)
	}

	return nil
}

// Move relocates a member to another voice channel.
func (a *Adapter) Move(ctx context.Context, guildID, userID, channelID uint64) error {
	err := a.state.WithContext(ctx).ModifyMember(
		arkdiscord.GuildID(guildID), arkdiscord.UserID(userID),
		api.ModifyMemberData{
			VoiceChannel:   arkdiscord.ChannelID(channelID),
			AuditLogReason: auditReason,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to move member: %w", err)
	}

	return nil
}

// Disconnect removes a member from voice entirely.
func (a *Adapter) Disconnect(ctx context.Context, guildID, userID uint64) error {
	err := a.state.WithContext(ctx).ModifyMember(
		arkdiscord.GuildID(guildID), arkdiscord.UserID(userID),
		api.ModifyMemberData{
			VoiceChannel:   arkdiscord.NullChannelID,
			AuditLogReason: auditReason,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to disconnect member: %w", err)
	}

	return nil
}

// botPermissions folds the bot's guild roles into one permission set.
func (a *Adapter) botPermissions(guildID arkdiscord.GuildID) (arkdiscord.Permissions, bool) {
	me, err := a.state.Me()
	if err != nil {
		return 0, false
	}

	guild, err := a.state.Guild(guildID)
	if err != nil {
		return 0, false
	}

	if guild.OwnerID == me.ID {
		return arkdiscord.PermissionAll, true
	}

	member, err := a.state.Member(guildID, me.ID)
	if err != nil {
		return 0, false
	}

	rolePerms := make(map[arkdiscord.RoleID]arkdiscord.Permissions, len(guild.Roles))
	for _, role := range guild.Roles {
		rolePerms[role.ID] = role.Permissions
	}

	// The @everyone role shares the guild's ID.
	perms := rolePerms[arkdiscord.RoleID(guildID)]
	for _, roleID := range member.RoleIDs {
		perms |= rolePerms[roleID]
	}

	return perms, true
}
