package dispatch

import "context"

// Capability is a bot permission required to execute an action class.
type Capability int

const (
	// CapabilityMuteMembers gates mute and unmute actions.
	CapabilityMuteMembers Capability = iota
	// CapabilityMoveMembers gates relocations and voice disconnects.
	CapabilityMoveMembers
)

// String returns the capability name for logging.
func (c Capability) String() string {
	switch c {
	case CapabilityMuteMembers:
		return "mute_members"
	case CapabilityMoveMembers:
		return "move_members"
	default:
		return "unknown"
	}
}

// Platform is the chat platform collaborator boundary. The dispatcher is
// the only component that invokes its mutating calls.
type Platform interface {
	// GuildOwnerID returns the guild owner, protected from all automated
	// action. The second return value is false when the guild is unknown.
	GuildOwnerID(guildID uint64) (uint64, bool)
	// HasCapability reports whether the bot holds the given capability in
	// the guild.
	HasCapability(guildID uint64, capability Capability) bool
	// IsVoiceChannel reports whether the channel resolves to a voice
	// channel in the guild.
	IsVoiceChannel(guildID, channelID uint64) bool
	// MemberVoiceChannel returns the voice channel a member currently
	// occupies according to the platform.
	MemberVoiceChannel(guildID, userID uint64) (uint64, bool)
	// SetMute mutes or unmutes a member's audio.
	SetMute(ctx context.Context, guildID, userID uint64, mute bool) error
	// Move relocates a member to another voice channel.
	Move(ctx context.Context, guildID, userID, channelID uint64) error
	// Disconnect removes a member from voice entirely.
	Disconnect(ctx context.Context, guildID, userID uint64) error
}
