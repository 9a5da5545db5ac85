package discord

import (
	"context"
	"fmt"

	arkdiscord "github.com/diamondburned/arikawa/v3/discord"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/zap"
)

// VoiceHandler consumes voice state transitions. A zero channel ID means
// the member left voice.
type VoiceHandler interface {
	HandleVoiceState(ctx context.Context, userID, channelID uint64)
}

// Bot owns the gateway connection and routes voice events into the engine.
type Bot struct {
	state   *state.State
	guildID arkdiscord.GuildID
	handler VoiceHandler
	logger  *zap.Logger
}

// NewBot creates the gateway client with the intents the engine needs.
func NewBot(token string, guildID uint64, logger *zap.Logger) *Bot {
	st := state.New("Bot " + token)
	st.AddIntents(gateway.IntentGuilds | gateway.IntentGuildVoiceStates)

	bot := &Bot{
		state:   st,
		guildID: arkdiscord.GuildID(guildID),
		logger:  logger.Named("gateway"),
	}

	st.AddHandler(bot.onVoiceStateUpdate)

	return bot
}

// SetHandler wires the voice event consumer. Must be called before Open.
func (b *Bot) SetHandler(handler VoiceHandler) {
	b.handler = handler
}

// State returns the underlying arikawa state for adapter construction.
func (b *Bot) State() *state.State {
	return b.state
}

// Open connects to the gateway and blocks until the connection is up.
func (b *Bot) Open(ctx context.Context) error {
	if err := b.state.Open(ctx); err != nil {
		return fmt.Errorf("failed to open gateway connection: %w", err)
	}

	b.logger.Info("Gateway connection established", zap.Uint64("guild_id", uint64(b.guildID)))

	return nil
}

// Close shuts the gateway connection down.
func (b *Bot) Close() error {
	if err := b.state.Close(); err != nil {
		return fmt.Errorf("failed to close gateway connection: %w", err)
	}

	return nil
}

// onVoiceStateUpdate filters raw gateway events down to the moderated
// guild's human members and forwards them to the engine.
func (b *Bot) onVoiceStateUpdate(e *gateway.VoiceStateUpdateEvent) {
	// Skip if this is the bot itself, another guild, or a bot account
	if b.handler == nil || e.UserID == b.state.Ready().User.ID || e.GuildID != b.guildID {
		return
	}

	if e.Member != nil && e.Member.User.Bot {
		return
	}

	// A leave carries a null channel ID, which decodes to the null sentinel
	// rather than zero. The engine expects zero for "left voice".
	channelID := uint64(0)
	if e.ChannelID.IsValid() {
		channelID = uint64(e.ChannelID)
	}

	b.handler.HandleVoiceState(context.Background(), uint64(e.UserID), channelID)
}
