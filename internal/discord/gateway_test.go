package discord

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type voiceCall struct {
	userID    uint64
	channelID uint64
}

type recordingHandler struct {
	calls []voiceCall
}

func (h *recordingHandler) HandleVoiceState(_ context.Context, userID, channelID uint64) {
	h.calls = append(h.calls, voiceCall{userID: userID, channelID: channelID})
}

// decodeVoiceEvent unmarshals a raw gateway payload so the channel ID goes
// through the same snowflake decoding as live traffic.
func decodeVoiceEvent(t *testing.T, payload string) *gateway.VoiceStateUpdateEvent {
	t.Helper()

	var e gateway.VoiceStateUpdateEvent
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	return &e
}

func setupBot(t *testing.T, guildID uint64) (*Bot, *recordingHandler) {
	t.Helper()

	bot := NewBot("test-token", guildID, zap.NewNop())
	handler := &recordingHandler{}
	bot.SetHandler(handler)

	return bot, handler
}

func TestVoiceStateUpdate(t *testing.T) {
	t.Parallel()

	t.Run("join forwards the channel ID", func(t *testing.T) {
		t.Parallel()

		bot, handler := setupBot(t, 55)
		bot.onVoiceStateUpdate(decodeVoiceEvent(t,
			`{"guild_id":"55","channel_id":"100","user_id":"42"}`))

		require.Len(t, handler.calls, 1)
		assert.Equal(t, voiceCall{userID: 42, channelID: 100}, handler.calls[0])
	})

	t.Run("leave with null channel forwards zero", func(t *testing.T) {
		t.Parallel()

		bot, handler := setupBot(t, 55)
		bot.onVoiceStateUpdate(decodeVoiceEvent(t,
			`{"guild_id":"55","channel_id":null,"user_id":"42"}`))

		require.Len(t, handler.calls, 1)
		assert.Equal(t, voiceCall{userID: 42, channelID: 0}, handler.calls[0])
	})

	t.Run("other guilds are ignored", func(t *testing.T) {
		t.Parallel()

		bot, handler := setupBot(t, 55)
		bot.onVoiceStateUpdate(decodeVoiceEvent(t,
			`{"guild_id":"99","channel_id":"100","user_id":"42"}`))

		assert.Empty(t, handler.calls)
	})

	t.Run("bot members are ignored", func(t *testing.T) {
		t.Parallel()

		bot, handler := setupBot(t, 55)
		bot.onVoiceStateUpdate(decodeVoiceEvent(t,
			`{"guild_id":"55","channel_id":"100","user_id":"42","member":{"user":{"id":"42","bot":true}}}`))

		assert.Empty(t, handler.calls)
	})
}
