package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBotService(t *testing.T, handler http.HandlerFunc) *BotService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("MAX_BOT_API_URL", server.URL)
	t.Setenv("MAX_BOT_TOKEN", "test-token")
	return NewBotService()
}

func TestSendMessageSuccess(t *testing.T) {
	var gotPayload botMessagePayload
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))
		assert.Equal(t, "12345", r.URL.Query().Get("user_id"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":{"body":{"mid":"mid.abc123"}}}`))
	})

	result, err := bot.SendMessage("12345", "Дедлайн близко", "")
	require.NoError(t, err)
	assert.Equal(t, "mid.abc123", result.MessageID)
	assert.Equal(t, "Дедлайн близко", gotPayload.Text)
	assert.Empty(t, gotPayload.Attachments)
}

func TestSendMessageWithImage(t *testing.T) {
	var gotPayload botMessagePayload
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Write([]byte(`{"message_id":"77"}`))
	})

	result, err := bot.SendMessage("1", "text", "https://cdn.example.com/bell.png")
	require.NoError(t, err)
	assert.Equal(t, "77", result.MessageID)
	require.Len(t, gotPayload.Attachments, 1)
	assert.Equal(t, "image", gotPayload.Attachments[0].Type)
	assert.Equal(t, "https://cdn.example.com/bell.png", gotPayload.Attachments[0].Payload.URL)
}

func TestSendMessageUndecodableResponse(t *testing.T) {
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	result, err := bot.SendMessage("1", "text", "")
	require.NoError(t, err)
	assert.Empty(t, result.MessageID)
}

func TestSendMessageChatDenied(t *testing.T) {
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"code":"chat.denied","message":"user has not started the bot"}`))
	})

	_, err := bot.SendMessage("1", "text", "")
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, SendErrorChatDenied, sendErr.Kind)
	assert.Equal(t, "chat.denied", sendErr.Code)
}

func TestSendMessageServerError(t *testing.T) {
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{}`))
	})

	_, err := bot.SendMessage("1", "text", "")
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, SendErrorOther, sendErr.Kind)
	assert.Equal(t, "500", sendErr.Code)
}

func TestSendMessageNoToken(t *testing.T) {
	t.Setenv("MAX_BOT_TOKEN", "")
	bot := NewBotService()

	_, err := bot.SendMessage("1", "text", "")
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, SendErrorNoToken, sendErr.Kind)
}

func TestSendMessageConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // nothing listens on the URL anymore

	t.Setenv("MAX_BOT_API_URL", server.URL)
	t.Setenv("MAX_BOT_TOKEN", "test-token")
	bot := NewBotService()

	_, err := bot.SendMessage("1", "text", "")
	var sendErr *SendError
	require.True(t, errors.As(err, &sendErr))
	assert.Equal(t, SendErrorNetwork, sendErr.Kind)
}

func TestDeleteMessage(t *testing.T) {
	var gotMethod, gotMessageID string
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotMessageID = r.URL.Query().Get("message_id")
		w.Write([]byte(`{}`))
	})

	assert.True(t, bot.DeleteMessage("mid.abc123"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "mid.abc123", gotMessageID)
}

func TestDeleteMessageFailure(t *testing.T) {
	bot := newTestBotService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.False(t, bot.DeleteMessage("mid.missing"))
}
