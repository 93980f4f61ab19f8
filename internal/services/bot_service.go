package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultBotAPIURL = "https://platform-api.max.ru"

// SendErrorKind classifies a failed send for logging and user-facing text.
// The engine never re-interprets these beyond classification.
type SendErrorKind string

const (
	SendErrorChatDenied SendErrorKind = "chat.denied"
	SendErrorNetwork    SendErrorKind = "network"
	SendErrorNoToken    SendErrorKind = "no_token"
	SendErrorOther      SendErrorKind = "other"
)

// SendError is the classified failure returned by SendMessage
type SendError struct {
	Kind    SendErrorKind
	Code    string
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %s %s", e.Kind, e.Code, e.Message)
}

// SendResult carries the id of a successfully sent message
type SendResult struct {
	MessageID string
}

// Sender is the messaging capability the notification engine depends on
type Sender interface {
	SendMessage(userID, text, imageURL string) (*SendResult, error)
	DeleteMessage(messageID string) bool
}

// BotService talks to the Max Bot API
type BotService struct {
	client  *http.Client
	baseURL string
	token   string
}

// NewBotService builds the bot client from the environment. MAX_BOT_API_URL
// is overridable for tests.
func NewBotService() *BotService {
	baseURL := os.Getenv("MAX_BOT_API_URL")
	if baseURL == "" {
		baseURL = defaultBotAPIURL
	}
	return &BotService{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		token:   os.Getenv("MAX_BOT_TOKEN"),
	}
}

type botMessagePayload struct {
	Text        string          `json:"text"`
	Attachments []botAttachment `json:"attachments,omitempty"`
}

type botAttachment struct {
	Type    string               `json:"type"`
	Payload botAttachmentPayload `json:"payload"`
}

type botAttachmentPayload struct {
	URL string `json:"url"`
}

type botSendResponse struct {
	Message *struct {
		Body *struct {
			Mid string `json:"mid"`
		} `json:"body"`
	} `json:"message"`
	MessageID string `json:"message_id"`
	ID        string `json:"id"`
}

type botErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendMessage sends a text message (optionally with an image attachment) to
// the user identified by the platform user id.
func (s *BotService) SendMessage(userID, text, imageURL string) (*SendResult, error) {
	if s.token == "" {
		log.Println("MAX_BOT_TOKEN is not set, cannot send message")
		return nil, &SendError{Kind: SendErrorNoToken, Code: "no_token", Message: "MAX_BOT_TOKEN is not set"}
	}

	payload := botMessagePayload{Text: text}
	if imageURL != "" {
		payload.Attachments = []botAttachment{
			{Type: "image", Payload: botAttachmentPayload{URL: imageURL}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SendError{Kind: SendErrorOther, Code: "encode", Message: err.Error()}
	}

	endpoint := fmt.Sprintf("%s/messages?%s", s.baseURL, url.Values{
		"access_token": {s.token},
		"user_id":      {userID},
	}.Encode())

	resp, err := s.client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result botSendResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			// The send itself succeeded, only the id is unknown
			log.Printf("Message sent to user %s, but response could not be decoded: %v", userID, err)
			return &SendResult{}, nil
		}
		messageID := result.messageID()
		if messageID == "" {
			log.Printf("Message sent to user %s, but no message_id in response", userID)
		} else {
			log.Printf("Message sent to user %s (message_id: %s)", userID, messageID)
		}
		return &SendResult{MessageID: messageID}, nil

	case resp.StatusCode == http.StatusForbidden:
		botErr := decodeBotError(resp.Body)
		log.Printf("Send to user %s denied: %s %s", userID, botErr.Code, botErr.Message)
		return nil, &SendError{Kind: SendErrorChatDenied, Code: botErr.Code, Message: botErr.Message}

	default:
		botErr := decodeBotError(resp.Body)
		if botErr.Code == "" {
			botErr.Code = fmt.Sprintf("%d", resp.StatusCode)
		}
		log.Printf("Send to user %s failed with status %d: %s %s", userID, resp.StatusCode, botErr.Code, botErr.Message)
		return nil, &SendError{Kind: SendErrorOther, Code: botErr.Code, Message: botErr.Message}
	}
}

// DeleteMessage removes a previously sent message. Returns true on success.
func (s *BotService) DeleteMessage(messageID string) bool {
	if s.token == "" {
		log.Println("MAX_BOT_TOKEN is not set, cannot delete message")
		return false
	}

	endpoint := fmt.Sprintf("%s/messages?%s", s.baseURL, url.Values{
		"access_token": {s.token},
		"message_id":   {messageID},
	}.Encode())

	req, err := http.NewRequest(http.MethodDelete, endpoint, nil)
	if err != nil {
		return false
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("Failed to delete message %s: %v", messageID, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("Failed to delete message %s: status %d", messageID, resp.StatusCode)
		return false
	}

	log.Printf("Message %s deleted", messageID)
	return true
}

func (r *botSendResponse) messageID() string {
	if r.Message != nil && r.Message.Body != nil && r.Message.Body.Mid != "" {
		return r.Message.Body.Mid
	}
	if r.MessageID != "" {
		return r.MessageID
	}
	return r.ID
}

func decodeBotError(body io.Reader) botErrorResponse {
	var botErr botErrorResponse
	if err := json.NewDecoder(body).Decode(&botErr); err != nil {
		return botErrorResponse{}
	}
	return botErr
}

func classifyTransportError(err error) *SendError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SendError{Kind: SendErrorNetwork, Code: "timeout", Message: err.Error()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &SendError{Kind: SendErrorNetwork, Code: "connection_error", Message: err.Error()}
	}
	return &SendError{Kind: SendErrorOther, Code: "exception", Message: err.Error()}
}
