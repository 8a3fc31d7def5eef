// Package protocol defines the JSON frames exchanged over a chat connection.
// Each frame travels as one websocket text message; the frame type selects
// the handler on the server and the rendering on the client.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"haven-chat/domain/chat"
	"haven-chat/errors"
)

const (
	TypeJoin          = "join"
	TypeLeave         = "leave"
	TypeChat          = "chat"
	TypeSearch        = "search"
	TypeHistory       = "history"
	TypeCrisisAlert   = "crisis_alert"
	TypeSearchResults = "search_results"
	TypeError         = "error"
)

var validate = validator.New()

// Inbound is the single envelope for every client frame. Which fields are
// required depends on the frame type and is checked by the orchestrator; the
// struct tags only bound sizes and restrict the type set.
type Inbound struct {
	Type     string `json:"type" validate:"required,oneof=join leave chat search"`
	RoomID   string `json:"roomId,omitempty" validate:"omitempty,max=128"`
	UserID   string `json:"userId,omitempty" validate:"omitempty,max=128"`
	Nickname string `json:"nickname,omitempty" validate:"omitempty,max=64"`
	Content  string `json:"content,omitempty" validate:"omitempty,max=4000"`
}

// ParseInbound decodes and validates one raw client frame.
// Any failure maps to ErrMalformedFrame so the caller can reply with a
// single private error without inspecting causes.
func ParseInbound(raw []byte) (Inbound, error) {
	var f Inbound
	if err := json.Unmarshal(raw, &f); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	if err := validate.Struct(f); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return f, nil
}

// MessagePayload is the canonical message shape on the wire, used both in
// history replies and chat broadcasts.
type MessagePayload struct {
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	RiskLevel string    `json:"riskLevel"`
}

func toPayload(m chat.Message) MessagePayload {
	return MessagePayload{
		UserID:    m.UserID,
		Nickname:  m.Nickname,
		Content:   m.Content,
		Timestamp: m.CreatedAt,
		RiskLevel: string(m.RiskLevel),
	}
}

type HistoryFrame struct {
	Type     string           `json:"type"`
	Messages []MessagePayload `json:"messages"`
}

type PresenceFrame struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	Nickname  string    `json:"nickname"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatFrame struct {
	Type string `json:"type"`
	MessagePayload
}

type CrisisAlertFrame struct {
	Type      string    `json:"type"`
	RiskLevel string    `json:"riskLevel"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type SearchResultsFrame struct {
	Type     string           `json:"type"`
	Messages []MessagePayload `json:"messages"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EncodeHistory serializes the recent messages, oldest first.
func EncodeHistory(messages []chat.Message) ([]byte, error) {
	return json.Marshal(HistoryFrame{
		Type: TypeHistory,
		// Empty history is an empty array on the wire, never null
		Messages: lo.Map(messages, func(m chat.Message, _ int) MessagePayload {
			return toPayload(m)
		}),
	})
}

func EncodeSearchResults(messages []chat.Message) ([]byte, error) {
	return json.Marshal(SearchResultsFrame{
		Type: TypeSearchResults,
		Messages: lo.Map(messages, func(m chat.Message, _ int) MessagePayload {
			return toPayload(m)
		}),
	})
}

func EncodePresence(frameType, userID, nickname string, at time.Time) ([]byte, error) {
	return json.Marshal(PresenceFrame{
		Type:      frameType,
		UserID:    userID,
		Nickname:  nickname,
		Timestamp: at,
	})
}

func EncodeChat(m chat.Message) ([]byte, error) {
	return json.Marshal(ChatFrame{Type: TypeChat, MessagePayload: toPayload(m)})
}

func EncodeCrisisAlert(level chat.RiskLevel, message string, at time.Time) ([]byte, error) {
	return json.Marshal(CrisisAlertFrame{
		Type:      TypeCrisisAlert,
		RiskLevel: string(level),
		Message:   message,
		Timestamp: at,
	})
}

func EncodeError(message string) ([]byte, error) {
	return json.Marshal(ErrorFrame{Type: TypeError, Message: message})
}
