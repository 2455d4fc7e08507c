package domain

import (
	"encoding/json"
	"fmt"
)

// Wire names of server-to-client events.
const (
	WirePresenceSnapshot = "presenceSnapshot"
	WireTypingChanged    = "typingChanged"
	WireMessageCreated   = "messageCreated"
	WireMessageDeleted   = "messageDeleted"
	WireChatCleared      = "chatCleared"
)

// Wire names of client-to-server signals.
const (
	WireTypingStart = "typingStart"
	WireTypingStop  = "typingStop"
)

// Event is the closed set of domain events routed to live sessions.
// Only the types in this file implement it.
type Event interface {
	Name() string
	isEvent()
}

type MessageCreated struct {
	Message Message
}

type MessageDeletedForMe struct {
	Message     Message
	RequesterID string
}

type MessageDeletedForEveryone struct {
	Message Message
}

type ChatCleared struct {
	ClearedBy  string
	ClearedFor string
}

type PresenceChanged struct {
	Online []string
}

type TypingChanged struct {
	FromUserID string
	ToUserID   string
	IsTyping   bool
}

func (MessageCreated) Name() string            { return "MessageCreated" }
func (MessageDeletedForMe) Name() string       { return "MessageDeletedForMe" }
func (MessageDeletedForEveryone) Name() string { return "MessageDeletedForEveryone" }
func (ChatCleared) Name() string               { return "ChatCleared" }
func (PresenceChanged) Name() string           { return "PresenceChanged" }
func (TypingChanged) Name() string             { return "TypingChanged" }

func (MessageCreated) isEvent()            {}
func (MessageDeletedForMe) isEvent()       {}
func (MessageDeletedForEveryone) isEvent() {}
func (ChatCleared) isEvent()               {}
func (PresenceChanged) isEvent()           {}
func (TypingChanged) isEvent()             {}

type presenceWire struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

type typingWire struct {
	Type       string `json:"type"`
	FromUserID string `json:"fromUserId"`
	IsTyping   bool   `json:"isTyping"`
}

type messageCreatedWire struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type messageDeletedWire struct {
	Type               string   `json:"type"`
	MessageID          int64    `json:"messageId"`
	DeletedForEveryone bool     `json:"deletedForEveryone"`
	DeletedFor         []string `json:"deletedFor"`
}

type chatClearedWire struct {
	Type       string `json:"type"`
	ClearedBy  string `json:"clearedBy"`
	ClearedFor string `json:"clearedFor"`
}

// Encode renders an event as its JSON wire frame.
func Encode(evt Event) ([]byte, error) {
	var v any
	switch e := evt.(type) {
	case PresenceChanged:
		online := e.Online
		if online == nil {
			online = []string{}
		}
		v = presenceWire{Type: WirePresenceSnapshot, Online: online}
	case TypingChanged:
		v = typingWire{Type: WireTypingChanged, FromUserID: e.FromUserID, IsTyping: e.IsTyping}
	case MessageCreated:
		v = messageCreatedWire{Type: WireMessageCreated, Message: withSets(e.Message)}
	case MessageDeletedForMe:
		v = deletedWire(e.Message)
	case MessageDeletedForEveryone:
		v = deletedWire(e.Message)
	case ChatCleared:
		v = chatClearedWire{Type: WireChatCleared, ClearedBy: e.ClearedBy, ClearedFor: e.ClearedFor}
	default:
		return nil, fmt.Errorf("unknown event %T", evt)
	}
	return json.Marshal(v)
}

func deletedWire(m Message) messageDeletedWire {
	m = withSets(m)
	return messageDeletedWire{
		Type:               WireMessageDeleted,
		MessageID:          m.ID,
		DeletedForEveryone: m.DeletedForEveryone,
		DeletedFor:         m.DeletedFor,
	}
}

// withSets keeps deletedFor a JSON array rather than null.
func withSets(m Message) Message {
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	return m
}

// Signal is an inbound client frame.
type Signal struct {
	Type     string `json:"type"`
	ToUserID string `json:"toUserId"`
}

// DecodeSignal parses a client frame, rejecting unknown types.
func DecodeSignal(b []byte) (Signal, error) {
	var s Signal
	if err := json.Unmarshal(b, &s); err != nil {
		return Signal{}, Validationf("malformed frame: %v", err)
	}
	switch s.Type {
	case WireTypingStart, WireTypingStop:
		if s.ToUserID == "" {
			return Signal{}, Validationf("%s requires toUserId", s.Type)
		}
		return s, nil
	}
	return Signal{}, Validationf("unknown frame type %q", s.Type)
}
