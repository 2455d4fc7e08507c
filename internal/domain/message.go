package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// DeletedPlaceholder replaces the text of a message deleted for everyone.
const DeletedPlaceholder = "This message was deleted"

// TombstoneWindow is how long after creation a sender may delete a message for everyone.
const TombstoneWindow = 7 * time.Minute

// Message is a direct message between two users.
type Message struct {
	ID                 int64     `json:"id"`
	SenderID           string    `json:"senderId"`
	ReceiverID         string    `json:"receiverId"`
	Text               *string   `json:"text"`
	Image              *string   `json:"image"`
	CreatedAt          time.Time `json:"createdAt"`
	DeletedFor         []string  `json:"deletedFor"`
	DeletedForEveryone bool      `json:"deletedForEveryone"`
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Peer returns the other participant as seen from userID.
func (m Message) Peer(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// HiddenFor reports whether viewerID removed the message from their own view.
func (m Message) HiddenFor(viewerID string) bool {
	return lo.Contains(m.DeletedFor, viewerID)
}

// Redact applies the delete-for-everyone projection in place.
func (m *Message) Redact() {
	m.DeletedForEveryone = true
	m.Text = lo.ToPtr(DeletedPlaceholder)
	m.Image = nil
}

// VisibleTo drops messages the viewer has hidden for themselves. Tombstoned
// messages stay visible so both parties see the placeholder.
func VisibleTo(msgs []Message, viewerID string) []Message {
	return lo.Filter(msgs, func(m Message, _ int) bool {
		return !m.HiddenFor(viewerID)
	})
}

// NormalizeContent trims blank optional fields to nil.
func NormalizeContent(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// ValidateNew checks the fields a caller supplies when creating a message.
func ValidateNew(senderID, receiverID string, text, image *string) error {
	switch {
	case senderID == "" || receiverID == "":
		return Validationf("sender and receiver are required")
	case senderID == receiverID:
		return Validationf("cannot send a message to yourself")
	case NormalizeContent(text) == nil && NormalizeContent(image) == nil:
		return Validationf("message needs text or an image")
	}
	return nil
}
