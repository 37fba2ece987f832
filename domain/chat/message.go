package chat

import (
	"time"

	"github.com/google/uuid"

	"collabrick/contract"
	"collabrick/domain"
)

// Message is an immutable chat event. ID is assigned by the store at append
// time; Fragments are computed once at submission and stored verbatim, never
// re-derived on read.
type Message struct {
	ID         int64
	ChannelID  domain.ChannelID
	SenderID   domain.UserID
	RawContent string
	Timestamp  time.Time
	Fragments  []Fragment
}

// IncomingMessage is the payload a client submits to a channel.
type IncomingMessage struct {
	Content      string              `json:"content" validate:"required"`
	ChannelID    domain.ChannelID    `json:"channelId" validate:"required"`
	RenovationID domain.RenovationID `json:"renovationId" validate:"required"`
	Mentions     []IncomingMention   `json:"mentions" validate:"dive"`
}

// IncomingMention is a mention span inside an incoming message. Offsets are
// character positions into the content; StartPosition addresses the '@'
// trigger and EndPosition is exclusive.
type IncomingMention struct {
	UserID        domain.UserID `json:"userId" validate:"required"`
	StartPosition int           `json:"startPosition" validate:"gte=0"`
	EndPosition   int           `json:"endPosition" validate:"gtefield=StartPosition"`
}

// UserDetails is the sender identity attached to outgoing payloads.
type UserDetails struct {
	ID   domain.UserID `json:"id"`
	Name string        `json:"name"`
}

// OutgoingMessage is the channel broadcast form of a stored message. Clients
// render fragments; raw offsets never leave the server.
type OutgoingMessage struct {
	ID        int64       `json:"id"`
	Fragments []Fragment  `json:"fragments"`
	Date      time.Time   `json:"date"`
	User      UserDetails `json:"user"`
	AI        bool        `json:"ai"`
}

func (OutgoingMessage) PayloadKind() contract.PayloadKind { return contract.KindChatMessage }

// OutgoingMention notifies one mentioned user, independent of their channel
// subscription. It snapshots the message content at submission time.
type OutgoingMention struct {
	RenovationID   domain.RenovationID `json:"renovationId"`
	RenovationName string              `json:"renovationName"`
	ChannelID      domain.ChannelID    `json:"channelId"`
	ChannelName    string              `json:"channelName"`
	Sender         UserDetails         `json:"sender"`
	MessageContent string              `json:"messageContent"`
	Timestamp      time.Time           `json:"timestamp"`
}

func (OutgoingMention) PayloadKind() contract.PayloadKind { return contract.KindMention }

// MentionRecord is a mention's inbox entry for the mentioned user. It stays
// unseen until the user opens the channel it came from.
type MentionRecord struct {
	ID              uuid.UUID
	MentionedUserID domain.UserID
	ChannelID       domain.ChannelID
	RenovationID    domain.RenovationID
	SenderID        domain.UserID
	MessageContent  string
	Timestamp       time.Time
	Seen            bool
}
