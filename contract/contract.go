//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"fmt"
	"reflect"

	"collabrick/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself; the supervisor handles panics and restarts.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, avoiding manual naming in the Worker
// interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// PayloadKind discriminates outbound payload variants on the wire.
type PayloadKind string

const (
	KindChatMessage PayloadKind = "chat_message"
	KindMention     PayloadKind = "mention"
	KindActivity    PayloadKind = "activity"
)

// Payload is anything the router can deliver to a connected client.
type Payload interface {
	PayloadKind() PayloadKind
}

// PushSink is one connected client's delivery endpoint. Push must be quick:
// implementations enqueue and return, they do not wait on the network. The
// router treats a Push error as that one recipient missing the payload.
type PushSink interface {
	Push(ctx context.Context, payload Payload) error
}

// Topic is a named stream a client can subscribe to: one per chat channel,
// plus per-user feed and mention streams.
type Topic string

func ChannelTopic(id domain.ChannelID) Topic {
	return Topic(fmt.Sprintf("channel/%d", id))
}

func FeedTopic(userID domain.UserID) Topic {
	return Topic(fmt.Sprintf("feed/%d", userID))
}

func MentionTopic(userID domain.UserID) Topic {
	return Topic(fmt.Sprintf("mention/%d", userID))
}

type IRegistry interface {
	Subscribe(subscriberID string, topic Topic, sink PushSink)
	Unsubscribe(subscriberID string, topic Topic)
	SinksFor(topic Topic) []PushSink
}

// IRouter fans a payload out to every sink subscribed to the given topics.
// Publishing never blocks the caller; delivery is best-effort and
// per-recipient failures are isolated.
type IRouter interface {
	Publish(payload Payload, topics ...Topic)
}

// IChannelDirectory resolves chat channels and their memberships. Channel
// membership decides who may post and who receives channel broadcasts.
type IChannelDirectory interface {
	Channel(id domain.ChannelID) (domain.Channel, bool)
	IsMember(id domain.ChannelID, userID domain.UserID) bool
	Members(id domain.ChannelID) []domain.UserID
}

// IRenovationDirectory resolves renovations and their members with roles.
type IRenovationDirectory interface {
	Renovation(id domain.RenovationID) (domain.Renovation, bool)
	Members(id domain.RenovationID) []domain.Member
	RoleOf(id domain.RenovationID, userID domain.UserID) (domain.MemberRole, bool)
	RenovationsFor(userID domain.UserID) []domain.RenovationID
}

// IUserDirectory resolves user display names.
type IUserDirectory interface {
	DisplayName(id domain.UserID) (string, bool)
}
