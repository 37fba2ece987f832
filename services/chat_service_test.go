package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"collabrick/contract"
	"collabrick/directory"
	"collabrick/domain"
	"collabrick/domain/chat"
	"collabrick/errors"
	"collabrick/moderation"
	"collabrick/repositories"
	"collabrick/validation"
)

type chatFixture struct {
	service  *ChatService
	router   *fakeRouter
	mentions *repositories.MentionRepository
}

// newChatFixture builds a full pipeline over a throwaway database.
// Renovation 1 "Loft" has channel 3 "general" with Alice (7) and Bob (9) as
// members; Clara (10) exists but is outside the channel.
func newChatFixture(t *testing.T) chatFixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	messages, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	mentionRepository := repositories.NewMentionRepository(db, log)

	channels := directory.NewChannels()
	channels.Put(domain.Channel{ID: 3, RenovationID: 1, Name: "general"})
	channels.AddMember(3, 7)
	channels.AddMember(3, 9)

	renovations := directory.NewRenovations()
	renovations.Put(domain.Renovation{ID: 1, Name: "Loft", OwnerID: 7})
	renovations.AddMember(1, 9, domain.RoleMember)
	renovations.AddMember(1, 10, domain.RoleMember)

	users := directory.NewUsers()
	users.Put(domain.User{ID: 7, Name: "Alice"})
	users.Put(domain.User{ID: 9, Name: "Bob"})
	users.Put(domain.User{ID: 10, Name: "Clara"})

	moderator, err := moderation.NewModerator([]string{"crap"}, '*')
	require.NoError(t, err)

	router := &fakeRouter{}
	service := NewChatService(log, messages, mentionRepository, channels, renovations, users, moderator, router)
	return chatFixture{service: service, router: router, mentions: mentionRepository}
}

func incomingMessage(content string, spans ...chat.IncomingMention) chat.IncomingMessage {
	return chat.IncomingMessage{
		Content:      content,
		ChannelID:    3,
		RenovationID: 1,
		Mentions:     spans,
	}
}

func Test_Submit_Broadcasts_And_Notifies_Mentioned_User(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	outgoing, notifications, err := f.service.Submit(context.Background(),
		incomingMessage("hi @Bob", chat.IncomingMention{UserID: 9, StartPosition: 3, EndPosition: 7}), 7)
	req.NoError(err)
	req.Positive(outgoing.ID)
	req.Equal(chat.UserDetails{ID: 7, Name: "Alice"}, outgoing.User)
	req.False(outgoing.AI)
	req.Equal([]chat.Fragment{
		chat.TextFragment{Content: "hi "},
		chat.MentionFragment{MentionedUserID: 9, MentionedUserName: "Bob"},
	}, outgoing.Fragments)

	req.Len(notifications, 1)
	req.Equal("Loft", notifications[0].RenovationName)
	req.Equal("general", notifications[0].ChannelName)
	req.Equal("hi @Bob", notifications[0].MessageContent)
	req.Equal(chat.UserDetails{ID: 7, Name: "Alice"}, notifications[0].Sender)

	// The message goes to the channel topic, the mention to Bob's own
	// mention topic regardless of his channel subscription.
	req.Equal([]contract.Topic{contract.ChannelTopic(3)}, f.router.topicsFor(contract.KindChatMessage))
	req.Equal([]contract.Topic{contract.MentionTopic(9)}, f.router.topicsFor(contract.KindMention))

	unseen, err := f.mentions.Unseen(9)
	req.NoError(err)
	req.Len(unseen, 1)
}

func Test_Submit_Blank_Message(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, _, err := f.service.Submit(context.Background(), incomingMessage("   \n "), 7)
	req.ErrorIs(err, errors.ErrChatMessageBlank)
	req.Empty(f.router.published())
}

func Test_Submit_Too_Long_Message(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	content := strings.Repeat("a", validation.ChatMessageMaxLength+1)
	_, _, err := f.service.Submit(context.Background(), incomingMessage(content), 7)
	req.ErrorIs(err, errors.ErrChatMessageTooLong)
}

func Test_Submit_Unknown_Channel(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	msg := incomingMessage("hello")
	msg.ChannelID = 42
	_, _, err := f.service.Submit(context.Background(), msg, 7)
	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func Test_Submit_Channel_Renovation_Mismatch(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	msg := incomingMessage("hello")
	msg.RenovationID = 2
	_, _, err := f.service.Submit(context.Background(), msg, 7)
	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func Test_Submit_Sender_Not_A_Member(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, _, err := f.service.Submit(context.Background(), incomingMessage("hello"), 10)
	req.ErrorIs(err, errors.ErrChannelUnauthorised)
}

func Test_Submit_Drops_Mention_Of_Non_Member(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	// Clara is not in the channel: her span degrades to plain text.
	outgoing, notifications, err := f.service.Submit(context.Background(),
		incomingMessage("hi @Clara", chat.IncomingMention{UserID: 10, StartPosition: 3, EndPosition: 9}), 7)
	req.NoError(err)
	req.Empty(notifications)
	req.Equal([]chat.Fragment{chat.TextFragment{Content: "hi @Clara"}}, outgoing.Fragments)
	req.Empty(f.router.topicsFor(contract.KindMention))
}

func Test_Submit_Drops_Misaligned_Span(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	// The span does not start on '@'.
	outgoing, notifications, err := f.service.Submit(context.Background(),
		incomingMessage("hi @Bob", chat.IncomingMention{UserID: 9, StartPosition: 1, EndPosition: 5}), 7)
	req.NoError(err)
	req.Empty(notifications)
	req.Equal([]chat.Fragment{chat.TextFragment{Content: "hi @Bob"}}, outgoing.Fragments)
}

func Test_Submit_Deduplicates_Mentions(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, notifications, err := f.service.Submit(context.Background(),
		incomingMessage("@Bob and @Bob",
			chat.IncomingMention{UserID: 9, StartPosition: 0, EndPosition: 4},
			chat.IncomingMention{UserID: 9, StartPosition: 9, EndPosition: 13},
		), 7)
	req.NoError(err)
	req.Len(notifications, 1)
	req.Len(f.router.topicsFor(contract.KindMention), 1)

	unseen, err := f.mentions.Unseen(9)
	req.NoError(err)
	req.Len(unseen, 1)
}

func Test_Submit_Censors_Content(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	outgoing, _, err := f.service.Submit(context.Background(), incomingMessage("what a crap plan"), 7)
	req.NoError(err)
	req.Equal([]chat.Fragment{chat.TextFragment{Content: "what a **** plan"}}, outgoing.Fragments)

	messages, _, err := f.service.Messages(3, nil, 0)
	req.NoError(err)
	req.Equal("what a **** plan", messages[0].RawContent)
}

func Test_Messages_Pages_Newest_First(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	for _, content := range []string{"one", "two", "three"} {
		_, _, err := f.service.Submit(context.Background(), incomingMessage(content), 7)
		req.NoError(err)
	}

	page, cursor, err := f.service.Messages(3, nil, 2)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("three", page[0].RawContent)
	req.NotNil(cursor)

	rest, _, err := f.service.Messages(3, cursor, 2)
	req.NoError(err)
	req.Len(rest, 1)
	req.Equal("one", rest[0].RawContent)

	_, _, err = f.service.Messages(42, nil, 2)
	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func Test_Mention_Inbox_Flow(t *testing.T) {
	req := require.New(t)
	f := newChatFixture(t)

	_, _, err := f.service.Submit(context.Background(),
		incomingMessage("ping @Bob", chat.IncomingMention{UserID: 9, StartPosition: 5, EndPosition: 9}), 7)
	req.NoError(err)

	unseen, err := f.service.UnseenMentions(9)
	req.NoError(err)
	req.Len(unseen, 1)
	req.Equal("general", unseen[0].ChannelName)
	req.Equal("Alice", unseen[0].Sender.Name)

	cleared, err := f.service.MarkMentionsSeen(9, 3)
	req.NoError(err)
	req.Equal(1, cleared)

	unseen, err = f.service.UnseenMentions(9)
	req.NoError(err)
	req.Empty(unseen)
}
