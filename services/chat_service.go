//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"

	"collabrick/contract"
	"collabrick/domain"
	"collabrick/domain/chat"
	"collabrick/errors"
	"collabrick/mentions"
	"collabrick/moderation"
	"collabrick/repositories"
	"collabrick/validation"
)

// DefaultMessageLimit is the page size for history reads when the caller
// does not ask for one.
const DefaultMessageLimit = 25

type IChatService interface {
	Submit(ctx context.Context, incoming chat.IncomingMessage, senderID domain.UserID) (chat.OutgoingMessage, []chat.OutgoingMention, error)
	Messages(channelID domain.ChannelID, cursor *string, limit int) ([]chat.Message, *string, error)
	UnseenMentions(userID domain.UserID) ([]chat.OutgoingMention, error)
	MarkMentionsSeen(userID domain.UserID, channelID domain.ChannelID) (int, error)
}

var _ IChatService = (*ChatService)(nil)

// ChatService runs the chat submission pipeline: validate, censor, fragment,
// persist, then broadcast. Submissions to the same channel are serialized so
// storage order and broadcast order agree; different channels proceed in
// parallel.
type ChatService struct {
	log         *slog.Logger
	messages    repositories.IMessageRepository
	mentionLog  repositories.IMentionRepository
	channels    contract.IChannelDirectory
	renovations contract.IRenovationDirectory
	users       contract.IUserDirectory
	moderator   *moderation.Moderator
	router      contract.IRouter

	mu           sync.Mutex
	channelLocks map[domain.ChannelID]*sync.Mutex
}

func NewChatService(
	log *slog.Logger,
	messages repositories.IMessageRepository,
	mentionLog repositories.IMentionRepository,
	channels contract.IChannelDirectory,
	renovations contract.IRenovationDirectory,
	users contract.IUserDirectory,
	moderator *moderation.Moderator,
	router contract.IRouter,
) *ChatService {
	return &ChatService{
		log:          log,
		messages:     messages,
		mentionLog:   mentionLog,
		channels:     channels,
		renovations:  renovations,
		users:        users,
		moderator:    moderator,
		router:       router,
		channelLocks: make(map[domain.ChannelID]*sync.Mutex),
	}
}

// Submit processes one message submission end to end and returns what was
// broadcast. Validation failures and authorization failures surface as
// sentinel errors before anything is stored.
func (s *ChatService) Submit(ctx context.Context, incoming chat.IncomingMessage, senderID domain.UserID) (chat.OutgoingMessage, []chat.OutgoingMention, error) {
	if err := validation.ValidateIncomingMessage(incoming); err != nil {
		return chat.OutgoingMessage{}, nil, err
	}
	if err := validation.ValidateMessageContent(incoming.Content); err != nil {
		return chat.OutgoingMessage{}, nil, err
	}

	channel, ok := s.channels.Channel(incoming.ChannelID)
	if !ok || channel.RenovationID != incoming.RenovationID {
		return chat.OutgoingMessage{}, nil, errors.ErrChannelNotFound
	}
	if !s.channels.IsMember(channel.ID, senderID) {
		return chat.OutgoingMessage{}, nil, errors.ErrChannelUnauthorised
	}
	renovation, ok := s.renovations.Renovation(incoming.RenovationID)
	if !ok {
		return chat.OutgoingMessage{}, nil, errors.ErrRenovationNotFound
	}
	senderName, ok := s.users.DisplayName(senderID)
	if !ok {
		return chat.OutgoingMessage{}, nil, errors.ErrUserNotFound
	}

	lock := s.lockFor(channel.ID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return chat.OutgoingMessage{}, nil, err
	}

	// Censoring replaces runes in place, so mention offsets into the
	// original content remain valid in the censored text.
	content, flagged := s.moderator.Censor(incoming.Content)
	if len(flagged) > 0 {
		s.log.Info("Censored message content",
			"channel", channel.ID,
			"sender", senderID,
			"words", len(flagged))
	}
	info := whatlanggo.Detect(content)
	s.log.Debug("Message language detected",
		"channel", channel.ID,
		"language", info.Lang.Iso6391())

	spans := s.filterSpans(content, incoming.Mentions, channel.ID)
	fragments, err := mentions.Parse(content, spans, s.users)
	if err != nil {
		return chat.OutgoingMessage{}, nil, err
	}

	stored, err := s.messages.StoreMessage(chat.Message{
		ChannelID:  channel.ID,
		SenderID:   senderID,
		RawContent: content,
		Fragments:  fragments,
	})
	if err != nil {
		return chat.OutgoingMessage{}, nil, err
	}

	sender := chat.UserDetails{ID: senderID, Name: senderName}
	outgoing := chat.OutgoingMessage{
		ID:        stored.ID,
		Fragments: stored.Fragments,
		Date:      stored.Timestamp,
		User:      sender,
	}

	// A user mentioned several times in one message is notified once.
	mentioned := lo.UniqBy(spans, func(span mentions.Span) domain.UserID {
		return span.UserID
	})
	notifications := make([]chat.OutgoingMention, 0, len(mentioned))
	for _, span := range mentioned {
		record, err := s.mentionLog.Record(chat.MentionRecord{
			MentionedUserID: span.UserID,
			ChannelID:       channel.ID,
			RenovationID:    renovation.ID,
			SenderID:        senderID,
			MessageContent:  content,
			Timestamp:       stored.Timestamp,
		})
		if err != nil {
			return chat.OutgoingMessage{}, nil, err
		}
		notifications = append(notifications, chat.OutgoingMention{
			RenovationID:   renovation.ID,
			RenovationName: renovation.Name,
			ChannelID:      channel.ID,
			ChannelName:    channel.Name,
			Sender:         sender,
			MessageContent: record.MessageContent,
			Timestamp:      record.Timestamp,
		})
	}

	s.router.Publish(outgoing, contract.ChannelTopic(channel.ID))
	for i, span := range mentioned {
		s.router.Publish(notifications[i], contract.MentionTopic(span.UserID))
	}
	return outgoing, notifications, nil
}

// filterSpans drops client-supplied mention spans that do not hold up on the
// server: out-of-range offsets, spans not anchored on the trigger, unknown
// users and users outside the channel. Dropping is silent; the span text
// stays in the message as plain text.
func (s *ChatService) filterSpans(content string, incoming []chat.IncomingMention, channelID domain.ChannelID) []mentions.Span {
	runes := []rune(content)
	var spans []mentions.Span
	for _, m := range incoming {
		if m.StartPosition < 0 || m.StartPosition >= len(runes) || m.EndPosition > len(runes) {
			continue
		}
		if runes[m.StartPosition] != '@' {
			continue
		}
		if _, known := s.users.DisplayName(m.UserID); !known {
			s.log.Debug("Dropping mention of unknown user", "user", m.UserID)
			continue
		}
		if !s.channels.IsMember(channelID, m.UserID) {
			s.log.Debug("Dropping mention of non-member", "user", m.UserID, "channel", channelID)
			continue
		}
		spans = append(spans, mentions.Span{
			UserID: m.UserID,
			Start:  m.StartPosition,
			End:    m.EndPosition,
		})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	return spans
}

// Messages pages through a channel's history, newest first. A limit <= 0
// falls back to DefaultMessageLimit.
func (s *ChatService) Messages(channelID domain.ChannelID, cursor *string, limit int) ([]chat.Message, *string, error) {
	if _, ok := s.channels.Channel(channelID); !ok {
		return nil, nil, errors.ErrChannelNotFound
	}
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return s.messages.GetMessages(channelID, cursor, limit)
}

// UnseenMentions returns the user's unseen mention notifications, newest
// first, in the same shape they were originally pushed in.
func (s *ChatService) UnseenMentions(userID domain.UserID) ([]chat.OutgoingMention, error) {
	records, err := s.mentionLog.Unseen(userID)
	if err != nil {
		return nil, err
	}
	notifications := make([]chat.OutgoingMention, 0, len(records))
	for _, record := range records {
		notifications = append(notifications, s.toNotification(record))
	}
	return notifications, nil
}

// MarkMentionsSeen clears the user's unseen mentions for one channel, which
// is what opening that channel does. Returns the number cleared.
func (s *ChatService) MarkMentionsSeen(userID domain.UserID, channelID domain.ChannelID) (int, error) {
	return s.mentionLog.MarkSeen(userID, channelID)
}

func (s *ChatService) toNotification(record chat.MentionRecord) chat.OutgoingMention {
	notification := chat.OutgoingMention{
		RenovationID:   record.RenovationID,
		ChannelID:      record.ChannelID,
		MessageContent: record.MessageContent,
		Timestamp:      record.Timestamp,
		Sender:         chat.UserDetails{ID: record.SenderID},
	}
	if renovation, ok := s.renovations.Renovation(record.RenovationID); ok {
		notification.RenovationName = renovation.Name
	}
	if channel, ok := s.channels.Channel(record.ChannelID); ok {
		notification.ChannelName = channel.Name
	}
	if name, ok := s.users.DisplayName(record.SenderID); ok {
		notification.Sender.Name = name
	}
	return notification
}

func (s *ChatService) lockFor(channelID domain.ChannelID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.channelLocks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		s.channelLocks[channelID] = lock
	}
	return lock
}
