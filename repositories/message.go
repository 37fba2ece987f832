//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/vmihailenco/msgpack/v5"

	"collabrick/domain"
	"collabrick/domain/chat"
)

const messageSeqBandwidth = 128

type IMessageRepository interface {
	StoreMessage(message chat.Message) (chat.Message, error)
	GetMessages(channelID domain.ChannelID, cursor *string, limit int) ([]chat.Message, *string, error)
}

// MessageRepository persists chat messages in BadgerDB.
//
// The key is formatted as "msg:{channel_id}:{timestamp_padded}:{id_padded}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Break exact-timestamp ties deterministically with the message id.
type MessageRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:message"), messageSeqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log}, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type storedMessage struct {
	ID        int64
	Channel   int64
	Sender    int64
	Content   string
	At        int64
	Fragments []storedFragment
}

// storedFragment flattens the fragment variants for disk. Fragments are
// stored verbatim at submission time and never re-derived on read.
type storedFragment struct {
	Kind   string
	Text   string
	UserID int64
	Name   string
}

// StoreMessage assigns the message id and timestamp and persists the message
// with its fragment sequence.
func (m *MessageRepository) StoreMessage(message chat.Message) (chat.Message, error) {
	next, err := m.seq.Next()
	if err != nil {
		return chat.Message{}, fmt.Errorf("next message id: %w", err)
	}
	message.ID = int64(next) + 1
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	value, err := msgpack.Marshal(fromMessage(message))
	if err != nil {
		return chat.Message{}, err
	}
	key := fmt.Sprintf("msg:%d:%019d:%012d", message.ChannelID, message.Timestamp.UnixNano(), message.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return message, err
}

// GetMessages retrieves a channel's messages newest-first using a reverse
// prefix scan. A nil cursor starts at the most recent message; otherwise the
// scan resumes just past the cursor. The returned cursor addresses the
// oldest message of the batch and can be fed back in to page further down.
func (m *MessageRepository) GetMessages(channelID domain.ChannelID, cursor *string, limit int) ([]chat.Message, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%d:", channelID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(byteMessages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var messages []chat.Message
	for _, b := range byteMessages {
		var stored storedMessage
		if err = msgpack.Unmarshal(b, &stored); err != nil {
			return nil, nil, err
		}
		messages = append(messages, toMessage(stored))
	}
	return messages, &lastKey, nil
}

func fromMessage(message chat.Message) storedMessage {
	return storedMessage{
		ID:      message.ID,
		Channel: int64(message.ChannelID),
		Sender:  int64(message.SenderID),
		Content: message.RawContent,
		At:      message.Timestamp.UnixNano(),
		Fragments: lo.Map(message.Fragments, func(f chat.Fragment, _ int) storedFragment {
			switch frag := f.(type) {
			case chat.MentionFragment:
				return storedFragment{
					Kind:   string(chat.FragmentMention),
					UserID: int64(frag.MentionedUserID),
					Name:   frag.MentionedUserName,
				}
			default:
				return storedFragment{Kind: string(chat.FragmentText), Text: f.Text()}
			}
		}),
	}
}

func toMessage(stored storedMessage) chat.Message {
	return chat.Message{
		ID:         stored.ID,
		ChannelID:  domain.ChannelID(stored.Channel),
		SenderID:   domain.UserID(stored.Sender),
		RawContent: stored.Content,
		Timestamp:  time.Unix(0, stored.At).UTC(),
		Fragments: lo.Map(stored.Fragments, func(f storedFragment, _ int) chat.Fragment {
			if f.Kind == string(chat.FragmentMention) {
				return chat.MentionFragment{
					MentionedUserID:   domain.UserID(f.UserID),
					MentionedUserName: f.Name,
				}
			}
			return chat.TextFragment{Content: f.Text}
		}),
	}
}
