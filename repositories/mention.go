//go:generate go run go.uber.org/mock/mockgen -source=mention.go -destination=../mocks/mock_mention_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"collabrick/domain"
	"collabrick/domain/chat"
)

type IMentionRepository interface {
	Record(mention chat.MentionRecord) (chat.MentionRecord, error)
	Unseen(userID domain.UserID) ([]chat.MentionRecord, error)
	MarkSeen(userID domain.UserID, channelID domain.ChannelID) (int, error)
}

// MentionRepository is the per-user mention inbox.
//
// The key is formatted as "mnt:{user_id}:{timestamp_padded}:{uuid}". The
// UUID acts as a collision disconnector for mentions landing on the same
// nanosecond; the padded timestamp keeps the inbox time-ordered.
type MentionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMentionRepository(db *badger.DB, log *slog.Logger) *MentionRepository {
	return &MentionRepository{db: db, log: log}
}

type storedMention struct {
	ID         string
	User       int64
	Channel    int64
	Renovation int64
	Sender     int64
	Content    string
	At         int64
	Seen       bool
}

// Record stores a fresh, unseen mention for the mentioned user.
func (m *MentionRepository) Record(mention chat.MentionRecord) (chat.MentionRecord, error) {
	if mention.ID == uuid.Nil {
		mention.ID = uuid.New()
	}
	if mention.Timestamp.IsZero() {
		mention.Timestamp = time.Now().UTC()
	}

	value, err := msgpack.Marshal(fromMention(mention))
	if err != nil {
		return chat.MentionRecord{}, err
	}
	key := mentionKey(mention.MentionedUserID, mention.Timestamp, mention.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return mention, err
}

// Unseen returns the user's unseen mentions, newest first.
func (m *MentionRepository) Unseen(userID domain.UserID) ([]chat.MentionRecord, error) {
	var mentions []chat.MentionRecord
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("mnt:%d:", userID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekEnd(prefix)); it.ValidForPrefix(prefix); it.Next() {
			var stored storedMention
			err := it.Item().Value(func(value []byte) error {
				return msgpack.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			if stored.Seen {
				continue
			}
			mention, err := toMention(stored)
			if err != nil {
				return err
			}
			mentions = append(mentions, mention)
		}
		return nil
	})
	return mentions, err
}

// MarkSeen flips every unseen mention the user received in the given channel
// and reports how many were flipped. Opening a channel clears its mentions.
func (m *MentionRepository) MarkSeen(userID domain.UserID, channelID domain.ChannelID) (int, error) {
	seen := 0
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("mnt:%d:", userID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type rewrite struct {
			key   []byte
			value []byte
		}
		var rewrites []rewrite
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var stored storedMention
			err := it.Item().Value(func(value []byte) error {
				return msgpack.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			if stored.Seen || stored.Channel != int64(channelID) {
				continue
			}
			stored.Seen = true
			value, err := msgpack.Marshal(stored)
			if err != nil {
				return err
			}
			rewrites = append(rewrites, rewrite{key: it.Item().KeyCopy(nil), value: value})
		}
		for _, rw := range rewrites {
			if err := txn.Set(rw.key, rw.value); err != nil {
				return err
			}
		}
		seen = len(rewrites)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seen, nil
}

func mentionKey(userID domain.UserID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("mnt:%d:%019d:%s", userID, at.UnixNano(), id))
}

func fromMention(mention chat.MentionRecord) storedMention {
	return storedMention{
		ID:         mention.ID.String(),
		User:       int64(mention.MentionedUserID),
		Channel:    int64(mention.ChannelID),
		Renovation: int64(mention.RenovationID),
		Sender:     int64(mention.SenderID),
		Content:    mention.MessageContent,
		At:         mention.Timestamp.UnixNano(),
		Seen:       mention.Seen,
	}
}

func toMention(stored storedMention) (chat.MentionRecord, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return chat.MentionRecord{}, err
	}
	return chat.MentionRecord{
		ID:              parsedID,
		MentionedUserID: domain.UserID(stored.User),
		ChannelID:       domain.ChannelID(stored.Channel),
		RenovationID:    domain.RenovationID(stored.Renovation),
		SenderID:        domain.UserID(stored.Sender),
		MessageContent:  stored.Content,
		Timestamp:       time.Unix(0, stored.At).UTC(),
		Seen:            stored.Seen,
	}, nil
}
