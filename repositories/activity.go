//go:generate go run go.uber.org/mock/mockgen -source=activity.go -destination=../mocks/mock_activity_repository.go -package=mocks
package repositories

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"collabrick/domain"
	"collabrick/domain/activity"
)

const activitySeqBandwidth = 128

type IActivityRepository interface {
	Append(event activity.Event) (activity.Event, error)
	Feed(renovationID domain.RenovationID, role domain.MemberRole, limit int) ([]activity.Event, error)
	Partitions() ([]domain.RenovationID, error)
	TrimPartition(renovationID domain.RenovationID, category activity.Category, keep int) (int, error)
}

// ActivityRepository persists feed events in BadgerDB.
//
// The key is formatted as "act:{renovation_id}:{timestamp_padded}:{id_padded}"
// so that a reverse prefix scan yields events ordered by timestamp desc with
// ties broken by id desc. The retention trimmer ranks with the exact same
// scan, so "kept" and "visible" always agree.
type ActivityRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewActivityRepository(db *badger.DB, log *slog.Logger) (*ActivityRepository, error) {
	seq, err := db.GetSequence([]byte("seq:activity"), activitySeqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("activity sequence: %w", err)
	}
	return &ActivityRepository{db: db, seq: seq, log: log}, nil
}

// Close releases the id sequence. Unused ids in the current lease are lost,
// which only leaves gaps, never reuses an id.
func (r *ActivityRepository) Close() error {
	return r.seq.Release()
}

// storedActivity is the flat on-disk shape of an event. The variant detail
// is rebuilt from the populated fields on read.
type storedActivity struct {
	ID            int64
	Renovation    int64
	Type          string
	At            int64
	ActorID       int64
	ActorName     string
	TaskID        int64
	TaskName      string
	NewState      string
	ExpenseID     int64
	ExpenseName   string
	ExpenseAmount float64
	Email         string
}

// Append assigns the monotonic id and the store timestamp, then persists the
// event. The returned copy carries both.
func (r *ActivityRepository) Append(event activity.Event) (activity.Event, error) {
	next, err := r.seq.Next()
	if err != nil {
		return activity.Event{}, fmt.Errorf("next activity id: %w", err)
	}
	event.ID = int64(next) + 1
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := msgpack.Marshal(fromEvent(event))
	if err != nil {
		return activity.Event{}, err
	}
	key := activityKey(event.RenovationID, event.Timestamp, event.ID)
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return event, err
}

// Feed returns the renovation's most recent events, newest first. A MEMBER
// never sees invite-category events; an OWNER sees everything. A limit <= 0
// means no limit. Feed is a pure read.
func (r *ActivityRepository) Feed(renovationID domain.RenovationID, role domain.MemberRole, limit int) ([]activity.Event, error) {
	var events []activity.Event
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("act:%d:", renovationID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(seekEnd(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(events) == limit {
				break
			}
			var stored storedActivity
			err := it.Item().Value(func(value []byte) error {
				return msgpack.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			event := toEvent(stored)
			if role != domain.RoleOwner && event.Type.Category() == activity.CategoryInvite {
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	return events, err
}

// Partitions lists every renovation that currently has stored events.
func (r *ActivityRepository) Partitions() ([]domain.RenovationID, error) {
	var ids []domain.RenovationID
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte("act:")
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		var last domain.RenovationID = -1
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := renovationFromKey(it.Item().Key())
			if err != nil {
				return err
			}
			// Keys are sorted, so duplicates arrive adjacent.
			if id != last {
				ids = append(ids, id)
				last = id
			}
		}
		return nil
	})
	return ids, err
}

// TrimPartition deletes every event of the given category whose recency rank
// within the renovation exceeds keep. Ranking is the reverse key order, so it
// matches Feed exactly. The pass is idempotent: re-running it deletes
// nothing new, and events inserted concurrently either join the ranking or
// survive untouched until the next pass.
func (r *ActivityRepository) TrimPartition(renovationID domain.RenovationID, category activity.Category, keep int) (int, error) {
	var doomed [][]byte
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("act:%d:", renovationID))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		rank := 0
		for it.Seek(seekEnd(prefix)); it.ValidForPrefix(prefix); it.Next() {
			var stored storedActivity
			err := it.Item().Value(func(value []byte) error {
				return msgpack.Unmarshal(value, &stored)
			})
			if err != nil {
				return err
			}
			if activity.Type(stored.Type).Category() != category {
				continue
			}
			rank++
			if rank > keep {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doomed), nil
}

func activityKey(renovationID domain.RenovationID, at time.Time, id int64) []byte {
	return []byte(fmt.Sprintf("act:%d:%019d:%012d", renovationID, at.UnixNano(), id))
}

// seekEnd positions a reverse iterator just past the newest key under prefix.
func seekEnd(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xFF)
}

func renovationFromKey(key []byte) (domain.RenovationID, error) {
	parts := bytes.SplitN(key, []byte(":"), 3)
	if len(parts) < 3 {
		return 0, fmt.Errorf("malformed activity key %q", key)
	}
	id, err := strconv.ParseInt(string(parts[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed activity key %q: %w", key, err)
	}
	return domain.RenovationID(id), nil
}

func fromEvent(event activity.Event) storedActivity {
	stored := storedActivity{
		ID:         event.ID,
		Renovation: int64(event.RenovationID),
		Type:       string(event.Type),
		At:         event.Timestamp.UnixNano(),
	}
	switch d := event.Detail.(type) {
	case activity.BudgetDetail:
		stored.ActorID = int64(d.Actor.UserID)
		stored.ActorName = d.Actor.Name
	case activity.TaskDetail:
		stored.ActorID = int64(d.Actor.UserID)
		stored.ActorName = d.Actor.Name
		stored.TaskID = d.TaskID
		stored.TaskName = d.TaskName
		stored.NewState = string(d.NewState)
	case activity.ExpenseDetail:
		stored.ActorID = int64(d.Actor.UserID)
		stored.ActorName = d.Actor.Name
		stored.ExpenseID = d.ExpenseID
		stored.ExpenseName = d.ExpenseName
		stored.ExpenseAmount = d.ExpenseAmount
	case activity.InviteDetail:
		stored.ActorID = int64(d.Actor.UserID)
		stored.ActorName = d.Actor.Name
		stored.Email = d.Email
	}
	return stored
}

func toEvent(stored storedActivity) activity.Event {
	event := activity.Event{
		ID:           stored.ID,
		RenovationID: domain.RenovationID(stored.Renovation),
		Type:         activity.Type(stored.Type),
		Timestamp:    time.Unix(0, stored.At).UTC(),
	}
	actor := activity.Actor{UserID: domain.UserID(stored.ActorID), Name: stored.ActorName}
	switch event.Type {
	case activity.BudgetEdited:
		event.Detail = activity.BudgetDetail{Actor: actor}
	case activity.ExpenseAdded:
		event.Detail = activity.ExpenseDetail{
			Actor:         actor,
			ExpenseID:     stored.ExpenseID,
			ExpenseName:   stored.ExpenseName,
			ExpenseAmount: stored.ExpenseAmount,
		}
	case activity.InviteAccepted, activity.InviteDeclined:
		event.Detail = activity.InviteDetail{Actor: actor, Email: stored.Email}
	default:
		event.Detail = activity.TaskDetail{
			Actor:    actor,
			TaskID:   stored.TaskID,
			TaskName: stored.TaskName,
			NewState: activity.TaskState(stored.NewState),
		}
	}
	return event
}
