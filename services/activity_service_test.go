package services

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"collabrick/contract"
	"collabrick/directory"
	"collabrick/domain"
	"collabrick/domain/activity"
	"collabrick/errors"
	"collabrick/repositories"
)

type publication struct {
	payload contract.Payload
	topics  []contract.Topic
}

// fakeRouter records publications synchronously so tests can assert on the
// exact payloads and topics without a running fanout worker.
type fakeRouter struct {
	mu           sync.Mutex
	publications []publication
}

func (f *fakeRouter) Publish(payload contract.Payload, topics ...contract.Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publications = append(f.publications, publication{payload: payload, topics: topics})
}

func (f *fakeRouter) published() []publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publication{}, f.publications...)
}

func (f *fakeRouter) topicsFor(kind contract.PayloadKind) []contract.Topic {
	var topics []contract.Topic
	for _, p := range f.published() {
		if p.payload.PayloadKind() == kind {
			topics = append(topics, p.topics...)
		}
	}
	return topics
}

func testActivityRepository(t *testing.T) *repositories.ActivityRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repository, err := repositories.NewActivityRepository(db, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

// testRenovations builds renovation 1 "Loft" owned by user 1 with user 2 as
// a plain member.
func testRenovations() *directory.Renovations {
	renovations := directory.NewRenovations()
	renovations.Put(domain.Renovation{ID: 1, Name: "Loft", OwnerID: 1})
	renovations.AddMember(1, 2, domain.RoleMember)
	return renovations
}

func Test_Record_Broadcasts_To_All_Members(t *testing.T) {
	req := require.New(t)
	router := &fakeRouter{}
	service := NewActivityService(slog.Default(), testActivityRepository(t), testRenovations(), router)

	stored, err := service.Record(activity.Event{
		RenovationID: 1,
		Type:         activity.TaskAdded,
		Detail: activity.TaskDetail{
			Actor:    activity.Actor{UserID: 2, Name: "Bob"},
			TaskID:   5,
			TaskName: "demolition",
			NewState: activity.TaskNotStarted,
		},
	})
	req.NoError(err)
	req.Positive(stored.ID)

	req.ElementsMatch(
		[]contract.Topic{contract.FeedTopic(1), contract.FeedTopic(2)},
		router.topicsFor(contract.KindActivity),
	)

	update := router.published()[0].payload.(activity.LiveUpdate)
	req.Equal("Loft", update.RenovationName)
	req.Equal(activity.TaskAdded, update.ActivityType)
	req.Equal("demolition", update.TaskName)
	req.Equal("Bob", update.SenderName)
}

func Test_Record_Invite_Goes_To_Owner_Only(t *testing.T) {
	req := require.New(t)
	router := &fakeRouter{}
	service := NewActivityService(slog.Default(), testActivityRepository(t), testRenovations(), router)

	_, err := service.Record(activity.Event{
		RenovationID: 1,
		Type:         activity.InviteDeclined,
		Detail:       activity.InviteDetail{Actor: activity.Actor{UserID: 3, Name: "Clara"}},
	})
	req.NoError(err)

	req.Equal(
		[]contract.Topic{contract.FeedTopic(1)},
		router.topicsFor(contract.KindActivity),
	)
}

func Test_Record_Unknown_Renovation(t *testing.T) {
	req := require.New(t)
	service := NewActivityService(slog.Default(), testActivityRepository(t), testRenovations(), &fakeRouter{})

	_, err := service.Record(activity.Event{RenovationID: 99, Type: activity.TaskAdded})
	req.ErrorIs(err, errors.ErrRenovationNotFound)
}

func Test_Feed_Respects_Viewer_Role(t *testing.T) {
	req := require.New(t)
	service := NewActivityService(slog.Default(), testActivityRepository(t), testRenovations(), &fakeRouter{})

	_, err := service.Record(activity.Event{
		RenovationID: 1,
		Type:         activity.TaskAdded,
		Detail:       activity.TaskDetail{Actor: activity.Actor{UserID: 2, Name: "Bob"}},
	})
	req.NoError(err)
	_, err = service.Record(activity.Event{
		RenovationID: 1,
		Type:         activity.InviteAccepted,
		Detail:       activity.InviteDetail{Actor: activity.Actor{UserID: 3, Name: "Clara"}},
	})
	req.NoError(err)

	ownerFeed, err := service.Feed(1, 1, 0)
	req.NoError(err)
	req.Len(ownerFeed, 2)

	memberFeed, err := service.Feed(1, 2, 0)
	req.NoError(err)
	req.Len(memberFeed, 1)
	req.Equal(activity.TaskAdded, memberFeed[0].ActivityType)

	_, err = service.Feed(1, 42, 0)
	req.ErrorIs(err, errors.ErrNotRenovationMember)

	_, err = service.Feed(99, 1, 0)
	req.ErrorIs(err, errors.ErrRenovationNotFound)
}

func Test_UserFeed_Merges_Renovations_Newest_First(t *testing.T) {
	req := require.New(t)
	renovations := testRenovations()
	renovations.Put(domain.Renovation{ID: 2, Name: "Garage", OwnerID: 2})
	service := NewActivityService(slog.Default(), testActivityRepository(t), renovations, &fakeRouter{})

	at := time.Now().UTC()
	_, err := service.Record(activity.Event{
		RenovationID: 1,
		Type:         activity.TaskAdded,
		Timestamp:    at,
		Detail:       activity.TaskDetail{Actor: activity.Actor{UserID: 2, Name: "Bob"}},
	})
	req.NoError(err)
	_, err = service.Record(activity.Event{
		RenovationID: 2,
		Type:         activity.BudgetEdited,
		Timestamp:    at.Add(time.Minute),
		Detail:       activity.BudgetDetail{Actor: activity.Actor{UserID: 2, Name: "Bob"}},
	})
	req.NoError(err)

	feed, err := service.UserFeed(2, 0)
	req.NoError(err)
	req.Len(feed, 2)
	req.Equal("Garage", feed[0].RenovationName)
	req.Equal("Loft", feed[1].RenovationName)
}

func Test_UserFeed_Default_Limit(t *testing.T) {
	req := require.New(t)
	service := NewActivityService(slog.Default(), testActivityRepository(t), testRenovations(), &fakeRouter{})

	at := time.Now().UTC()
	for i := 0; i < 15; i++ {
		_, err := service.Record(activity.Event{
			RenovationID: 1,
			Type:         activity.TaskAdded,
			Timestamp:    at.Add(time.Duration(i) * time.Second),
			Detail:       activity.TaskDetail{Actor: activity.Actor{UserID: 2, Name: "Bob"}},
		})
		req.NoError(err)
	}

	feed, err := service.UserFeed(2, 0)
	req.NoError(err)
	req.Len(feed, DefaultFeedLimit)
}
