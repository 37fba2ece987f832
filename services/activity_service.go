//go:generate go run go.uber.org/mock/mockgen -source=activity_service.go -destination=../mocks/mock_activity_service.go -package=mocks

// Package services exposes the application operations: recording and reading
// the activity feed, and the chat submission pipeline. Services own the
// business rules; storage and delivery stay behind their contracts.
package services

import (
	"log/slog"
	"sort"

	"collabrick/contract"
	"collabrick/domain"
	"collabrick/domain/activity"
	"collabrick/errors"
	"collabrick/repositories"
)

// DefaultFeedLimit bounds feed reads when the caller does not ask for a
// specific page size.
const DefaultFeedLimit = 10

type IActivityService interface {
	Record(event activity.Event) (activity.Event, error)
	Feed(renovationID domain.RenovationID, viewerID domain.UserID, limit int) ([]activity.LiveUpdate, error)
	UserFeed(userID domain.UserID, limit int) ([]activity.LiveUpdate, error)
}

var _ IActivityService = (*ActivityService)(nil)

// ActivityService records feed events and pushes them to the members who are
// allowed to see them. Invite responses are the owner's business: they go to
// the owner's feed stream only, while every other event type reaches all
// members of the renovation.
type ActivityService struct {
	log         *slog.Logger
	repository  repositories.IActivityRepository
	renovations contract.IRenovationDirectory
	router      contract.IRouter
}

func NewActivityService(
	log *slog.Logger,
	repository repositories.IActivityRepository,
	renovations contract.IRenovationDirectory,
	router contract.IRouter,
) *ActivityService {
	return &ActivityService{
		log:         log,
		repository:  repository,
		renovations: renovations,
		router:      router,
	}
}

// Record persists the event and broadcasts its live update. Persisting and
// broadcasting are deliberately decoupled: a push nobody receives is fine,
// the stored feed is the source of truth.
func (s *ActivityService) Record(event activity.Event) (activity.Event, error) {
	renovation, ok := s.renovations.Renovation(event.RenovationID)
	if !ok {
		return activity.Event{}, errors.ErrRenovationNotFound
	}

	stored, err := s.repository.Append(event)
	if err != nil {
		return activity.Event{}, err
	}

	update := activity.BuildLiveUpdate(stored, renovation.Name)
	s.router.Publish(update, s.audienceFor(renovation, stored)...)

	s.log.Debug("Recorded activity",
		"renovation", stored.RenovationID,
		"type", stored.Type,
		"id", stored.ID)
	return stored, nil
}

// audienceFor resolves the feed topics an event is pushed to. Invite events
// target the owner alone; everything else targets every member.
func (s *ActivityService) audienceFor(renovation domain.Renovation, event activity.Event) []contract.Topic {
	if event.Type.Category() == activity.CategoryInvite {
		return []contract.Topic{contract.FeedTopic(renovation.OwnerID)}
	}
	members := s.renovations.Members(renovation.ID)
	topics := make([]contract.Topic, 0, len(members))
	for _, member := range members {
		topics = append(topics, contract.FeedTopic(member.UserID))
	}
	return topics
}

// Feed reads a renovation's recent activity for one viewer, newest first.
// The viewer's role drives visibility: members never see invite events.
// A limit <= 0 falls back to DefaultFeedLimit.
func (s *ActivityService) Feed(renovationID domain.RenovationID, viewerID domain.UserID, limit int) ([]activity.LiveUpdate, error) {
	renovation, ok := s.renovations.Renovation(renovationID)
	if !ok {
		return nil, errors.ErrRenovationNotFound
	}
	role, ok := s.renovations.RoleOf(renovationID, viewerID)
	if !ok {
		return nil, errors.ErrNotRenovationMember
	}
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	events, err := s.repository.Feed(renovationID, role, limit)
	if err != nil {
		return nil, err
	}
	updates := make([]activity.LiveUpdate, 0, len(events))
	for _, event := range events {
		updates = append(updates, activity.BuildLiveUpdate(event, renovation.Name))
	}
	return updates, nil
}

// UserFeed merges the user's visible activity across every renovation they
// belong to into one newest-first feed. Each renovation is read with the
// user's role there, so invite events only surface where they are the owner.
func (s *ActivityService) UserFeed(userID domain.UserID, limit int) ([]activity.LiveUpdate, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}

	type namedEvent struct {
		event activity.Event
		name  string
	}
	var merged []namedEvent
	for _, renovationID := range s.renovations.RenovationsFor(userID) {
		renovation, ok := s.renovations.Renovation(renovationID)
		if !ok {
			continue
		}
		role, ok := s.renovations.RoleOf(renovationID, userID)
		if !ok {
			continue
		}
		events, err := s.repository.Feed(renovationID, role, limit)
		if err != nil {
			return nil, err
		}
		for _, event := range events {
			merged = append(merged, namedEvent{event: event, name: renovation.Name})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i].event, merged[j].event
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	updates := make([]activity.LiveUpdate, 0, len(merged))
	for _, ne := range merged {
		updates = append(updates, activity.BuildLiveUpdate(ne.event, ne.name))
	}
	return updates, nil
}
