// Package activity defines the per-renovation activity feed events: the
// closed set of activity types, their category partition, and the variant
// payloads each type carries.
package activity

import (
	"time"

	"collabrick/domain"
)

// Type tags a feed event. The set is closed: retention and visibility
// decisions key off it.
type Type string

const (
	BudgetEdited Type = "BUDGET_EDITED"

	ExpenseAdded Type = "EXPENSE_ADDED"

	InviteAccepted Type = "INVITE_ACCEPTED"
	InviteDeclined Type = "INVITE_DECLINED"

	TaskAdded  Type = "TASK_ADDED"
	TaskEdited Type = "TASK_EDITED"

	TaskChangedFromNotStarted Type = "TASK_CHANGED_FROM_NOT_STARTED"
	TaskChangedFromInProgress Type = "TASK_CHANGED_FROM_IN_PROGRESS"
	TaskChangedFromBlocked    Type = "TASK_CHANGED_FROM_BLOCKED"
	TaskChangedFromCompleted  Type = "TASK_CHANGED_FROM_COMPLETED"
	TaskChangedFromCancelled  Type = "TASK_CHANGED_FROM_CANCELLED"
)

// Category partitions the feed for retention and visibility purposes.
// Invite events are only ever shown to the renovation owner; everything
// else is general.
type Category string

const (
	CategoryInvite  Category = "INVITE"
	CategoryGeneral Category = "GENERAL"
)

func (t Type) Category() Category {
	if t == InviteAccepted || t == InviteDeclined {
		return CategoryInvite
	}
	return CategoryGeneral
}

// OldState derives the previous task state encoded in a
// TASK_CHANGED_FROM_* type. Returns "" for every other type.
func (t Type) OldState() TaskState {
	switch t {
	case TaskChangedFromNotStarted:
		return TaskNotStarted
	case TaskChangedFromInProgress:
		return TaskInProgress
	case TaskChangedFromBlocked:
		return TaskBlocked
	case TaskChangedFromCompleted:
		return TaskCompleted
	case TaskChangedFromCancelled:
		return TaskCancelled
	default:
		return ""
	}
}

type TaskState string

const (
	TaskNotStarted TaskState = "NOT_STARTED"
	TaskInProgress TaskState = "IN_PROGRESS"
	TaskBlocked    TaskState = "BLOCKED"
	TaskCompleted  TaskState = "COMPLETED"
	TaskCancelled  TaskState = "CANCELLED"
)

// Event is an immutable feed entry. ID and Timestamp are assigned by the
// store at append time; the detail variant matches the type's payload.
// Events are never mutated after append and only the retention trimmer
// deletes them.
type Event struct {
	ID           int64
	RenovationID domain.RenovationID
	Type         Type
	Timestamp    time.Time
	Detail       Detail
}

// Actor identifies the user whose domain action produced an event.
type Actor struct {
	UserID domain.UserID
	Name   string
}

// Detail is the tagged union of per-type payloads. Exactly one variant is
// attached to an event; which one depends on the event's Type.
type Detail interface {
	activityDetail()
}

// BudgetDetail accompanies BUDGET_EDITED.
type BudgetDetail struct {
	Actor Actor
}

// TaskDetail accompanies TASK_ADDED, TASK_EDITED and the
// TASK_CHANGED_FROM_* types. NewState is the state after the change.
type TaskDetail struct {
	Actor    Actor
	TaskID   int64
	TaskName string
	NewState TaskState
}

// ExpenseDetail accompanies EXPENSE_ADDED.
type ExpenseDetail struct {
	Actor         Actor
	ExpenseID     int64
	ExpenseName   string
	ExpenseAmount float64
}

// InviteDetail accompanies INVITE_ACCEPTED and INVITE_DECLINED. Email is
// only set when the invitation targeted an address with no account yet.
type InviteDetail struct {
	Actor Actor
	Email string
}

func (BudgetDetail) activityDetail()  {}
func (TaskDetail) activityDetail()    {}
func (ExpenseDetail) activityDetail() {}
func (InviteDetail) activityDetail()  {}
