package activity

import (
	"time"

	"collabrick/contract"
	"collabrick/domain"
)

// LiveUpdate is the flat wire shape of a feed event, pushed to dashboard
// subscribers and returned by feed reads. Optional fields are only
// populated for the relevant activity type; clients ignore zero values.
type LiveUpdate struct {
	RenovationID   domain.RenovationID `json:"renovationId"`
	RenovationName string              `json:"renovationName"`
	ActivityType   Type                `json:"activityType"`
	Timestamp      time.Time           `json:"timestamp"`

	UserID     domain.UserID `json:"userId,omitempty"`
	SenderName string        `json:"senderName,omitempty"`

	TaskID   int64  `json:"taskId,omitempty"`
	TaskName string `json:"taskName,omitempty"`

	ExpenseID     int64   `json:"expenseId,omitempty"`
	ExpenseName   string  `json:"expenseName,omitempty"`
	ExpenseAmount float64 `json:"expenseAmount,omitempty"`

	OldState TaskState `json:"oldState,omitempty"`
	NewState TaskState `json:"newState,omitempty"`

	Email string `json:"email,omitempty"`
}

func (LiveUpdate) PayloadKind() contract.PayloadKind { return contract.KindActivity }

// BuildLiveUpdate flattens an event into its wire shape. The renovation
// name is resolved by the caller; the rest comes off the detail variant.
func BuildLiveUpdate(evt Event, renovationName string) LiveUpdate {
	dto := LiveUpdate{
		RenovationID:   evt.RenovationID,
		RenovationName: renovationName,
		ActivityType:   evt.Type,
		Timestamp:      evt.Timestamp,
		OldState:       evt.Type.OldState(),
	}

	switch d := evt.Detail.(type) {
	case BudgetDetail:
		dto.UserID = d.Actor.UserID
		dto.SenderName = d.Actor.Name
	case TaskDetail:
		dto.UserID = d.Actor.UserID
		dto.SenderName = d.Actor.Name
		dto.TaskID = d.TaskID
		dto.TaskName = d.TaskName
		dto.NewState = d.NewState
	case ExpenseDetail:
		dto.UserID = d.Actor.UserID
		dto.SenderName = d.Actor.Name
		dto.ExpenseID = d.ExpenseID
		dto.ExpenseName = d.ExpenseName
		dto.ExpenseAmount = d.ExpenseAmount
	case InviteDetail:
		dto.UserID = d.Actor.UserID
		dto.SenderName = d.Actor.Name
		dto.Email = d.Email
	}
	return dto
}
