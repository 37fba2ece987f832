package errors

import "fmt"

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no censored words loaded")

	ErrChatMessageBlank    = fmt.Errorf("message cannot be blank")
	ErrChatMessageTooLong  = fmt.Errorf("message must be 2048 characters or less")
	ErrInvalidMentionSpan  = fmt.Errorf("invalid mention span")
	ErrChannelNotFound     = fmt.Errorf("chat channel not found")
	ErrChannelUnauthorised = fmt.Errorf("user is not a member of this channel")
	ErrUserNotFound        = fmt.Errorf("user not found")
	ErrRenovationNotFound  = fmt.Errorf("renovation not found")
	ErrNotRenovationMember = fmt.Errorf("user is not a member of this renovation")
)
