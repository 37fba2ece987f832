// Package chat defines chat messages, their fragment decomposition, and the
// wire payloads exchanged with clients.
package chat

import (
	"encoding/json"

	"collabrick/domain"
)

type FragmentKind string

const (
	FragmentText    FragmentKind = "text"
	FragmentMention FragmentKind = "mention"
)

// Fragment is one typed piece of a message. A message's fragments are
// contiguous and non-overlapping: concatenating their display text in order
// reconstructs the message with mention spans replaced by resolved names.
type Fragment interface {
	Kind() FragmentKind
	// Text is the display form of the fragment.
	Text() string
}

// TextFragment holds a run of plain message content.
type TextFragment struct {
	Content string
}

func (TextFragment) Kind() FragmentKind { return FragmentText }
func (f TextFragment) Text() string     { return f.Content }

func (f TextFragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type FragmentKind `json:"type"`
		Text string       `json:"text"`
	}{FragmentText, f.Content})
}

// MentionFragment marks a user mention, rendered as "@name" by clients.
type MentionFragment struct {
	MentionedUserID   domain.UserID
	MentionedUserName string
}

func (MentionFragment) Kind() FragmentKind { return FragmentMention }
func (f MentionFragment) Text() string     { return "@" + f.MentionedUserName }

func (f MentionFragment) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   FragmentKind  `json:"type"`
		UserID domain.UserID `json:"mentionedUserId"`
		Name   string        `json:"mentionedUserName"`
	}{FragmentMention, f.MentionedUserID, f.MentionedUserName})
}
