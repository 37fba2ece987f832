// Package validation holds the chat message rules checked before any
// parsing or persistence happens.
package validation

import (
	"strings"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/go-playground/validator/v10"

	"collabrick/domain/chat"
	"collabrick/errors"
)

// ChatMessageMaxLength is measured in user-perceived characters (grapheme
// clusters), so a multi-codepoint emoji counts as one unit.
const ChatMessageMaxLength = 2048

var validate = validator.New()

// ValidateIncomingMessage checks the wire shape of a submission: required
// ids and non-negative, ordered mention offsets. Business rules (blank,
// length) are checked separately by ValidateMessageContent.
func ValidateIncomingMessage(msg chat.IncomingMessage) error {
	return validate.Struct(msg)
}

// ValidateMessageContent enforces the blank and length rules on a trimmed
// copy of the content. The untrimmed content is what gets persisted, so
// mention offsets stay valid.
func ValidateMessageContent(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.ErrChatMessageBlank
	}
	if CountGraphemes(trimmed) > ChatMessageMaxLength {
		return errors.ErrChatMessageTooLong
	}
	return nil
}

// CountGraphemes counts user-perceived characters in s.
func CountGraphemes(s string) int {
	count := 0
	tokens := graphemes.FromString(s)
	for tokens.Next() {
		count++
	}
	return count
}
