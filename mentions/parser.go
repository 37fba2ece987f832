// Package mentions turns raw message text plus client-supplied mention spans
// into an ordered fragment sequence. It is pure apart from one display-name
// lookup per mention.
package mentions

import (
	"fmt"

	"collabrick/domain"
	"collabrick/domain/chat"
	"collabrick/errors"
)

// trigger is the character every mention span must start on.
const trigger = '@'

// Span is one mention inside the text. Offsets are character (rune)
// positions, half-open [Start, End); Start must address the '@' trigger.
type Span struct {
	UserID domain.UserID
	Start  int
	End    int
}

// NameResolver resolves a mentioned user's display name. The second return
// reports whether the user is known.
type NameResolver interface {
	DisplayName(id domain.UserID) (string, bool)
}

// Parse walks raw left to right and splits it into Text and Mention
// fragments. Spans must be in-range, strictly increasing in Start and
// non-overlapping; a violation is a caller contract breach reported as
// ErrInvalidMentionSpan, never repaired. An unresolvable user degrades to a
// Mention fragment with an empty display name.
//
// Zero spans yield a single Text fragment, or none for empty input.
func Parse(raw string, spans []Span, resolver NameResolver) ([]chat.Fragment, error) {
	runes := []rune(raw)
	if err := checkSpans(runes, spans); err != nil {
		return nil, err
	}

	var fragments []chat.Fragment
	cursor := 0
	for _, span := range spans {
		if span.Start > cursor {
			fragments = append(fragments, chat.TextFragment{Content: string(runes[cursor:span.Start])})
		}
		name, ok := resolver.DisplayName(span.UserID)
		if !ok {
			// Soft case: keep the mention, degrade the display name.
			name = ""
		}
		fragments = append(fragments, chat.MentionFragment{
			MentionedUserID:   span.UserID,
			MentionedUserName: name,
		})
		cursor = span.End
	}
	if cursor < len(runes) {
		fragments = append(fragments, chat.TextFragment{Content: string(runes[cursor:])})
	}
	return fragments, nil
}

func checkSpans(runes []rune, spans []Span) error {
	prevEnd := 0
	for i, span := range spans {
		switch {
		case span.Start < 0 || span.End > len(runes):
			return spanErr(i, span, "out of range")
		case span.Start >= span.End:
			return spanErr(i, span, "empty or inverted")
		case span.Start < prevEnd:
			return spanErr(i, span, "overlaps previous span")
		case runes[span.Start] != trigger:
			return spanErr(i, span, "does not start on the mention trigger")
		}
		prevEnd = span.End
	}
	return nil
}

func spanErr(i int, span Span, reason string) error {
	return fmt.Errorf("%w: span %d [%d,%d) %s", errors.ErrInvalidMentionSpan, i, span.Start, span.End, reason)
}
