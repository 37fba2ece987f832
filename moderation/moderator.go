// Package moderation censors profane words in chat content before it is
// stored or broadcast. Matching is resilient to leet speak, diacritics and
// inserted punctuation: the text is normalized for the scan and matches are
// mapped back to the original character positions.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton over the normalized word
// list. The replacement rune overwrites every character of a matched span.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalizeRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, replacement: replacement}, nil
}

// Censor replaces forbidden spans with the replacement rune, preserving the
// surrounding text, and returns the normalized words that matched.
func (m *Moderator) Censor(original string) (string, []string) {
	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		normStart := span.Pos
		normEnd := normStart + len(span.Word)
		if normStart < 0 || normEnd > len(mapping.origIdx) {
			continue
		}

		origStart := mapping.origIdx[normStart]
		origEnd := mapping.origIdx[normEnd-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.replacement
		}
		found = append(found, string(span.Word))
	}
	return string(origRunes), found
}

// normalize lowercases, de-leets and strips noise, keeping a map from each
// normalized rune back to its original index.
func normalize(input string) textMapping {
	origRunes := []rune(input)
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		norm = append(norm, unicode.ToLower(clean))
		origIdx = append(origIdx, i)
	}
	return textMapping{normalized: norm, origIdx: origIdx}
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak substitutions and accented letters
// back to their plain counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@', '^':
		return 'a'
	case '3', '€', '&':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7', '+':
		return 't'
	case '9', '6':
		return 'g'
	case '(', '<':
		return 'c'
	case 'á', 'à', 'â', 'ä', 'ã', 'å':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'ö', 'õ':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ç':
		return 'c'
	case 'ñ':
		return 'n'
	default:
		return r
	}
}

// isNoise identifies characters ignored during the pattern matching phase.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
