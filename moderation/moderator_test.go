package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T) *Moderator {
	t.Helper()
	m, err := NewModerator([]string{"crap", "moron", "merde"}, '*')
	require.NoError(t, err)
	return m
}

func Test_Censor_Plain_Word(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, found := m.Censor("what a load of crap")
	req.Equal("what a load of ****", censored)
	req.Equal([]string{"crap"}, found)
}

func Test_Censor_Leaves_Clean_Text(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, found := m.Censor("the kitchen tiles arrived")
	req.Equal("the kitchen tiles arrived", censored)
	req.Empty(found)
}

func Test_Censor_Leet_Speak(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, found := m.Censor("cr4p plan")
	req.Equal("**** plan", censored)
	req.Len(found, 1)
}

func Test_Censor_Uppercase(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, _ := m.Censor("CRAP")
	req.Equal("****", censored)
}

func Test_Censor_Accents(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, found := m.Censor("oh mérde")
	req.Equal("oh *****", censored)
	req.Len(found, 1)
}

func Test_Censor_Preserves_Length(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	original := "hi @Bob this crap again"
	censored, _ := m.Censor(original)
	req.Equal(len([]rune(original)), len([]rune(censored)))
}

func Test_Censor_Empty_Input(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t)

	censored, found := m.Censor("")
	req.Equal("", censored)
	req.Empty(found)
}
