package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"collabrick/contract"
)

type nopSink struct{}

func (nopSink) Push(context.Context, contract.Payload) error { return nil }

func Test_Subscribe_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	topic := contract.ChannelTopic(3)

	registry.Subscribe("alice", topic, nopSink{})
	registry.Subscribe("bob", topic, nopSink{})

	req.Len(registry.SinksFor(topic), 2)
	req.Empty(registry.SinksFor(contract.ChannelTopic(4)))
}

func Test_One_Sink_Many_Topics(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := nopSink{}

	registry.Subscribe("alice", contract.ChannelTopic(3), sink)
	registry.Subscribe("alice", contract.FeedTopic(9), sink)
	registry.Subscribe("alice", contract.MentionTopic(9), sink)

	req.Len(registry.SinksFor(contract.ChannelTopic(3)), 1)
	req.Len(registry.SinksFor(contract.FeedTopic(9)), 1)
	req.Len(registry.SinksFor(contract.MentionTopic(9)), 1)
}

func Test_Unsubscribe_Keeps_Session_While_Topics_Remain(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Subscribe("alice", contract.ChannelTopic(3), nopSink{})
	registry.Subscribe("alice", contract.FeedTopic(9), nopSink{})

	registry.Unsubscribe("alice", contract.ChannelTopic(3))
	req.Empty(registry.SinksFor(contract.ChannelTopic(3)))
	req.Len(registry.SinksFor(contract.FeedTopic(9)), 1)

	registry.Unsubscribe("alice", contract.FeedTopic(9))
	req.Empty(registry.SinksFor(contract.FeedTopic(9)))
}

func Test_Unsubscribe_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Unsubscribe("ghost", contract.ChannelTopic(3))
	req.Empty(registry.SinksFor(contract.ChannelTopic(3)))
}
