// Package runtime wires the live-delivery plumbing: the subscription
// registry and the workers that fan payloads out and bound feed retention.
// It orchestrates without containing domain rules.
package runtime

import (
	"sync"

	"collabrick/contract"
)

type set map[string]struct{}

// Registry tracks which connected client is subscribed to which topic.
// Topics are chat channels plus per-user feed and mention streams; a client
// subscribed to several topics keeps a single sink.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]contract.PushSink // subscriber -> sink
	topicSubs map[contract.Topic]set       // topic -> subscribers
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[string]contract.PushSink),
		topicSubs: make(map[contract.Topic]set),
	}
}

// Subscribe registers a subscriber's active connection and adds them to a
// topic. The topic entry is initialized on the fly if this is its first
// subscriber.
func (r *Registry) Subscribe(subscriberID string, topic contract.Topic, sink contract.PushSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[subscriberID] = sink

	if _, ok := r.topicSubs[topic]; !ok {
		r.topicSubs[topic] = make(set)
	}
	r.topicSubs[topic][subscriberID] = struct{}{}
}

// Unsubscribe removes a subscriber from one topic. The connection itself is
// dropped once the subscriber is in no topic at all, and empty topic sets
// are removed to prevent the map growing over time.
func (r *Registry) Unsubscribe(subscriberID string, topic contract.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.topicSubs[topic]; ok {
		delete(subs, subscriberID)
		if len(subs) == 0 {
			delete(r.topicSubs, topic)
		}
	}

	for _, subs := range r.topicSubs {
		if _, still := subs[subscriberID]; still {
			return
		}
	}
	delete(r.sessions, subscriberID)
}

// SinksFor resolves a topic's current subscribers into their sinks. It
// performs a two-step lookup so that a client subscribed to multiple topics
// has its connection managed in a single place. Returns nil for an unknown
// or empty topic.
func (r *Registry) SinksFor(topic contract.Topic) []contract.PushSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.topicSubs[topic]
	if !ok {
		return nil
	}
	var sinks []contract.PushSink
	for subscriberID := range subs {
		if sink, exists := r.sessions[subscriberID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}
