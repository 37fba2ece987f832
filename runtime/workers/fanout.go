package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"collabrick/contract"
)

// Ensure *FanoutWorker satisfies both roles it plays at compile time.
var (
	_ contract.Worker  = (*FanoutWorker)(nil)
	_ contract.IRouter = (*FanoutWorker)(nil)
)

// envelope pairs an outbound payload with the topics it targets.
type envelope struct {
	payload contract.Payload
	topics  []contract.Topic
}

// FanoutWorker broadcasts outbound payloads to every sink subscribed to the
// targeted topics.
//
// Delivery is best-effort and push-based: a recipient without a live sink
// simply misses the push, durable history comes from the stores. Publish
// never blocks the caller. A single consumer goroutine drains the queue, so
// payloads published for one channel reach its subscribers in publish order;
// within one payload, sinks are serviced concurrently under a per-sink
// timeout so one slow or dead subscriber cannot hold up the rest.
type FanoutWorker struct {
	log         *slog.Logger
	registry    contract.IRegistry
	outbound    chan envelope
	sinkTimeout time.Duration
}

func NewFanoutWorker(log *slog.Logger, registry contract.IRegistry, bufferSize int, sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{
		log:         log,
		registry:    registry,
		outbound:    make(chan envelope, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// Publish enqueues a payload for delivery to the given topics. When the
// queue is full the payload is dropped with a warning rather than blocking
// the submitting request.
func (w *FanoutWorker) Publish(payload contract.Payload, topics ...contract.Topic) {
	if len(topics) == 0 {
		return
	}
	select {
	case w.outbound <- envelope{payload: payload, topics: topics}:
	default:
		w.log.Warn("Outbound queue full, dropping payload", "kind", payload.PayloadKind())
	}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case env := <-w.outbound:
			w.Fanout(ctx, env.payload, env.topics)
		}
	}
}

// Fanout delivers one payload to every sink of every targeted topic and
// waits for the round to settle before the next payload is taken, which is
// what preserves per-channel ordering. A sink appearing under several
// targeted topics receives the payload once per topic; sinks are expected
// to be cheap enqueues, so duplicates are a client-side concern.
func (w *FanoutWorker) Fanout(ctx context.Context, payload contract.Payload, topics []contract.Topic) {
	var wg sync.WaitGroup
	for _, topic := range topics {
		for _, sink := range w.registry.SinksFor(topic) {
			wg.Add(1)
			go func(topic contract.Topic, sink contract.PushSink) {
				defer wg.Done()
				pushCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
				defer cancel()
				if err := sink.Push(pushCtx, payload); err != nil {
					w.log.Warn("Sink delivery failed",
						"topic", topic,
						"kind", payload.PayloadKind(),
						"error", err)
				}
			}(topic, sink)
		}
	}
	wg.Wait()
}
