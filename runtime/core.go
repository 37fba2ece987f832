package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"collabrick/contract"
	"collabrick/moderation"
	"collabrick/repositories"
	"collabrick/runtime/workers"
	"collabrick/services"
)

//go:embed censored/*
var censoredFolder embed.FS

// Core assembles the notification engine: the services, the fanout router,
// the retention worker and the supervisor that keeps the workers alive. It
// wires components together without containing business logic itself.
type Core struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   contract.IRegistry
	fanout     *workers.FanoutWorker
	retention  *workers.RetentionWorker

	Chat     services.IChatService
	Activity services.IActivityService
}

type CoreConfig struct {
	BufferSize        int
	SinkTimeout       time.Duration
	RetentionInterval time.Duration
	CharReplacement   rune
}

// NewCore loads the moderation dictionaries, builds the workers and wires
// the services. Heavy setup (file loading, automaton build) happens here so
// Start stays cheap.
func NewCore(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	activityRepository repositories.IActivityRepository,
	messageRepository repositories.IMessageRepository,
	mentionRepository repositories.IMentionRepository,
	channels contract.IChannelDirectory,
	renovations contract.IRenovationDirectory,
	users contract.IUserDirectory,
	config CoreConfig,
) (*Core, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll("censored")
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("%d censored dictionaries loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, config.CharReplacement)
	if err != nil {
		return nil, err
	}

	fanout := workers.NewFanoutWorker(log, registry, config.BufferSize, config.SinkTimeout)
	retention := workers.NewRetentionWorker(log, activityRepository, config.RetentionInterval)

	return &Core{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		fanout:     fanout,
		retention:  retention,
		Chat: services.NewChatService(
			log, messageRepository, mentionRepository,
			channels, renovations, users, moderator, fanout,
		),
		Activity: services.NewActivityService(log, activityRepository, renovations, fanout),
	}, nil
}

// Start registers the workers with the supervisor and launches it. It
// returns immediately; the workers run until the context is canceled or
// Stop is called.
func (c *Core) Start(ctx context.Context) {
	c.supervisor.Add(c.fanout, c.retention)
	c.log.Info("Starting notification core and supervised workers")
	go c.supervisor.Run(ctx)
}

// Connect registers a client's sink on a topic; payloads published to that
// topic reach the sink from then on.
func (c *Core) Connect(subscriberID string, topic contract.Topic, sink contract.PushSink) {
	c.registry.Subscribe(subscriberID, topic, sink)
}

// Disconnect removes a client from a topic.
func (c *Core) Disconnect(subscriberID string, topic contract.Topic) {
	c.registry.Unsubscribe(subscriberID, topic)
}

// Stop signals every supervised worker to shut down.
func (c *Core) Stop() {
	c.log.Info("Requesting notification core shutdown")
	c.supervisor.Stop()
}
