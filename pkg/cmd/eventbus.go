package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/roadplatform/road/pkg/broadcast"
	"github.com/roadplatform/road/pkg/broadcast/gochannel"
	"github.com/roadplatform/road/pkg/broadcast/kafka"
)

// NewBroadcaster creates the progress event broadcaster over the selected
// transport: in-process gochannel by default, Kafka when requested.
func NewBroadcaster(provider string, logger *slog.Logger) (*broadcast.Broadcaster, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
	)

	switch provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(wmLogger, "road")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		publisher, subscriber = pub, sub
	case "", "gochannel":
		publisher, subscriber = gochannel.CreateChannel(wmLogger)
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}

	return broadcast.NewBroadcaster(logger, publisher, subscriber), nil
}
