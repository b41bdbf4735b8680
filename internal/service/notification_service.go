package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/civic-kit/queue-service/internal/config"
	"github.com/civic-kit/queue-service/internal/events"
	"github.com/civic-kit/queue-service/internal/persistence"
)

// NotificationService fans queue events out to display boards via Redis
// pub/sub and logs them. Delivery is best effort.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	channel    string
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.RedisConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		channel:    cfg.EventsChannel,
	}
}

// RegisterHandlers subscribes to queue events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketCalled, n.handleEvent)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	n.logger.Info("queue event",
		zap.String("type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("service_id", event.ServiceID))

	if n.redis == nil || n.channel == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("event marshal failed", zap.Error(err))
		return nil
	}
	if err := n.redis.Publish(ctx, n.channel, payload); err != nil {
		n.logger.Warn("event publish failed",
			zap.String("channel", n.channel),
			zap.Error(err))
	}
	return nil
}
