package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/integration"
)

type notificationSender interface {
	Send(ctx context.Context, notification integration.Notification) error
}

// NotificationService publishes notifications onto the bus and relays them to
// the notification collaborator. Delivery is fire-and-forget.
type NotificationService struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	sender     notificationSender
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewNotificationService constructs the dispatcher and relay.
func NewNotificationService(publisher message.Publisher, subscriber message.Subscriber, topic string, sender notificationSender, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if topic == "" {
		topic = "admissions.notifications"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      topic,
		sender:     sender,
		metrics:    metrics,
		logger:     logger,
	}
}

// Dispatch queues a notification for delivery.
func (s *NotificationService) Dispatch(ctx context.Context, notification integration.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("slug", notification.Slug)
	msg.Metadata.Set("enquiry_id", notification.EnquiryID)
	msg.SetContext(ctx)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Run relays queued notifications until ctx is cancelled. Every message is
// acked; failed sends are logged and counted, never retried.
func (s *NotificationService) Run(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.deliver(ctx, msg)
		}
	}
}

func (s *NotificationService) deliver(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var notification integration.Notification
	if err := json.Unmarshal(msg.Payload, &notification); err != nil {
		bestEffort(s.logger, s.metrics, "decode_notification", err, zap.String("message_id", msg.UUID))
		return
	}
	err := s.sender.Send(ctx, notification)
	if bestEffort(s.logger, s.metrics, "send_notification", err,
		zap.String("message_id", msg.UUID),
		zap.String("slug", notification.Slug),
		zap.String("enquiry_id", notification.EnquiryID),
	) {
		s.logger.Debug("notification delivered", zap.String("slug", notification.Slug), zap.String("enquiry_id", notification.EnquiryID))
	}
}
