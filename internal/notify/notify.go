package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/vendora-market/vendora-backend/pkg/enums"
	"github.com/vendora-market/vendora-backend/pkg/logger"
)

const defaultPublishTimeout = 10 * time.Second

// Notifier publishes domain events on a best-effort basis. Failures are
// logged, never surfaced; an order must not fail because a notification did.
type Notifier interface {
	Notify(ctx context.Context, kind enums.NotificationKind, data any)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// Envelope is the wire shape of every notification message.
type Envelope struct {
	EventID    string                 `json:"event_id"`
	Kind       enums.NotificationKind `json:"kind"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       any                    `json:"data,omitempty"`
}

// Service publishes notification envelopes to the configured topic.
type Service struct {
	pub     publisher
	logg    *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewService wires a notifier around a Pub/Sub publisher handle.
func NewService(pub *gcppubsub.Publisher, logg *logger.Logger) (*Service, error) {
	if pub == nil {
		return nil, errors.New("notification publisher is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return newService(&gcpPublisher{Publisher: pub}, logg), nil
}

func newService(pub publisher, logg *logger.Logger) *Service {
	return &Service{
		pub:     pub,
		logg:    logg,
		timeout: defaultPublishTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Notify marshals the payload into an envelope and publishes it. The publish
// is synchronous within a bounded timeout so callers keep ordering, but any
// failure is swallowed after logging.
func (s *Service) Notify(ctx context.Context, kind enums.NotificationKind, data any) {
	envelope := Envelope{
		EventID:    uuid.NewString(),
		Kind:       kind,
		OccurredAt: s.now(),
		Data:       data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logError(ctx, kind, "marshal notification", err)
		return
	}

	msg := &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_id":    envelope.EventID,
			"kind":        string(kind),
			"occurred_at": envelope.OccurredAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	result := s.pub.Publish(publishCtx, msg)
	if result == nil {
		s.logError(ctx, kind, "publish notification", errors.New("publisher returned nil result"))
		return
	}
	if _, err := result.Get(publishCtx); err != nil {
		s.logError(ctx, kind, "publish notification", err)
	}
}

func (s *Service) logError(ctx context.Context, kind enums.NotificationKind, msg string, err error) {
	ctx = s.logg.WithField(ctx, "notification_kind", string(kind))
	s.logg.Error(ctx, msg, err)
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

// Noop satisfies Notifier without publishing anything. Used when the
// notification topic is not configured.
type Noop struct{}

func (Noop) Notify(context.Context, enums.NotificationKind, any) {}
