package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=./mocks/event_mock.go -package=mocks

import (
	"context"

	"hotelier/config"
	"hotelier/infras/kafka"
	"hotelier/infras/otel"
	"hotelier/internal/domains/booking/model"
	"hotelier/shared/constant"
	"hotelier/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	TypeBookingCreated     = "booking.created"
	TypeBookingDeactivated = "booking.deactivated"
	TypeBookingReactivated = "booking.reactivated"
	TypeBookingDeleted     = "booking.deleted"
)

// BookingEvent is the payload published to the booking topic after a state
// transition commits.
type BookingEvent struct {
	Type       string `json:"type"`
	BookingID  string `json:"booking_id"`
	CustomerID string `json:"customer_id"`
	RoomNumber int    `json:"room_number"`
	Actor      string `json:"actor"`
	OccurredAt string `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. Publishing is best-effort: a
// broker failure is logged and never rolls back the transition it describes.
type Publisher interface {
	Publish(ctx context.Context, eventType string, booking model.Booking)
}

type publisherImpl struct {
	cfg    *config.Config
	client kafka.Client
	otel   otel.Otel
}

func NewPublisher(cfg *config.Config, client kafka.Client, otel otel.Otel) Publisher {
	return &publisherImpl{
		cfg:    cfg,
		client: client,
		otel:   otel,
	}
}

func (p *publisherImpl) Publish(ctx context.Context, eventType string, booking model.Booking) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()

	actor, _ := ctx.Value(constant.ContextKeyUserID).(string)

	payload := BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		CustomerID: booking.CustomerID,
		RoomNumber: booking.RoomNumber,
		Actor:      actor,
		OccurredAt: timezone.Now().Format(constant.DateFormat),
	}

	go func() {
		c := context.WithoutCancel(ctx)

		err := p.client.SendMessages(c, p.cfg.Kafka.BookingTopic, kafka.Message{
			Key:   booking.ID,
			Value: payload,
		})
		if err != nil {
			log.Error().Err(err).Str("type", eventType).Str("bookingID", booking.ID).Msg("failed to publish booking event")
		}
	}()
}
