package mail

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// consumerDurable names the durable consumer delivering queued mail.
const consumerDurable = "huddle-mailer"

// Outbox accepts messages for eventual delivery without ever failing the
// caller. Domain services depend on this interface.
type Outbox interface {
	Dispatch(ctx context.Context, msg Message)
}

// Dispatcher hands messages to the bus when one is configured, falling
// back to direct asynchronous delivery otherwise. Either way the caller
// returns immediately and delivery failures are only logged.
type Dispatcher struct {
	bus    *Bus
	sender Sender
	log    zerolog.Logger
}

// NewDispatcher constructs a Dispatcher. b may be nil.
func NewDispatcher(b *Bus, sender Sender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{bus: b, sender: sender, log: log}
}

// Dispatch queues msg for delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) {
	if d.bus != nil {
		err := d.bus.PublishMail(ctx, msg)
		if err == nil {
			return
		}
		d.log.Error().Err(err).Str("to", msg.To).Msg("publish mail event, sending directly")
	}

	go func() {
		if err := d.sender.Send(context.Background(), msg); err != nil {
			d.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("send mail")
		}
	}()
}

// RunConsumer subscribes to the mail subject and delivers queued
// messages until ctx is cancelled. No-op when the bus is nil.
func (d *Dispatcher) RunConsumer(ctx context.Context) error {
	if d.bus == nil {
		return nil
	}
	_, err := d.bus.ConsumeMail(ctx, consumerDurable, d.handleEvent)
	return err
}

// handleEvent delivers one queued mail event. Malformed events are
// dropped, not retried; send failures surface so the bus redelivers.
func (d *Dispatcher) handleEvent(ctx context.Context, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		d.log.Error().Err(err).Msg("decode mail event")
		return nil
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Error().Err(err).Str("to", msg.To).Msg("send mail")
		return err
	}
	return nil
}
