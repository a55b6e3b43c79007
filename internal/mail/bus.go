package mail

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
)

// SubjectSend is the JetStream subject carrying queued mail messages.
const SubjectSend = "huddle.mail.send"

// streamName is the JetStream stream holding mail events until a
// consumer delivers them.
const streamName = "HUDDLE_MAIL"

// Bus queues rendered mail messages on NATS JetStream so delivery
// survives process restarts and retries independently of the request
// that triggered the send.
type Bus struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// ConnectBus connects to NATS and provisions the mail stream.
func ConnectBus(url string, opts ...nats.Option) (*Bus, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	_, err = js.StreamInfo(streamName)
	if errors.Is(err, nats.ErrStreamNotFound) {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     streamName,
			Subjects: []string{SubjectSend},
		})
	}
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &Bus{conn: nc, js: js}, nil
}

// Close drains the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// PublishMail queues msg on the mail stream.
func (b *Bus) PublishMail(ctx context.Context, msg Message) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = b.js.Publish(SubjectSend, data, nats.Context(ctx))
	return err
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// ConsumeMail creates a durable consumer on the mail subject. fn gets
// the raw event payload; a non-nil return naks the message for
// redelivery.
func (b *Bus) ConsumeMail(ctx context.Context, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		if err := fn(handlerCtx, msg.Data); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	}

	sub, err := b.js.Subscribe(SubjectSend, handler, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit())
	if err != nil {
		return nil, err
	}

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}
