// Package natsrelay feeds events published on a NATS subject into the
// change bus relay. Messages are JSON objects of the form
// {"type": "...", "data": {...}}.
package natsrelay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"kiosk/internal/changebus"
	"kiosk/internal/logging"
)

// ErrReservedType rejects messages that try to impersonate bus events.
var ErrReservedType = errors.New("event type is reserved")

// Enqueuer accepts events for republication.
type Enqueuer interface {
	Enqueue(eventType string, data any) bool
}

// Options configures the NATS subscription.
type Options struct {
	URL     string
	Subject string
	Name    string
}

type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Subscriber owns the NATS connection and subscription.
type Subscriber struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	relay  Enqueuer
	logger *slog.Logger
}

// Start connects to NATS and subscribes to opts.Subject.
func Start(opts Options, relay Enqueuer, logger *slog.Logger) (*Subscriber, error) {
	if strings.TrimSpace(opts.Subject) == "" {
		return nil, errors.New("natsrelay: subject is required")
	}
	name := opts.Name
	if name == "" {
		name = "kiosk-relay"
	}
	nc, err := nats.Connect(opts.URL, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats relay: %w", err)
	}
	s := newSubscriber(relay, logger)
	s.nc = nc
	sub, err := nc.Subscribe(opts.Subject, s.handleMessage)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %q: %w", opts.Subject, err)
	}
	s.sub = sub
	s.logger.Info("nats relay subscribed", logging.String("subject", opts.Subject))
	return s, nil
}

func newSubscriber(relay Enqueuer, logger *slog.Logger) *Subscriber {
	return &Subscriber{relay: relay, logger: logging.NewComponentLogger(logger, "natsrelay")}
}

func (s *Subscriber) handleMessage(msg *nats.Msg) {
	if msg == nil {
		return
	}
	eventType, data, err := decode(msg.Data)
	if err != nil {
		logging.WarnWithContext(s.logger, "nats relay message rejected", "relay_message_rejected",
			logging.String("subject", msg.Subject),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "publish {\"type\":...,\"data\":{...}} with a non-reserved type"),
			logging.String(logging.FieldImpact, "message not forwarded to subscribers"),
		)
		return
	}
	s.relay.Enqueue(eventType, data)
}

func decode(payload []byte) (string, any, error) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return "", nil, fmt.Errorf("decode relay message: %w", err)
	}
	eventType := strings.TrimSpace(msg.Type)
	if eventType == "" {
		return "", nil, errors.New("relay message missing type")
	}
	if changebus.IsReserved(eventType) {
		return "", nil, fmt.Errorf("%w: %s", ErrReservedType, eventType)
	}
	var data any = map[string]any{}
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return "", nil, fmt.Errorf("decode relay data: %w", err)
		}
	}
	return eventType, data, nil
}

// Close drains the subscription and closes the connection.
func (s *Subscriber) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.nc.Close()
			return err
		}
	}
	s.nc.Close()
	return nil
}
