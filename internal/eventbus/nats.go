/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans in-process project events out to other eventdesk
// instances over NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Subject       string // subject prefix; events go to "{Subject}.{event_type}"
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       "eventdesk.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSBridge mirrors local bus events to NATS and replays remote events onto
// the local bus.
type NATSBridge struct {
	bus     *events.Bus
	conn    publisher
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	nodeID  string
	logger  zerolog.Logger

	local  map[events.EventType]events.Subscriber
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// natsMessage is the wire envelope.
type natsMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// NewNATSBridge connects to NATS and starts forwarding in both directions.
func NewNATSBridge(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*NATSBridge, error) {
	if cfg.Subject == "" {
		cfg.Subject = DefaultNATSConfig().Subject
	}
	nodeID := generateNodeID()
	logger = logger.With().Str("component", "nats-bridge").Str("node_id", nodeID).Logger()

	nc, err := nats.Connect(cfg.URL,
		nats.Name("eventdesk-"+nodeID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	b := newBridge(bus, nc, cfg.Subject, nodeID, logger)
	b.nc = nc

	b.sub, err = nc.Subscribe(cfg.Subject+".>", func(msg *nats.Msg) {
		b.handleRemote(msg.Data)
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}

	b.start()
	logger.Info().Str("url", nc.ConnectedUrl()).Str("subject", cfg.Subject).Msg("NATS event bridge started")
	return b, nil
}

func newBridge(bus *events.Bus, conn publisher, subject, nodeID string, logger zerolog.Logger) *NATSBridge {
	return &NATSBridge{
		bus:     bus,
		conn:    conn,
		subject: subject,
		nodeID:  nodeID,
		logger:  logger,
		local:   make(map[events.EventType]events.Subscriber),
	}
}

func (b *NATSBridge) start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel

	for _, et := range events.ProjectEvents {
		sub := b.bus.Subscribe(et)
		b.local[et] = sub

		b.wg.Add(1)
		go func(et events.EventType, sub events.Subscriber) {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					b.forward(et, payload)
				}
			}
		}(et, sub)
	}
}

// forward publishes a locally originated event. Events replayed from NATS
// carry an origin and are skipped.
func (b *NATSBridge) forward(et events.EventType, payload events.Payload) {
	if origin, _ := payload[events.KeyOrigin].(string); origin != "" {
		return
	}

	data, err := marshalNATSMessage(et, payload, b.nodeID)
	if err != nil {
		telemetry.EventBridgeErrorsTotal.WithLabelValues("outbound").Inc()
		b.logger.Warn().Err(err).Str("event", string(et)).Msg("marshal event")
		return
	}
	if err := b.conn.Publish(b.subjectFor(et), data); err != nil {
		telemetry.EventBridgeErrorsTotal.WithLabelValues("outbound").Inc()
		b.logger.Warn().Err(err).Str("event", string(et)).Msg("publish event to NATS")
	}
}

func (b *NATSBridge) handleRemote(data []byte) {
	msg, err := unmarshalNATSMessage(data)
	if err != nil {
		telemetry.EventBridgeErrorsTotal.WithLabelValues("inbound").Inc()
		b.logger.Debug().Err(err).Msg("dropping malformed NATS message")
		return
	}
	if msg.NodeID == b.nodeID {
		return
	}

	payload := make(events.Payload, len(msg.Payload)+1)
	for k, v := range msg.Payload {
		payload[k] = v
	}
	payload[events.KeyOrigin] = msg.NodeID
	b.bus.Publish(msg.EventType, payload)
}

func (b *NATSBridge) subjectFor(et events.EventType) string {
	return b.subject + "." + strings.ReplaceAll(string(et), ".", "_")
}

// Close stops forwarding and drains the NATS connection.
func (b *NATSBridge) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	for et, sub := range b.local {
		b.bus.Unsubscribe(et, sub)
	}
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.nc != nil {
		return b.nc.Drain()
	}
	return nil
}

func marshalNATSMessage(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(natsMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func unmarshalNATSMessage(data []byte) (*natsMessage, error) {
	var msg natsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal nats message: %w", err)
	}
	if msg.EventType == "" || msg.NodeID == "" {
		return nil, fmt.Errorf("unmarshal nats message: missing event type or node id")
	}
	return &msg, nil
}

func generateNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "eventdesk"
	}
	return host + "-" + uuid.NewString()[:8]
}
