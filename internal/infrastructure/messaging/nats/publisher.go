package nats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dreschagin/ddc-kiosk/pkg/logger"
	"github.com/nats-io/nats.go"
)

const (
	streamName     = "DDC_KIOSK"
	streamSubjects = "kiosk.>"
)

// Envelope: формат события в брокере
type Envelope struct {
	KioskID    string      `json:"kioskId"`
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

// NATSPublisher implements EventPublisher for NATS JetStream
type NATSPublisher struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	kioskID string
	logger  *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher
func NewNATSPublisher(natsURL, kioskID string, log *logger.Logger) (*NATSPublisher, error) {
	// Connect to NATS with retry
	nc, err := nats.Connect(natsURL,
		nats.Name("ddc-kiosk-"+kioskID),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	// Get JetStream context
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	if err := ensureStream(js); err != nil {
		log.Warn("JetStream stream is not available", "stream", streamName, "error", err.Error())
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &NATSPublisher{
		nc:      nc,
		js:      js,
		kioskID: kioskID,
		logger:  log,
	}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	_, err := js.StreamInfo(streamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{streamSubjects},
		MaxAge:   24 * time.Hour,
		Storage:  nats.FileStorage,
	})
	return err
}

// Encode упаковывает событие в Envelope
func Encode(kioskID, subject string, event interface{}, at time.Time) ([]byte, error) {
	data, err := sonic.Marshal(Envelope{
		KioskID:    kioskID,
		Subject:    subject,
		OccurredAt: at.UTC(),
		Data:       event,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return data, nil
}

// PublishEvent publishes an event to NATS (async)
func (p *NATSPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := Encode(p.kioskID, subject, event, time.Now())
	if err != nil {
		return err
	}

	// Async publish (fire-and-forget)
	_, err = p.js.PublishAsync(subject, data)
	if err != nil {
		p.logger.Error("Failed to publish event", err,
			"subject", subject,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		"subject", subject,
		"size", len(data),
	)

	return nil
}

// Close дожидается подтверждений async publish и закрывает соединение
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	p.logger.Info("Closing NATS connection")
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(2 * time.Second):
		p.logger.Warn("NATS async publishes not acknowledged before close")
	}
	p.nc.Close()
	return nil
}
