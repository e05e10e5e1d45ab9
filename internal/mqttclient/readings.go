package mqttclient

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/metric"
	"github.com/weatherstation/internal/models"
)

// EncodeReading marshals a reading for the wire.
func EncodeReading(r models.Reading) ([]byte, error) {
	b, err := json.Marshal(r)
	return b, errors.Wrap(err, "encode reading")
}

// DecodeReading parses a reading from the wire.
func DecodeReading(payload []byte) (models.Reading, error) {
	var r models.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, errors.Wrap(err, "decode reading")
	}
	if r.At.IsZero() {
		return r, errors.New("decode reading: missing timestamp")
	}
	return r, nil
}

// Publisher forwards readings to the broker.
type Publisher struct {
	client *Client
	topic  string
	log    logrus.FieldLogger
	metric *metric.Metric
}

// NewPublisher publishes on ReadingsTopic.
func NewPublisher(c *Client, log logrus.FieldLogger, m *metric.Metric) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{client: c, topic: ReadingsTopic, log: log.WithField("component", "mqtt"), metric: m}
}

// PublishReading sends one reading at QoS 0.
func (p *Publisher) PublishReading(r models.Reading) error {
	b, err := EncodeReading(r)
	if err != nil {
		return err
	}
	return p.client.Publish(p.topic, b, 0, false)
}

// Run publishes every reading from in until in is closed or ctx is done.
// Publish failures are logged and counted, not fatal.
func (p *Publisher) Run(ctx context.Context, in <-chan models.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-in:
			if !ok {
				return
			}
			if err := p.PublishReading(r); err != nil {
				p.metric.PublishError()
				p.log.WithError(err).Warn("publish failed")
				continue
			}
			p.log.WithField("values", r.Values).Debug("published")
		}
	}
}

// ReadingHandler returns a paho handler that decodes readings into out.
// Malformed payloads are logged and dropped; a full out drops the reading.
func ReadingHandler(out chan<- models.Reading, log logrus.FieldLogger) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		r, err := DecodeReading(msg.Payload())
		if err != nil {
			log.WithError(err).WithField("payload", string(msg.Payload())).Warn("bad reading")
			return
		}
		select {
		case out <- r:
		default:
			log.Warn("reading channel full, dropping reading")
		}
	}
}
