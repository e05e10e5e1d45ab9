package ingestion

import (
	"github.com/sirupsen/logrus"

	"github.com/weatherstation/internal/models"
	"github.com/weatherstation/internal/mqttclient"
)

// Subscriber is the part of the MQTT client ingestion needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
}

// Service feeds readings published by a remote station into a local
// channel, for viewers that do not own the serial port.
type Service struct {
	sub Subscriber
	log logrus.FieldLogger
	out chan models.Reading
}

func New(sub Subscriber, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		sub: sub,
		log: log.WithField("component", "ingestion"),
		out: make(chan models.Reading, 256),
	}
}

// Readings returns the channel readings are delivered on. It stays open
// for the life of the MQTT client.
func (s *Service) Readings() <-chan models.Reading {
	return s.out
}

// Start subscribes to the readings topic.
func (s *Service) Start() error {
	topic := mqttclient.ReadingsTopic
	if err := s.sub.Subscribe(topic, 0, mqttclient.ReadingHandler(s.out, s.log)); err != nil {
		return err
	}
	s.log.WithField("topic", topic).Info("listening for readings")
	return nil
}
