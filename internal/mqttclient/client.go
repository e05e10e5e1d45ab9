package mqttclient

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

// ReadingsTopic carries one JSON reading per message.
const ReadingsTopic = "weatherstation/readings"

// MessageHandler is called for each message on a subscribed topic.
type MessageHandler = mqtt.MessageHandler

type Options struct {
	BrokerURL string
	ClientID  string
	// ConnectTimeout bounds the first connect; zero waits forever.
	ConnectTimeout time.Duration
}

// Client wraps a paho client with blocking publish and subscribe calls.
type Client struct {
	raw mqtt.Client
}

func New(opts Options) (*Client, error) {
	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	o.SetAutoReconnect(true)
	c := mqtt.NewClient(o)

	token := c.Connect()
	if opts.ConnectTimeout > 0 {
		if !token.WaitTimeout(opts.ConnectTimeout) {
			c.Disconnect(0)
			return nil, errors.Errorf("mqtt connect to %s timed out", opts.BrokerURL)
		}
	} else {
		token.Wait()
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt connect to %s", opts.BrokerURL)
	}
	return &Client{raw: c}, nil
}

// Wrap adopts an already configured paho client.
func Wrap(raw mqtt.Client) *Client {
	return &Client{raw: raw}
}

func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	token := c.raw.Publish(topic, qos, retained, payload)
	token.Wait()
	return errors.Wrapf(token.Error(), "publish %s", topic)
}

func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.raw.Subscribe(topic, qos, handler)
	token.Wait()
	return errors.Wrapf(token.Error(), "subscribe %s", topic)
}

func (c *Client) Close() {
	c.raw.Disconnect(250)
}

func (c *Client) String() string {
	return "MQTTClient"
}
