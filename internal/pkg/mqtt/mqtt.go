package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/microtemp-integration/internal/pkg/config"
)

// CommandHandler receives inbound command messages from the bus.
type CommandHandler func(topic string, payload []byte)

type service struct {
	client    paho_mqtt.Client
	prefix    string
	onCommand CommandHandler
	logger    *zap.Logger
}

// New wraps a paho client. onCommand is invoked for every message arriving on
// a subscribed command topic.
func New(client paho_mqtt.Client, prefix string, onCommand CommandHandler) *service {
	return &service{
		client:    client,
		prefix:    prefix,
		onCommand: onCommand,
		logger:    zap.L(),
	}
}

// NewClientOptions builds paho options from config.
func NewClientOptions(cfg *config.MqttConfig) *paho_mqtt.ClientOptions {
	return paho_mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetOrderMatters(false)
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(time.Second * 5) {
		return errors.New("unable to connect in time")
	}
	if err := token.Error(); err != nil {
		return err
	}
	s.logger.Info("connected to mqtt broker")
	return nil
}

func (s *service) publish(topic string, qos byte, retain bool, payload []byte) error {
	token := s.client.Publish(topic, qos, retain, payload)
	if !token.WaitTimeout(time.Second * 10) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

func (s *service) subscribe(topic string) error {
	token := s.client.Subscribe(topic, 0, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		s.onCommand(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(time.Second * 5) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	return token.Error()
}
