// Package mqtt publishes notifications to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/tempest-monitor/internal/domain"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250 // milliseconds
	keepAlive         = 60 * time.Second

	// qos 1: at least once.
	qos = 1
)

var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrNotConnected     = errors.New("mqtt not connected")
	ErrPublishFailed    = errors.New("mqtt publish failed")
)

// Config holds broker connection settings.
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// Publisher sends each notification to <prefix>/<scope>/<serial>/<event>.
// Lifecycle notifications go to <prefix>/monitor.
type Publisher struct {
	client pahomqtt.Client
	prefix string
	logger *slog.Logger
}

// Connect dials the broker and returns a Publisher. The client reconnects
// automatically after the initial connection succeeds.
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", cfg.Broker, "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
	})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return newPublisher(client, cfg.TopicPrefix, logger), nil
}

func newPublisher(client pahomqtt.Client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, prefix: prefix, logger: logger}
}

// Topic returns the topic a notification is published on.
func Topic(prefix string, n domain.Notification) string {
	if n.DeviceSerial == "" {
		return prefix + "/monitor"
	}
	return fmt.Sprintf("%s/%s/%s/%s", prefix, n.Scope, n.DeviceSerial, n.Event)
}

// Notify publishes n as JSON and waits for the broker acknowledgement.
func (p *Publisher) Notify(ctx context.Context, n domain.Notification) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPublishFailed, err)
	}

	topic := Topic(p.prefix, n)
	token := p.client.Publish(topic, qos, false, payload)

	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailed, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	p.logger.Debug("notification published", "topic", topic, "notification_id", n.ID)
	return nil
}

// Close disconnects from the broker after pending publishes drain.
func (p *Publisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}
