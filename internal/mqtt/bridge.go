// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mqtt mirrors light and shutter state to an MQTT broker and turns
// set messages into gateway requests.
//
// Topics, below the configured prefix:
//
//	light/<module>/<output>/state    retained, 0..100 or "unknown"
//	light/<module>/<output>/set      0..100, "on" or "off"
//	shutter/<module>/<run>/state     retained, 0..100
//	shutter/<module>/<run>/set       "<pct>", "<min>..<max>", "open" or "close"
//	bus/delivery_failed              module that never acknowledged
package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/Thermoquad/yali/internal/config"
	"github.com/Thermoquad/yali/pkg/yali"
)

const (
	qos        = 1
	retryDelay = 5 * time.Second
)

// Submitter accepts requests on behalf of MQTT clients
type Submitter interface {
	Submit(p *yali.Packet) error
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Bridge publishes gateway events and forwards set commands.
type Bridge struct {
	client paho.Client
	pub    publisher
	prefix string
	target Submitter

	mu        sync.RWMutex
	connected bool
}

// New creates a bridge for cfg. Commands are passed to target.
func New(cfg config.MQTTConfig, target Submitter) *Bridge {
	b := &Bridge{prefix: cfg.TopicPrefix, target: target}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetWill(b.topic("status"), "offline", qos, true)

	opts.SetOnConnectHandler(func(c paho.Client) {
		b.setConnected(true)
		log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")

		c.Publish(b.topic("status"), qos, true, "online")
		for _, filter := range []string{b.topic("light/+/+/set"), b.topic("shutter/+/+/set")} {
			if token := c.Subscribe(filter, qos, b.onMessage); token.Wait() && token.Error() != nil {
				log.WithError(token.Error()).Errorf("Failed to subscribe to %s", filter)
			}
		}
	})
	opts.SetConnectionLostHandler(func(c paho.Client, err error) {
		b.setConnected(false)
		log.WithError(err).Warn("MQTT connection lost")
	})

	b.client = paho.NewClient(opts)
	b.pub = b.client
	return b
}

// Connect connects to the broker, retrying until ctx is cancelled.
func (b *Bridge) Connect(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		token := b.client.Connect()
		if token.Wait() && token.Error() == nil {
			return nil
		}

		log.WithError(token.Error()).WithField("attempt", attempt).Warn("MQTT connection failed, retrying")
		select {
		case <-ctx.Done():
			return fmt.Errorf("mqtt connection cancelled: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}
}

// Close publishes the offline status and disconnects
func (b *Bridge) Close() {
	if b.client.IsConnected() {
		b.client.Publish(b.topic("status"), qos, true, "offline").WaitTimeout(time.Second)
		b.client.Disconnect(250)
	}
	b.setConnected(false)
}

// IsConnected reports whether the broker connection is up
func (b *Bridge) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.connected
}

func (b *Bridge) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

func (b *Bridge) topic(suffix string) string {
	return b.prefix + "/" + suffix
}

// LightChanged implements gateway.Observer
func (b *Bridge) LightChanged(module, output byte, state int) {
	payload := "unknown"
	if state >= 0 {
		payload = fmt.Sprintf("%d", state)
	}
	b.publish(b.topic(fmt.Sprintf("light/%d/%d/state", module, output)), true, payload)
}

// ShutterChanged implements gateway.Observer
func (b *Bridge) ShutterChanged(module, run byte, position int) {
	b.publish(b.topic(fmt.Sprintf("shutter/%d/%d/state", module, run)), true, fmt.Sprintf("%d", position))
}

// DeliveryFailed implements gateway.Observer
func (b *Bridge) DeliveryFailed(dst byte) {
	b.publish(b.topic("bus/delivery_failed"), false, fmt.Sprintf("%d", dst))
}

// publish does not wait for the broker; failures are logged later.
func (b *Bridge) publish(topic string, retained bool, payload string) {
	token := b.pub.Publish(topic, qos, retained, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			log.WithError(token.Error()).WithField("topic", topic).Debug("MQTT publish failed")
		}
	}()
}

func (b *Bridge) onMessage(_ paho.Client, msg paho.Message) {
	b.handle(msg.Topic(), msg.Payload())
}

func (b *Bridge) handle(topic string, payload []byte) {
	p, err := ParseCommand(b.prefix, topic, payload)
	if err != nil {
		log.WithError(err).WithField("topic", topic).Warn("Ignoring MQTT command")
		return
	}

	log.WithFields(log.Fields{
		"topic":   topic,
		"payload": string(payload),
	}).Debug("MQTT command")

	if err := b.target.Submit(p); err != nil {
		log.WithError(err).Warn("Failed to submit MQTT command")
	}
}
