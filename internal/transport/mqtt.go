// Package transport subscribes to the weather topic on the public
// broker and feeds raw payloads to a handler.
package transport

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/live"
)

// Handler is invoked once per inbound message, in delivery order.
type Handler func(topic string, payload []byte)

// Subscriber owns the broker connection. Connect, reconnect and loss
// events are surfaced only through the hub's connection-status slot.
type Subscriber struct {
	client mqtt.Client
	hub    *live.Hub
}

func Connect(brokerURL, topic string, handler Handler, hub *live.Hub) (*Subscriber, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("weather-app-" + uuid.NewString()[:8]).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)

	opts.SetOnConnectHandler(func(c mqtt.Client) {
		hub.SetConnectionStatus(true)
		token := c.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			handler(msg.Topic(), msg.Payload())
		})
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
		} else {
			log.Info().Str("topic", topic).Msg("subscribed")
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("broker connection lost")
		hub.SetConnectionStatus(false)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	return &Subscriber{client: client, hub: hub}, nil
}

// Disconnect tears the connection down and resets live state. In-flight
// message handling is not aborted; only new deliveries stop.
func (s *Subscriber) Disconnect() {
	s.client.Disconnect(250)
	s.hub.SetConnectionStatus(false)
	s.hub.Reset()
}
