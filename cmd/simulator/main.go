package main

import (
	"encoding/json"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/caiomathol/weatherwatch/internal/config"
)

type sample struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker())
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	topic := config.MQTTTopic()
	for i := 0; i < 100; i++ {
		s := sample{
			Temperature: 22 + rand.Float64()*12,
			Humidity:    40 + rand.Float64()*40,
		}
		payload, _ := json.Marshal(s)
		token := client.Publish(topic, 0, false, payload)
		token.Wait()
		time.Sleep(2 * time.Second)
	}
	log.Info().Msg("simulation done")
}
