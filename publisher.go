package main

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// publisher sends every reading as retained JSON to an MQTT topic.
type publisher struct {
	client mqtt.Client
	topic  string
}

func newPublisher(broker, clientID, topic string) (*publisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	log.Printf("connected to MQTT broker at %s", broker)
	return &publisher{client: client, topic: topic}, nil
}

func (p *publisher) Publish(r SensorReading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

func (p *publisher) Close() {
	p.client.Disconnect(250)
}
