// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	logger *zap.SugaredLogger
}

func NewLogPublisher(logger *zap.SugaredLogger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, exchange, eventName string, payload []byte) error {
	p.logger.Debugf("Event %s on %s: %s", eventName, exchange, payload)

	return nil
}

func (p *LogPublisher) Check() error { return nil }

func (p *LogPublisher) Close() error { return nil }

// KafkaPublisher sends each event to the topic named after the exchange,
// keyed by event name with a ce_type header.
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

// NewKafkaPublisher connects a synchronous producer. Sarama's own retries are
// disabled so every event is attempted once.
func NewKafkaPublisher(brokers []string, clientID string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 0
	config.Producer.Timeout = publishTimeout

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return newKafkaPublisher(producer), nil
}

func newKafkaPublisher(producer sarama.SyncProducer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(_ context.Context, exchange, eventName string, payload []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: exchange,
		Key:   sarama.StringEncoder(eventName),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_type"), Value: []byte(eventName)},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}

	return nil
}

func (p *KafkaPublisher) Check() error { return nil }

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// MQTTPublisher publishes to "<exchange>/<eventName>" with QoS 1.
type MQTTPublisher struct {
	client mqtt.Client
}

func NewMQTTPublisher(brokerURL, clientID string, logger *zap.SugaredLogger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warnf("Lost connection to MQTT broker %s: %v", brokerURL, err)
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", brokerURL)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", brokerURL, err)
	}

	return &MQTTPublisher{client: client}, nil
}

func MQTTTopic(exchange, eventName string) string {
	return exchange + "/" + eventName
}

func (p *MQTTPublisher) Publish(ctx context.Context, exchange, eventName string, payload []byte) error {
	token := p.client.Publish(MQTTTopic(exchange, eventName), 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishFailure, ctx.Err())
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}

	return nil
}

func (p *MQTTPublisher) Check() error {
	if !p.client.IsConnectionOpen() {
		return errors.New("mqtt connection is not open")
	}

	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)

	return nil
}

// RedisPublisher appends events to a Redis stream named after the exchange.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(addr, password string, db int) *RedisPublisher {
	return &RedisPublisher{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (p *RedisPublisher) Publish(ctx context.Context, exchange, eventName string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: exchange,
		Values: map[string]interface{}{
			"type": eventName,
			"data": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}

	return nil
}

func (p *RedisPublisher) Check() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return p.client.Ping(ctx).Err()
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
