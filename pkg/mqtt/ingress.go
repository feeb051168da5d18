package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"liyu1981.xyz/plant-station-service/pkg/common"
	"liyu1981.xyz/plant-station-service/pkg/models"
	"liyu1981.xyz/plant-station-service/pkg/station"
)

const (
	DefaultTopic     = "plants/+/readings"
	subscribeTimeout = 5 * time.Second
	ingestTimeout    = 10 * time.Second
)

type Ingestor interface {
	Ingest(ctx context.Context, req station.IngestRequest) (*models.StoredReading, error)
}

// Ingress feeds readings published by devices into the ingestion pipeline.
// The device id is taken from the '+' segment of the topic.
type Ingress struct {
	client   paho.Client
	topic    string
	qos      byte
	ingestor Ingestor
	limiter  *station.RateLimiterStore
	logger   *zap.Logger
}

func NewIngress(client paho.Client, topic string, ingestor Ingestor, limiter *station.RateLimiterStore) *Ingress {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Ingress{
		client:   client,
		topic:    topic,
		qos:      1,
		ingestor: ingestor,
		limiter:  limiter,
		logger:   common.GetLoggerWith(common.LoggerNameMqttIngress, zap.String("topic", topic)),
	}
}

// NewClient connects to brokerURL with auto reconnect.
func NewClient(brokerURL string, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(subscribeTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", brokerURL, err)
	}
	return client, nil
}

func (i *Ingress) Start() error {
	token := i.client.Subscribe(i.topic, i.qos, i.HandleMessage)
	if !token.WaitTimeout(subscribeTimeout) {
		return errors.New("mqtt subscription timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscription failed: %w", err)
	}
	i.logger.Info("Subscribed to readings")
	return nil
}

func (i *Ingress) Stop() {
	if i.client != nil && i.client.IsConnected() {
		i.client.Unsubscribe(i.topic).WaitTimeout(subscribeTimeout)
		i.client.Disconnect(250)
	}
	i.logger.Info("Stopped")
}

// DeviceIDFromTopic matches topic against a pattern holding exactly one '+'
// and returns the segment in its place.
func DeviceIDFromTopic(pattern string, topic string) (string, bool) {
	want := strings.Split(pattern, "/")
	got := strings.Split(topic, "/")
	if len(want) != len(got) {
		return "", false
	}

	deviceID := ""
	for idx, segment := range want {
		switch segment {
		case "+":
			deviceID = got[idx]
		default:
			if got[idx] != segment {
				return "", false
			}
		}
	}
	return deviceID, deviceID != ""
}

func (i *Ingress) HandleMessage(_ paho.Client, msg paho.Message) {
	deviceID, ok := DeviceIDFromTopic(i.topic, msg.Topic())
	if !ok {
		i.logger.Warn("Ignoring message on unexpected topic", zap.String("message_topic", msg.Topic()))
		return
	}
	logger := i.logger.With(zap.String("device_id", deviceID))

	if !i.limiter.Allow(deviceID) {
		logger.Warn("Dropped reading over rate limit")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		logger.Warn("Dropped malformed reading", zap.Error(err))
		return
	}
	uid, _ := payload["uid"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	stored, err := i.ingestor.Ingest(ctx, station.IngestRequest{
		DeviceID: deviceID,
		UID:      uid,
		Payload:  payload,
	})
	if err != nil {
		if station.IsRejection(err) {
			logger.Warn("Reading rejected", zap.Error(err))
		} else {
			logger.Error("Reading failed", zap.Error(err))
		}
		return
	}
	logger.Info("Reading ingested", zap.Uint("id", stored.ID), zap.Uint("plant_id", stored.PlantID))
}
