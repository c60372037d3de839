package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lemonmarkets/matching-engine/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	matchesTopic      = "matches"
	orderStatusTopic  = "order-status"
	writeTimeout      = 2 * time.Second
)

// KafkaPublisher publishes match and order-status events as JSON to
// the configured brokers. Writes are one-shot and non-retrying: a
// stuck broker must never stall the processor loop.
type KafkaPublisher struct {
	matches      *kafka.Writer
	orderStatus  *kafka.Writer
	log          *zap.Logger
}

// NewKafkaPublisher builds writers for the matches and order-status
// topics against brokers; connections are opened on first write. Topics are created automatically if the
// cluster allows it.
func NewKafkaPublisher(brokers []string, log *zap.Logger) *KafkaPublisher {
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			MaxAttempts:            1,
			BatchTimeout:           10 * time.Millisecond,
		}
	}
	return &KafkaPublisher{
		matches:     newWriter(matchesTopic),
		orderStatus: newWriter(orderStatusTopic),
		log:         log,
	}
}

type matchEvent struct {
	BuyOrderID      string    `json:"buy_order_id"`
	SellOrderID     string    `json:"sell_order_id"`
	MatchedQuantity int64     `json:"matched_quantity"`
	MatchedAt       time.Time `json:"matched_at"`
	Instrument      string    `json:"instrument"`
}

type orderStatusEvent struct {
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status"`
	Quantity   int64     `json:"remaining_quantity"`
	Instrument string    `json:"instrument"`
	At         time.Time `json:"at"`
}

func matchEventJSON(match *models.Match) ([]byte, error) {
	return json.Marshal(matchEvent{
		BuyOrderID:      match.BuyOrderID,
		SellOrderID:     match.SellOrderID,
		MatchedQuantity: match.MatchedQuantity,
		MatchedAt:       match.MatchedAt,
		Instrument:      match.Instrument,
	})
}

// PublishMatch writes match to the matches topic, keyed by the buy
// order id so matches for the same order land on one partition.
func (p *KafkaPublisher) PublishMatch(ctx context.Context, match *models.Match) error {
	payload, err := matchEventJSON(match)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.matches.WriteMessages(ctx, kafka.Message{Key: []byte(match.BuyOrderID), Value: payload}); err != nil {
		return fmt.Errorf("write match event: %w", err)
	}
	return nil
}

// PublishOrderStatus writes order's current status to the
// order-status topic, keyed by order id.
func (p *KafkaPublisher) PublishOrderStatus(ctx context.Context, order *models.Order) error {
	payload, err := json.Marshal(orderStatusEvent{
		OrderID:    order.ID,
		Status:     string(order.Status),
		Quantity:   order.Quantity,
		Instrument: order.Instrument,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order status event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.orderStatus.WriteMessages(ctx, kafka.Message{Key: []byte(order.ID), Value: payload}); err != nil {
		return fmt.Errorf("write order status event: %w", err)
	}
	return nil
}

// Close flushes and closes both underlying writers.
func (p *KafkaPublisher) Close() error {
	err1 := p.matches.Close()
	err2 := p.orderStatus.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
