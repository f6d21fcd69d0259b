package kafka

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// NewWriter builds the producer the outbox relay publishes through. The topic is set per
// message by the dispatcher, so the writer itself carries none.
func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
