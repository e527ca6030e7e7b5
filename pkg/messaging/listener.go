package messaging

import (
	"context"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeclareBindAndConsume binds an exclusive, server named queue to topic and
// starts consuming it. Every listener gets its own copy of each message, the
// durable queue from DefineTopic is left to the tracking consumer.
func DeclareBindAndConsume(ch *amqp.Channel, prefix string, topic ChangeTopic) (<-chan amqp.Delivery, error) {
	name := topic.Name(prefix)
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, err
	}
	if err = ch.QueueBind(q.Name, name, name, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(q.Name, "", false, true, false, false, nil)
}

// Decode parses a delivery body published with SendChange.
func Decode[V any](body []byte) (V, error) {
	var v V
	err := sonic.Unmarshal(body, &v)
	return v, err
}

// ListenToTopic consumes topic until ctx is done or the channel closes.
// Messages the handler rejects are nacked without requeue.
func ListenToTopic[V any](ctx context.Context, ch *amqp.Channel, prefix string, topic ChangeTopic, logger *zap.Logger, handler func(V) error) error {
	fc, err := DeclareBindAndConsume(ch, prefix, topic)
	if err != nil {
		return err
	}

	go func(msgs <-chan amqp.Delivery) {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				v, err := Decode[V](d.Body)
				if err == nil {
					err = handler(v)
				}
				if err != nil {
					logger.Error("error processing message", zap.String("topic", string(topic)), zap.Error(err))
					d.Nack(false, false)
					continue
				}
				d.Ack(false)
			}
		}
	}(fc)
	return nil
}
