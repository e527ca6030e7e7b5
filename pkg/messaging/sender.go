package messaging

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefineTopic declares the durable exchange for topic and a durable queue
// bound to it, so rule context events published while no tracking consumer
// is connected are kept until one is.
func DefineTopic(ch *amqp.Channel, prefix string, topic ChangeTopic) error {
	name := topic.Name(prefix)
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}
	q, err := ch.QueueDeclare(name, true, false, false, false, nil)
	if err != nil {
		return err
	}
	return ch.QueueBind(q.Name, name, name, false, nil)
}

// Encode serializes a message body the way SendChange publishes it.
func Encode[V any](data V) ([]byte, error) {
	return sonic.Marshal(data)
}

// SendChange publishes data as one persistent JSON message on topic. A
// batch of rule context events is sent as a single message.
func SendChange[V any](ctx context.Context, c *amqp.Connection, prefix string, topic ChangeTopic, data V) error {
	body, err := Encode(data)
	if err != nil {
		return err
	}
	ch, err := c.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	name := topic.Name(prefix)
	return ch.PublishWithContext(ctx, name, name, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         string(topic),
		Body:         body,
	})
}
