package tracking

import (
	"context"
	"time"

	"github.com/matst80/slask-rulecontext/pkg/messaging"
	"github.com/matst80/slask-rulecontext/pkg/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitTracking struct {
	country    string
	connection *amqp.Connection
	timeout    time.Duration
}

var _ types.Tracking = (*RabbitTracking)(nil)

func NewRabbitTracking(url, country string) (*RabbitTracking, error) {
	ret := RabbitTracking{
		connection: nil,
		country:    country,
		timeout:    5 * time.Second,
	}
	err := ret.connect(url)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (t *RabbitTracking) connect(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	if err := declareOrClose(conn); err != nil {
		return err
	}
	t.connection = conn
	return nil
}

type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
}

// declareOrClose declares the rule context topic on conn. conn is closed when
// the declaration fails.
func declareOrClose(conn amqpConnection) error {
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	err = messaging.DefineTopic(ch, messaging.Exchange, messaging.RuleContextsChanged)
	ch.Close()
	if err != nil {
		conn.Close()
		return err
	}
	return nil
}

func (t *RabbitTracking) Close() error {
	return t.connection.Close()
}

// Send publishes a batch of events as one message.
func (t *RabbitTracking) Send(ctx context.Context, events []RuleContextEvent) error {
	return messaging.SendChange(ctx, t.connection, messaging.Exchange, messaging.RuleContextsChanged, events)
}

func (t *RabbitTracking) TrackRuleContexts(sessionId string, previous, current []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return t.Send(ctx, []RuleContextEvent{NewRuleContextEvent(sessionId, t.country, previous, current)})
}
