// Package messaging publishes and consumes change notifications over
// RabbitMQ. Each ChangeTopic gets its own topic exchange named
// "<prefix>_<topic>", for rule context changes "global_rule_contexts".
package messaging

type ChangeTopic string

const (
	// RuleContextsChanged carries batches of rule context change events from
	// search sessions.
	RuleContextsChanged ChangeTopic = "rule_contexts"
)

// Exchange is the prefix every topic is declared under.
const Exchange = "global"

// Name is the exchange and routing key topic is published on.
func (t ChangeTopic) Name(prefix string) string {
	return prefix + "_" + string(t)
}
