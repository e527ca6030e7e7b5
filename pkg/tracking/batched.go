package tracking

import (
	"context"
	"io"
	"time"

	"github.com/matst80/slask-rulecontext/pkg/common"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	noEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracking_rule_context_events_total",
		Help: "The total number of rule context change events queued",
	})
	noFailedBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracking_failed_batches_total",
		Help: "The total number of event batches that could not be sent",
	})
)

type Sender interface {
	Send(ctx context.Context, events []RuleContextEvent) error
}

// BatchedTracking queues rule context events and sends them in batches from
// a background worker, so tracking never blocks the search loop.
type BatchedTracking struct {
	sender  Sender
	country string
	queue   *common.QueueHandler[RuleContextEvent]
	logger  *zap.Logger
}

var _ types.Tracking = (*BatchedTracking)(nil)

func NewBatchedTracking(sender Sender, country string, chunkSize int, interval time.Duration, logger *zap.Logger) *BatchedTracking {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &BatchedTracking{
		sender:  sender,
		country: country,
		logger:  logger,
	}
	t.queue = common.NewQueueHandler(t.send, chunkSize, interval)
	return t
}

func (t *BatchedTracking) send(events []RuleContextEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := t.sender.Send(ctx, events); err != nil {
		noFailedBatches.Inc()
		t.logger.Error("error sending rule context events", zap.Int("events", len(events)), zap.Error(err))
	}
}

func (t *BatchedTracking) TrackRuleContexts(sessionId string, previous, current []string) error {
	t.queue.Add(NewRuleContextEvent(sessionId, t.country, previous, current))
	noEvents.Inc()
	return nil
}

// Close flushes queued events and closes the sender when it can be closed.
func (t *BatchedTracking) Close() error {
	t.queue.Stop()
	if closer, ok := t.sender.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
