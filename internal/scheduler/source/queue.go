package source

import (
	"context"
	"sync"

	"github.com/sptrsv/sptrsv-sim/pkg/utils"
)

// SourceTypeQueue is the source type constant for the message-queue source.
const SourceTypeQueue SourceType = "queue"

func init() {
	Register(SourceTypeQueue, NewQueueSource)
}

// QueueOptions holds message-queue source specific configuration.
type QueueOptions struct {
	// Brokers is the list of broker addresses.
	Brokers []string

	// Topic is the topic/queue to consume DAG run requests from.
	Topic string

	// ConsumerGroup is the consumer group id.
	ConsumerGroup string
}

// DefaultQueueOptions returns the default options.
func DefaultQueueOptions() *QueueOptions {
	return &QueueOptions{
		Brokers:       []string{"localhost:9092"},
		Topic:         "sptrsv-runs",
		ConsumerGroup: "sptrsv-sim",
	}
}

// QueueSource implements DAGSource for a message-queue-delivered DAG run
// request. This is a documented stub: it never attaches a real broker
// client (e.g. sarama/confluent-kafka-go), mirroring the shape the
// eventual integration would take without pulling the dependency in
// before a concrete broker is chosen.
type QueueSource struct {
	name    string
	options *QueueOptions
	logger  utils.Logger

	jobChan chan *DAGJob
	stopCh  chan struct{}

	mu      sync.RWMutex
	running bool
}

// NewQueueSource creates a new queue source from configuration.
func NewQueueSource(cfg *SourceConfig) (DAGSource, error) {
	opts := &QueueOptions{
		Brokers:       []string{cfg.GetString("brokers", "localhost:9092")},
		Topic:         cfg.GetString("topic", "sptrsv-runs"),
		ConsumerGroup: cfg.GetString("consumer_group", "sptrsv-sim"),
	}

	return &QueueSource{
		name:    cfg.Name,
		options: opts,
		jobChan: make(chan *DAGJob, 100),
		stopCh:  make(chan struct{}),
	}, nil
}

// Type returns the source type.
func (s *QueueSource) Type() SourceType {
	return SourceTypeQueue
}

// Name returns the source instance name.
func (s *QueueSource) Name() string {
	return s.name
}

// Start starts the (stub) consumer loop.
func (s *QueueSource) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("Queue source %s starting with brokers=%v, topic=%s, group=%s",
			s.name, s.options.Brokers, s.options.Topic, s.options.ConsumerGroup)
	}

	go s.consumeLoop(ctx)
	return nil
}

// Stop stops the consumer loop.
func (s *QueueSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	return nil
}

// Jobs returns the job channel.
func (s *QueueSource) Jobs() <-chan *DAGJob {
	return s.jobChan
}

// Ack would commit the broker offset once a real client is wired in.
func (s *QueueSource) Ack(ctx context.Context, job *DAGJob) error {
	if s.logger != nil {
		s.logger.Debug("Queue source %s acked run %s", s.name, job.ID)
	}
	return nil
}

// Nack would route to a dead-letter topic once a real client is wired in.
func (s *QueueSource) Nack(ctx context.Context, job *DAGJob, reason string) error {
	if s.logger != nil {
		s.logger.Warn("Queue source %s nacked run %s: %s", s.name, job.ID, reason)
	}
	return nil
}

// HealthCheck always succeeds; there is no broker connection to probe.
func (s *QueueSource) HealthCheck(ctx context.Context) error {
	return nil
}

// consumeLoop is a placeholder for a real broker consume loop: it waits
// for a stop signal and never emits jobs, since no broker client is
// attached.
func (s *QueueSource) consumeLoop(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
}
