package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-gl/internal/shared"
)

// TaskTypeRecord is the asynq task carrying one audit record.
const TaskTypeRecord = "audit:record"

// Enqueuer is the subset of *asynq.Client the dispatcher needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher is an AuditSink that defers the write to the worker. The event
// id doubles as the task id so a retried enqueue never duplicates a record.
type Dispatcher struct {
	client Enqueuer
	queue  string
}

// NewDispatcher constructs a Dispatcher publishing on queue.
func NewDispatcher(client Enqueuer, queue string) *Dispatcher {
	if queue == "" {
		queue = "default"
	}
	return &Dispatcher{client: client, queue: queue}
}

// NewRecordTask encodes log as an asynq task.
func NewRecordTask(log shared.AuditLog) (*asynq.Task, error) {
	if err := log.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRecord, data), nil
}

// Record implements shared.AuditSink.
func (d *Dispatcher) Record(ctx context.Context, log shared.AuditLog) error {
	if d == nil || d.client == nil {
		return errors.New("audit dispatcher not initialised")
	}
	task, err := NewRecordTask(log)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(d.queue), asynq.MaxRetry(10)}
	if log.EventID != "" {
		opts = append(opts, asynq.TaskID(log.EventID))
	}
	if _, err := d.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue audit record: %w", err)
	}
	return nil
}

// Processor writes dispatched records to the durable sink.
type Processor struct {
	sink shared.AuditSink
}

// NewProcessor constructs a Processor.
func NewProcessor(sink shared.AuditSink) *Processor {
	return &Processor{sink: sink}
}

// Handle is the asynq handler for TaskTypeRecord.
func (p *Processor) Handle(ctx context.Context, t *asynq.Task) error {
	var log shared.AuditLog
	if err := json.Unmarshal(t.Payload(), &log); err != nil {
		return fmt.Errorf("decode audit record: %v: %w", err, asynq.SkipRetry)
	}
	if err := log.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return p.sink.Record(ctx, log)
}
