// Package drain empties the student event queue: fetch a batch, decode each
// message, process in producer-time order and delete each message right
// after it is handled. Delivery is at-least-once; anything not deleted
// reappears after the queue's visibility timeout.
package drain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alfredjeanlab/eventrelay/internal/dedup"
	"github.com/alfredjeanlab/eventrelay/internal/events"
	"github.com/alfredjeanlab/eventrelay/internal/model"
	"github.com/alfredjeanlab/eventrelay/internal/queue"
)

// Defaults for a drain cycle.
const (
	DefaultMaxMessages = 10
	DefaultWaitTime    = 2 * time.Second
)

// Queue is the message source.
type Queue interface {
	Receive(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error)
	Delete(ctx context.Context, m queue.Message) error
}

// Quarantine parks undecodable messages so they can be deleted from the queue.
type Quarantine interface {
	Put(ctx context.Context, m queue.Message, reason error) (string, error)
}

// StatusReporter is told whether the last cycle succeeded.
type StatusReporter interface {
	SetHealthy(ok bool)
}

// Options tunes a Drainer. A zero MaxMessages means DefaultMaxMessages.
type Options struct {
	MaxMessages int
	WaitTime    time.Duration
}

// Result counts what one cycle did.
type Result struct {
	Received     int
	Processed    int
	Deleted      int
	Duplicates   int
	DecodeErrors int
	Quarantined  int
}

// Drainer runs drain cycles against a queue. It is not safe for concurrent
// RunOnce calls; the Scheduler never overlaps cycles.
type Drainer struct {
	queue      Queue
	opts       Options
	dedup      dedup.Set
	quarantine Quarantine
	events     events.Publisher
	status     StatusReporter
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Drainer for q. Optional collaborators are attached with the
// With* methods.
func New(q Queue, opts Options, logger *slog.Logger) *Drainer {
	if opts.MaxMessages == 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	opts.MaxMessages = queue.ClampBatch(opts.MaxMessages)
	if logger == nil {
		logger = slog.Default()
	}
	return &Drainer{
		queue:  q,
		opts:   opts,
		dedup:  dedup.Noop{},
		events: &events.NoopPublisher{},
		logger: logger,
		now:    time.Now,
	}
}

// WithDedup suppresses redelivered messages using s.
func (d *Drainer) WithDedup(s dedup.Set) *Drainer {
	if s != nil {
		d.dedup = s
	}
	return d
}

// WithQuarantine enables the dead-letter path for undecodable messages.
func (d *Drainer) WithQuarantine(q Quarantine) *Drainer {
	d.quarantine = q
	return d
}

// WithEvents fans processed students out to p.
func (d *Drainer) WithEvents(p events.Publisher) *Drainer {
	if p != nil {
		d.events = p
	}
	return d
}

// WithMetrics records cycle metrics on m.
func (d *Drainer) WithMetrics(m *Metrics) *Drainer {
	d.metrics = m
	return d
}

// WithStatus reports cycle outcomes to r.
func (d *Drainer) WithStatus(r StatusReporter) *Drainer {
	d.status = r
	return d
}

type decoded struct {
	msg   queue.Message
	event model.QueueEvent
}

// RunOnce performs a single drain cycle. An empty queue is not an error.
// The first delete failure ends the cycle: messages handled before it stay
// deleted, the failing one and everything after it are left for
// redelivery.
func (d *Drainer) RunOnce(ctx context.Context) (Result, error) {
	var res Result

	msgs, err := d.queue.Receive(ctx, d.opts.MaxMessages, d.opts.WaitTime)
	if err != nil {
		d.metrics.receiveError()
		return res, fmt.Errorf("receive: %w", err)
	}
	if len(msgs) == 0 {
		d.logger.Info("no new events in the queue")
		d.metrics.lag(0)
		return res, nil
	}
	res.Received = len(msgs)
	d.metrics.received(len(msgs))

	var (
		batch     []decoded
		malformed []badMessage
	)
	for _, m := range msgs {
		ev, err := model.DecodeQueueEvent(m.Body)
		if err != nil {
			res.DecodeErrors++
			d.metrics.decodeError()
			d.logger.Warn("undecodable message", "message_id", m.ID, "err", err)
			malformed = append(malformed, badMessage{msg: m, err: err})
			continue
		}
		batch = append(batch, decoded{msg: m, event: ev})
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].event.Time.Before(batch[j].event.Time)
	})
	if len(batch) > 0 {
		d.metrics.lag(d.now().Sub(batch[0].event.Time).Seconds())
	}

	for _, item := range batch {
		if err := d.process(ctx, item, &res); err != nil {
			return res, err
		}
	}

	for _, bad := range malformed {
		if err := d.park(ctx, bad, &res); err != nil {
			return res, err
		}
	}

	d.logger.Info("all events processed",
		"received", res.Received, "processed", res.Processed, "deleted", res.Deleted,
		"duplicates", res.Duplicates, "decode_errors", res.DecodeErrors)
	return res, nil
}

func (d *Drainer) process(ctx context.Context, item decoded, res *Result) error {
	key := dedupKey(item)

	seen, err := d.dedup.Seen(ctx, key)
	if err != nil {
		d.logger.Warn("dedup lookup failed", "key", key, "err", err)
	}
	if seen {
		res.Duplicates++
		d.metrics.duplicate()
		d.logger.Info("skipping duplicate event", "key", key, "message_id", item.msg.ID)
		return d.ack(ctx, item.msg, res)
	}

	s := item.event.Detail
	d.logger.Info("processing event",
		"message_id", item.msg.ID,
		"student_id", s.StudentID,
		"name", s.FullName(),
		"dob", s.DateOfBirth,
		"timestamp", item.event.Time.Format(time.RFC3339),
	)

	if err := d.events.Publish(ctx, events.TopicStudentProcessed, events.StudentProcessed{
		Student:     *s,
		EventID:     item.event.ID,
		MessageID:   item.msg.ID,
		EventTime:   item.event.Time,
		ProcessedAt: d.now().UTC(),
	}); err != nil {
		d.logger.Warn("event fan-out failed", "message_id", item.msg.ID, "err", err)
	}

	if err := d.dedup.Mark(ctx, key); err != nil {
		d.logger.Warn("dedup mark failed", "key", key, "err", err)
	}
	res.Processed++
	d.metrics.processed()

	return d.ack(ctx, item.msg, res)
}

type badMessage struct {
	msg queue.Message
	err error
}

// park moves an undecodable message to quarantine and deletes it. Without a
// quarantine, or if the write fails, the message stays on the queue.
func (d *Drainer) park(ctx context.Context, bad badMessage, res *Result) error {
	if d.quarantine == nil {
		return nil
	}
	key, err := d.quarantine.Put(ctx, bad.msg, bad.err)
	if err != nil {
		d.logger.Error("quarantine write failed", "message_id", bad.msg.ID, "err", err)
		return nil
	}
	res.Quarantined++
	d.metrics.quarantined()
	d.logger.Info("message quarantined", "message_id", bad.msg.ID, "key", key)
	return d.ack(ctx, bad.msg, res)
}

func (d *Drainer) ack(ctx context.Context, m queue.Message, res *Result) error {
	if err := d.queue.Delete(ctx, m); err != nil {
		d.metrics.deleteError()
		return fmt.Errorf("delete: %w", err)
	}
	res.Deleted++
	d.metrics.deleted()
	return nil
}

// Cycle runs one drain cycle and logs, rather than returns, any failure.
func (d *Drainer) Cycle(ctx context.Context) {
	start := d.now()
	d.logger.Info("drain cycle triggered", "at", start.UTC().Format(time.RFC3339))

	res, err := d.RunOnce(ctx)
	d.metrics.cycle(err, d.now().Sub(start))

	summary := events.DrainCycle{
		Received:     res.Received,
		Processed:    res.Processed,
		Deleted:      res.Deleted,
		Duplicates:   res.Duplicates,
		DecodeErrors: res.DecodeErrors,
		Quarantined:  res.Quarantined,
	}
	if err != nil {
		summary.Error = err.Error()
		d.logger.Error("error processing events", "err", err,
			"processed", res.Processed, "deleted", res.Deleted)
	}
	if d.status != nil {
		d.status.SetHealthy(err == nil)
	}
	if pubErr := d.events.Publish(ctx, events.TopicDrainCycle, summary); pubErr != nil {
		d.logger.Warn("cycle summary fan-out failed", "err", pubErr)
	}
}

// dedupKey prefers the bus-assigned event id, which survives re-sends of
// the same event, and falls back to the queue message id.
func dedupKey(item decoded) string {
	if item.event.ID != "" {
		return item.event.ID
	}
	return item.msg.ID
}
