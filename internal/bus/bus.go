// Package bus publishes student registration envelopes to the event bus.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/alfredjeanlab/eventrelay/internal/generate"
	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// MaxEntries is the number of entries AWS EventBridge accepts in one
// PutEvents call. Emulators such as LocalStack do not enforce it.
const MaxEntries = 10

// ErrPublishFailed is returned when the bus accepted the call but rejected
// one or more entries.
var ErrPublishFailed = errors.New("event bus rejected one or more entries")

// API is the subset of the EventBridge client the publisher uses.
type API interface {
	PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// NewAPI returns an EventBridge client for cfg.
func NewAPI(cfg aws.Config) *eventbridge.Client {
	return eventbridge.NewFromConfig(cfg)
}

// Ack reports a successful publish.
type Ack struct {
	Accepted int
	EventIDs []string
}

// Publisher wraps student records into envelopes and submits them to the
// bus in a single PutEvents call. It never retries.
type Publisher struct {
	api     API
	route   model.Route
	gen     *generate.Generator
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a Publisher. metrics may be nil.
func NewPublisher(api API, route model.Route, gen *generate.Generator, metrics *Metrics, logger *slog.Logger) *Publisher {
	if gen == nil {
		gen = generate.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		api:     api,
		route:   route,
		gen:     gen,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish sends one envelope per student in one bus call. Input is fully
// validated first: on ErrInvalidInput the bus is never called.
func (p *Publisher) Publish(ctx context.Context, students ...model.Student) (Ack, error) {
	if len(students) == 0 {
		return Ack{}, fmt.Errorf("publish: no students: %w", model.ErrInvalidInput)
	}

	now := p.now()
	entries := make([]types.PutEventsRequestEntry, 0, len(students))
	for i, s := range students {
		env, err := model.NewEnvelope(p.route, s, now)
		if err != nil {
			return Ack{}, fmt.Errorf("publish: student %d: %w", i, err)
		}
		entries = append(entries, toEntry(env))
	}

	p.metrics.call()
	out, err := p.api.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		p.metrics.observe("error", len(entries))
		return Ack{}, fmt.Errorf("put events: %w", err)
	}

	if out.FailedEntryCount > 0 {
		failed := int(out.FailedEntryCount)
		p.metrics.observe("failed", failed)
		p.metrics.observe("accepted", len(entries)-failed)
		p.logger.Error("event bus rejected entries",
			"failed", failed, "total", len(entries), "bus", p.route.EventBusName)
		return Ack{}, fmt.Errorf("put events: %d of %d entries: %w", failed, len(entries), ErrPublishFailed)
	}

	ack := Ack{Accepted: len(entries)}
	for _, e := range out.Entries {
		if id := aws.ToString(e.EventId); id != "" {
			ack.EventIDs = append(ack.EventIDs, id)
		}
	}
	p.metrics.observe("accepted", ack.Accepted)
	p.logger.Info("events published", "count", ack.Accepted, "bus", p.route.EventBusName)
	return ack, nil
}

// PublishGenerated publishes n synthetic students, shuffled, in one call.
func (p *Publisher) PublishGenerated(ctx context.Context, n int) (Ack, error) {
	students, err := p.gen.Students(n)
	if err != nil {
		return Ack{}, fmt.Errorf("publish generated: %w", err)
	}
	return p.Publish(ctx, students...)
}

// Route returns the routing the publisher stamps on envelopes.
func (p *Publisher) Route() model.Route { return p.route }

func toEntry(env model.Envelope) types.PutEventsRequestEntry {
	return types.PutEventsRequestEntry{
		Source:       aws.String(env.Source),
		DetailType:   aws.String(env.DetailType),
		Detail:       aws.String(env.Detail),
		EventBusName: aws.String(env.EventBusName),
		Time:         aws.Time(env.Time),
	}
}
