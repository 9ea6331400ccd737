package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/eventrelay/internal/bus"
	"github.com/alfredjeanlab/eventrelay/internal/events"
	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// StudentPublisher sends student records to the event bus. *bus.Publisher
// implements it.
type StudentPublisher interface {
	Publish(ctx context.Context, students ...model.Student) (bus.Ack, error)
	PublishGenerated(ctx context.Context, n int) (bus.Ack, error)
}

// RelayServer is the publish side of the relay: it turns HTTP requests into
// bus publications and announces accepted batches on the event fan-out.
type RelayServer struct {
	publisher StudentPublisher
	events    events.Publisher
	busName   string
	batchSize int
	logger    *slog.Logger
}

// NewRelayServer returns a RelayServer that generates batchSize records per
// batch request. p may be nil when fan-out is disabled.
func NewRelayServer(sp StudentPublisher, p events.Publisher, busName string, batchSize int, logger *slog.Logger) *RelayServer {
	if p == nil {
		p = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayServer{
		publisher: sp,
		events:    p,
		busName:   busName,
		batchSize: batchSize,
		logger:    logger,
	}
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// Is lets errors.Is match any inputError against model.ErrInvalidInput.
func (e inputError) Is(target error) bool { return target == model.ErrInvalidInput }

// PublishStudent decodes a JSON student record and publishes it as a single
// event. Malformed or null bodies are input errors.
func (s *RelayServer) PublishStudent(ctx context.Context, body []byte) (bus.Ack, error) {
	var st *model.Student
	if err := json.Unmarshal(body, &st); err != nil {
		return bus.Ack{}, inputError("malformed student: " + err.Error())
	}
	if st == nil {
		return bus.Ack{}, inputError("student body is null")
	}

	ack, err := s.publisher.Publish(ctx, *st)
	if err != nil {
		return bus.Ack{}, err
	}
	s.announce(ctx, ack)
	return ack, nil
}

// PublishBatch generates the configured number of synthetic students and
// publishes them in one call.
func (s *RelayServer) PublishBatch(ctx context.Context) (bus.Ack, error) {
	ack, err := s.publisher.PublishGenerated(ctx, s.batchSize)
	if err != nil {
		return bus.Ack{}, fmt.Errorf("publish batch of %d: %w", s.batchSize, err)
	}
	s.announce(ctx, ack)
	return ack, nil
}

func (s *RelayServer) announce(ctx context.Context, ack bus.Ack) {
	if err := s.events.Publish(ctx, events.TopicStudentsPublished, events.StudentsPublished{
		Count:    ack.Accepted,
		EventIDs: ack.EventIDs,
		Bus:      s.busName,
	}); err != nil {
		s.logger.Warn("failed to publish event", "topic", events.TopicStudentsPublished, "error", err)
	}
}

// isInputError reports whether err should surface as a 400.
func isInputError(err error) bool {
	var ie inputError
	return errors.As(err, &ie) || errors.Is(err, model.ErrInvalidInput)
}
