package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Default routing for student registration events.
const (
	DefaultSource       = "com.student.registration"
	DefaultDetailType   = "StudentRegistered"
	DefaultEventBusName = "StudentEventBus"
)

// Route names the bus and tags an envelope is published with.
type Route struct {
	Source       string `json:"source" toml:"source"`
	DetailType   string `json:"detail_type" toml:"detail_type"`
	EventBusName string `json:"event_bus_name" toml:"event_bus_name"`
}

// DefaultRoute returns the route used when none is configured.
func DefaultRoute() Route {
	return Route{
		Source:       DefaultSource,
		DetailType:   DefaultDetailType,
		EventBusName: DefaultEventBusName,
	}
}

// Envelope wraps a Student for transit on the event bus. Detail is the
// JSON-serialized Student and always decodes back to a valid record.
type Envelope struct {
	Source       string    `json:"source"`
	DetailType   string    `json:"detail_type"`
	Detail       string    `json:"detail"`
	EventBusName string    `json:"event_bus_name"`
	Time         time.Time `json:"time"`
}

// NewEnvelope validates s and wraps it for the given route, stamped with at.
func NewEnvelope(r Route, s Student, at time.Time) (Envelope, error) {
	if err := s.Validate(); err != nil {
		return Envelope{}, err
	}
	detail, err := json.Marshal(s)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal detail: %w", err)
	}
	return Envelope{
		Source:       r.Source,
		DetailType:   r.DetailType,
		Detail:       string(detail),
		EventBusName: r.EventBusName,
		Time:         at.UTC(),
	}, nil
}

// Student decodes the envelope detail.
func (e Envelope) Student() (Student, error) {
	var s Student
	if err := json.Unmarshal([]byte(e.Detail), &s); err != nil {
		return Student{}, fmt.Errorf("decode detail: %w", err)
	}
	return s, s.Validate()
}

// QueueEvent is an envelope as it arrives on the queue: the bus delivers the
// full event document, with the producer timestamp in "time" and the student
// as an object in "detail".
type QueueEvent struct {
	Version    string    `json:"version"`
	ID         string    `json:"id"`
	DetailType string    `json:"detail-type"`
	Source     string    `json:"source"`
	Account    string    `json:"account"`
	Time       time.Time `json:"time"`
	Region     string    `json:"region"`
	Resources  []string  `json:"resources"`
	Detail     *Student  `json:"detail"`
}

// DecodeQueueEvent parses a raw queue message body. A body without a valid
// student detail is an error.
func DecodeQueueEvent(body string) (QueueEvent, error) {
	var ev QueueEvent
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		return QueueEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Detail == nil {
		return QueueEvent{}, fmt.Errorf("decode event: missing detail")
	}
	if err := ev.Detail.Validate(); err != nil {
		return QueueEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return ev, nil
}
