// Package events fans relay activity out to NATS for downstream consumers
// and the `relay watch` command.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// Event topic constants
const (
	TopicStudentProcessed  = "students.registered.processed"
	TopicStudentsPublished = "students.registered.published"
	TopicDrainCycle        = "relay.drain.cycle"
)

// TopicAll matches every topic the relay emits.
const TopicAll = ">"

// StudentProcessed is emitted once per queue message the drain loop handled.
type StudentProcessed struct {
	Student     model.Student `json:"student"`
	EventID     string        `json:"event_id,omitempty"`
	MessageID   string        `json:"message_id"`
	EventTime   time.Time     `json:"event_time"`
	ProcessedAt time.Time     `json:"processed_at"`
}

// StudentsPublished is emitted after the bus accepted a publish call.
type StudentsPublished struct {
	Count    int      `json:"count"`
	EventIDs []string `json:"event_ids,omitempty"`
	Bus      string   `json:"bus"`
}

// DrainCycle summarizes one drain cycle.
type DrainCycle struct {
	Received     int    `json:"received"`
	Processed    int    `json:"processed"`
	Deleted      int    `json:"deleted"`
	Duplicates   int    `json:"duplicates"`
	DecodeErrors int    `json:"decode_errors"`
	Quarantined  int    `json:"quarantined"`
	Error        string `json:"error,omitempty"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
