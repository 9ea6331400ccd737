// Package client provides typed access to a running relay: an HTTP client for
// the publisher API and a gRPC client for the drain worker's health service.
package client

import (
	"context"

	"github.com/alfredjeanlab/eventrelay/internal/model"
)

// PublisherClient is what the CLI uses to drive a publisher. HTTPClient
// implements it.
type PublisherClient interface {
	// PublishStudent publishes one record and returns the server's message.
	PublishStudent(ctx context.Context, s model.Student) (string, error)
	// PublishBatch asks the server to publish a generated batch.
	PublishBatch(ctx context.Context) (string, error)
	// Health returns the publisher's reported status.
	Health(ctx context.Context) (string, error)
	Close() error
}
