// Package queue receives and acknowledges messages on an SQS queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS limits for a single ReceiveMessage call.
const (
	MaxBatch = 10
	MaxWait  = 20 * time.Second
)

// ErrNoReceiptHandle is returned when deleting a message without a handle.
var ErrNoReceiptHandle = errors.New("message has no receipt handle")

// Message is one message as received from the queue.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// API is the subset of the SQS client the queue uses.
type API interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// NewAPI returns an SQS client for cfg.
func NewAPI(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// SQS is a single queue identified by its URL.
type SQS struct {
	api API
	url string
}

// New returns a queue bound to url.
func New(api API, url string) *SQS {
	return &SQS{api: api, url: url}
}

// URL returns the queue URL.
func (q *SQS) URL() string { return q.url }

// Receive long-polls for up to max messages, waiting at most wait. max is
// clamped to 1..10 and wait to 0..20s.
func (q *SQS) Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error) {
	out, err := q.api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(ClampBatch(max)),
		WaitTimeSeconds:     int32(clampWait(wait) / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete acknowledges a message by its receipt handle.
func (q *SQS) Delete(ctx context.Context, m Message) error {
	if m.ReceiptHandle == "" {
		return fmt.Errorf("delete message %s: %w", m.ID, ErrNoReceiptHandle)
	}
	_, err := q.api.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(m.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", m.ID, err)
	}
	return nil
}

// ClampBatch bounds n to the 1..10 range SQS accepts.
func ClampBatch(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxBatch:
		return MaxBatch
	}
	return n
}

func clampWait(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d > MaxWait:
		return MaxWait
	}
	return d
}
