// Package quarantine parks undecodable queue messages in an S3-compatible
// bucket so they can be inspected after being removed from the queue.
package quarantine

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alfredjeanlab/eventrelay/internal/idgen"
	"github.com/alfredjeanlab/eventrelay/internal/queue"
)

// API is the subset of the S3 client used for quarantine writes.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewAPI returns an S3 client for cfg. With a custom endpoint, path-style
// addressing is enabled (for LocalStack, MinIO and similar).
func NewAPI(cfg aws.Config) *s3.Client {
	var opts []func(*s3.Options)
	if cfg.BaseEndpoint != nil {
		opts = append(opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(cfg, opts...)
}

// S3Sink writes each quarantined message body as its own object.
type S3Sink struct {
	api    API
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Sink creates a sink writing under prefix in bucket.
func NewS3Sink(api API, bucket, prefix string) *S3Sink {
	return &S3Sink{
		api:    api,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Bucket returns the destination bucket.
func (s *S3Sink) Bucket() string { return s.bucket }

// Put uploads the raw body of m with the decode failure recorded as object
// metadata, and returns the object key.
func (s *S3Sink) Put(ctx context.Context, m queue.Message, reason error) (string, error) {
	key, err := s.key(m)
	if err != nil {
		return "", err
	}

	meta := map[string]string{"message-id": m.ID}
	if reason != nil {
		meta["reason"] = metadataValue(reason.Error(), maxReasonBytes)
	}

	contentType := "application/json"
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(m.Body),
		ContentType: &contentType,
		Metadata:    meta,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return key, nil
}

// key is <prefix>/<yyyy/mm/dd>/<message id>.json; messages without an id
// get a generated one.
func (s *S3Sink) key(m queue.Message) (string, error) {
	name := m.ID
	if name == "" {
		id, err := idgen.Generate()
		if err != nil {
			return "", fmt.Errorf("quarantine key: %w", err)
		}
		name = id
	}
	return path.Join(s.prefix, s.now().UTC().Format("2006/01/02"), name+".json"), nil
}

// maxReasonBytes bounds the reason metadata; S3 caps all user metadata at 2 KB.
const maxReasonBytes = 1024

// metadataValue escapes s to US-ASCII, as S3 requires for user metadata, and
// cuts it to at most n bytes.
func metadataValue(s string, n int) string {
	q := strconv.QuoteToASCII(s)
	return truncate(q[1:len(q)-1], n)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
