// Package publisher announces finished runs on a Redis stream so that
// downstream consumers can reload the artifacts they serve.
package publisher

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/goalfeed/internal/jobs"
	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// Streamer is the subset of the Redis client used for publishing.
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// maxLen bounds the stream so that it never grows without limit.
const maxLen = 1000

// RedisStreamPublisher publishes run summaries to a Redis stream
type RedisStreamPublisher struct {
	client  Streamer
	stream  string
	logger  *logging.Logger
	timeout time.Duration
}

// NewRedisStreamPublisher creates a publisher over an existing client
func NewRedisStreamPublisher(client Streamer, stream string, logger *logging.Logger) *RedisStreamPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisStreamPublisher{
		client:  client,
		stream:  stream,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// PublishSummary appends a summary entry to the stream.
func (p *RedisStreamPublisher) PublishSummary(ctx context.Context, s jobs.Summary) error {
	data, err := sonic.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode summary")
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"job":       s.Job,
			"run_id":    s.RunID,
			"status":    string(s.Status),
			"data":      string(data),
			"timestamp": s.Finished.Unix(),
		},
	}).Err()
	if err != nil {
		return errors.Wrapf(err, "xadd %s", p.stream)
	}
	return nil
}

// OnJobComplete publishes runs that changed an artifact or failed.
func (p *RedisStreamPublisher) OnJobComplete(s jobs.Summary) {
	if s.Added == 0 && s.Replaced == 0 && s.Errors == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.PublishSummary(ctx, s); err != nil {
		p.logger.Warn("publish run summary failed", "job", s.Job, "run_id", s.RunID, "error", err)
	}
}

func (p *RedisStreamPublisher) OnJobStart(string, string)   {}
func (p *RedisStreamPublisher) OnProgress(string, int, int) {}
func (p *RedisStreamPublisher) OnJobError(string, error)    {}
