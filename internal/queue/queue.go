// Package queue carries chunk indexing jobs between the API and the worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultName = "coursegen:index"

type IndexJob struct {
	CourseID   string    `json:"course_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue struct {
	client *redis.Client
	name   string
}

func New(url string, name string) (*Queue, error) {
	if url == "" {
		return nil, errors.New("missing redis url")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = DefaultName
	}
	return &Queue{client: redis.NewClient(opt), name: name}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) PushIndexJob(ctx context.Context, courseID string) error {
	data, err := json.Marshal(IndexJob{CourseID: courseID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.name, data).Err()
}

// PopIndexJob blocks up to timeout. It returns redis.Nil when nothing arrived.
func (q *Queue) PopIndexJob(ctx context.Context, timeout time.Duration) (IndexJob, error) {
	var job IndexJob
	res, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err != nil {
		return job, err
	}
	if len(res) < 2 {
		return job, redis.Nil
	}
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return job, err
	}
	return job, nil
}

func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// IsEmpty reports whether err is the empty-pop result.
func IsEmpty(err error) bool {
	return errors.Is(err, redis.Nil)
}
