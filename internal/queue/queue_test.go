package queue

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	url := os.Getenv("CG_TEST_REDIS_URL")
	if url == "" {
		url = "redis://127.0.0.1:63790/0"
	}
	q, err := New(url, "coursegen:test:"+strings.ReplaceAll(uuid.NewString(), "-", ""))
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Ping(ctx); err != nil {
		_ = q.Close()
		t.Skipf("redis unavailable for queue tests (%s): %v", url, err)
	}
	t.Cleanup(func() {
		_ = q.client.Del(context.Background(), q.name).Err()
		_ = q.Close()
	})
	return q
}

func TestPushPopIndexJob(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	if err := q.PushIndexJob(ctx, "c1"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.PushIndexJob(ctx, "c2"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if depth, err := q.Depth(ctx); err != nil || depth != 2 {
		t.Fatalf("expected depth 2, got %d (%v)", depth, err)
	}

	job, err := q.PopIndexJob(ctx, time.Second)
	if err != nil {
		t.Fatalf("pop: %v", err)
	}
	if job.CourseID != "c1" {
		t.Fatalf("expected FIFO order, got %s", job.CourseID)
	}
}

func TestPopTimesOutEmpty(t *testing.T) {
	q := testQueue(t)
	_, err := q.PopIndexJob(context.Background(), 100*time.Millisecond)
	if !IsEmpty(err) {
		t.Fatalf("expected empty result, got %v", err)
	}
}

func TestNewValidatesURL(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := New("not a url", ""); err == nil {
		t.Fatalf("expected parse error")
	}
}
