package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"coursegen/internal/embed"
	"coursegen/internal/queue"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memChunks map[string][]store.Chunk

func (m memChunks) GetChunks(_ context.Context, id string) ([]store.Chunk, error) {
	chunks, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return chunks, nil
}

type memPoints struct {
	mu      sync.Mutex
	batches [][]vector.Point
}

func (m *memPoints) Upsert(_ context.Context, points []vector.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, points)
	return nil
}

func (m *memPoints) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.batches {
		n += len(b)
	}
	return n
}

type chanJobs chan queue.IndexJob

func (c chanJobs) PopIndexJob(ctx context.Context, timeout time.Duration) (queue.IndexJob, error) {
	select {
	case job := <-c:
		return job, nil
	case <-ctx.Done():
		return queue.IndexJob{}, ctx.Err()
	case <-time.After(timeout):
		return queue.IndexJob{}, redis.Nil
	}
}

func sampleChunks(courseID string, n int) []store.Chunk {
	out := make([]store.Chunk, n)
	for i := range out {
		out[i] = store.Chunk{CourseID: courseID, Number: i, Text: fmt.Sprintf("chunk %d", i), Source: store.Source{Type: "pdf", Name: "a.pdf"}}
	}
	return out
}

func TestIndexCourseBatches(t *testing.T) {
	points := &memPoints{}
	w := New(nil, memChunks{"c1": sampleChunks("c1", 5)}, embed.NewNoop(4), points, nil)
	w.Batch = 2

	n, err := w.IndexCourse(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, points.batches, 3)
	first := points.batches[0][0]
	assert.Equal(t, vector.PointID("c1", 0), first.ID)
	assert.Equal(t, "a.pdf", first.Payload.SourceName)
	assert.Len(t, first.Vector, 4)
}

func TestIndexCourseErrors(t *testing.T) {
	w := New(nil, memChunks{}, embed.NewNoop(4), &memPoints{}, nil)
	_, err := w.IndexCourse(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	w = New(nil, memChunks{"c": sampleChunks("c", 1)}, embed.Disabled{}, &memPoints{}, nil)
	_, err = w.IndexCourse(context.Background(), "c")
	assert.True(t, errors.Is(err, embed.ErrDisabled))
}

func TestRunProcessesJobsUntilCancelled(t *testing.T) {
	jobs := make(chanJobs, 2)
	points := &memPoints{}
	w := New(jobs, memChunks{"a": sampleChunks("a", 2), "b": sampleChunks("b", 3)}, embed.NewNoop(4), points, nil)
	w.PollTimeout = 20 * time.Millisecond

	jobs <- queue.IndexJob{CourseID: "a"}
	jobs <- queue.IndexJob{CourseID: "b"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return points.count() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
