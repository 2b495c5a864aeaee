// Package indexer embeds stored course chunks and upserts them into the
// vector index. It runs as the daemon's worker mode.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursegen/internal/embed"
	"coursegen/internal/logger"
	"coursegen/internal/queue"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

const (
	defaultBatch       = 32
	defaultPollTimeout = 5 * time.Second
	errorBackoff       = time.Second
)

type JobSource interface {
	PopIndexJob(ctx context.Context, timeout time.Duration) (queue.IndexJob, error)
}

type ChunkLoader interface {
	GetChunks(ctx context.Context, courseID string) ([]store.Chunk, error)
}

type PointWriter interface {
	Upsert(ctx context.Context, points []vector.Point) error
}

type Worker struct {
	jobs     JobSource
	chunks   ChunkLoader
	embedder embed.Provider
	points   PointWriter
	log      *logger.Logger

	Batch       int
	PollTimeout time.Duration
}

func New(jobs JobSource, chunks ChunkLoader, embedder embed.Provider, points PointWriter, log *logger.Logger) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		jobs:        jobs,
		chunks:      chunks,
		embedder:    embedder,
		points:      points,
		log:         log,
		Batch:       defaultBatch,
		PollTimeout: defaultPollTimeout,
	}
}

// Run pops jobs until ctx is cancelled. Job failures are logged and skipped.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("indexer started", "embedder", w.embedder.Name())
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := w.jobs.PopIndexJob(ctx, w.PollTimeout)
		if err != nil {
			if queue.IsEmpty(err) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("index job pop failed", "error", err)
			if err := sleep(ctx, errorBackoff); err != nil {
				return nil
			}
			continue
		}
		start := time.Now()
		n, err := w.IndexCourse(ctx, job.CourseID)
		if err != nil {
			w.log.Error("index job failed", "course_id", job.CourseID, "error", err)
			continue
		}
		w.log.Info("indexed course", "course_id", job.CourseID, "chunks", n, "elapsed", time.Since(start))
	}
}

// IndexCourse embeds every chunk of a course and returns how many points
// were written.
func (w *Worker) IndexCourse(ctx context.Context, courseID string) (int, error) {
	if !embed.Enabled(w.embedder) {
		return 0, embed.ErrDisabled
	}
	chunks, err := w.chunks.GetChunks(ctx, courseID)
	if err != nil {
		return 0, fmt.Errorf("load chunks: %w", err)
	}
	batch := w.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	written := 0
	for start := 0; start < len(chunks); start += batch {
		end := min(start+batch, len(chunks))
		part := chunks[start:end]
		texts := make([]string, len(part))
		for i, c := range part {
			texts[i] = c.Text
		}
		vecs, err := w.embedder.Embed(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(part) {
			return written, errors.New("embedding count mismatch")
		}
		points := make([]vector.Point, len(part))
		for i, c := range part {
			points[i] = vector.Point{
				ID:     vector.PointID(c.CourseID, c.Number),
				Vector: vecs[i],
				Payload: vector.ChunkPayload{
					CourseID:    c.CourseID,
					ChunkNumber: c.Number,
					SourceType:  c.Source.Type,
					SourceName:  c.Source.Name,
					Text:        c.Text,
				},
			}
		}
		if err := w.points.Upsert(ctx, points); err != nil {
			return written, fmt.Errorf("upsert points: %w", err)
		}
		written += len(points)
	}
	return written, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
