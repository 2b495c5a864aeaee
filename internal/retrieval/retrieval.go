// Package retrieval finds the stored chunks relevant to a query, preferring
// the vector index and falling back to postgres full-text search.
package retrieval

import (
	"context"
	"strings"
	"unicode/utf8"

	"coursegen/internal/embed"
	"coursegen/internal/logger"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

const (
	SourceVector = "vector"
	SourceFTS    = "fts"
)

type ChunkSearcher interface {
	SearchChunks(ctx context.Context, courseID string, query string, limit int) ([]store.SearchResult, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, vec []float32, courseID string, limit int) ([]vector.SearchHit, error)
}

type Result struct {
	CourseID    string  `json:"course_id"`
	ChunkNumber int     `json:"chunk_number"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	Source      string  `json:"source"`
}

type Service struct {
	chunks   ChunkSearcher
	embedder embed.Provider
	vectors  VectorSearcher
	minChars int
	log      *logger.Logger
}

// New wires the searchers. vectors may be nil and embedder may be disabled;
// both are required for semantic search.
func New(chunks ChunkSearcher, embedder embed.Provider, vectors VectorSearcher, minChars int, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if minChars < 0 {
		minChars = 0
	}
	return &Service{chunks: chunks, embedder: embedder, vectors: vectors, minChars: minChars, log: log}
}

func (s *Service) semantic() bool {
	return s.vectors != nil && embed.Enabled(s.embedder)
}

func (s *Service) Search(ctx context.Context, courseID, query string, n int) ([]Result, error) {
	if n <= 0 {
		n = 5
	}
	if s.semantic() {
		results, err := s.searchVector(ctx, courseID, query, n)
		switch {
		case err != nil:
			s.log.Warn("vector search failed, using full-text search", "course_id", courseID, "error", err)
		case len(results) == 0:
			// content stored before the indexer ran has no vectors yet
			s.log.Debug("no vector hits, using full-text search", "course_id", courseID)
		default:
			return results, nil
		}
	}
	if s.chunks == nil {
		return nil, nil
	}
	rows, err := s.chunks.SearchChunks(ctx, courseID, query, n)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, Result{CourseID: r.CourseID, ChunkNumber: r.ChunkNumber, Score: r.Score, Text: r.Text, Source: SourceFTS})
	}
	return out, nil
}

func (s *Service) searchVector(ctx context.Context, courseID, query string, n int) ([]Result, error) {
	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	hits, err := s.vectors.Search(ctx, vecs[0], courseID, n)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{
			CourseID:    h.Payload.CourseID,
			ChunkNumber: h.Payload.ChunkNumber,
			Score:       h.Score,
			Text:        h.Payload.Text,
			Source:      SourceVector,
		})
	}
	return out, nil
}

// LessonContext returns up to n chunk texts for a lesson, dropping chunks
// shorter than the configured minimum.
func (s *Service) LessonContext(ctx context.Context, courseID, title, summary string, n int) ([]string, error) {
	query := strings.TrimSpace(title + " " + summary)
	if query == "" {
		return nil, nil
	}
	results, err := s.Search(ctx, courseID, query, n)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		text := strings.TrimSpace(r.Text)
		if utf8.RuneCountInString(text) < s.minChars {
			continue
		}
		out = append(out, text)
	}
	return out, nil
}
