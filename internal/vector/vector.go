// Package vector stores chunk embeddings in Qdrant.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, courseID string, limit int) ([]SearchHit, error)
	DeleteCourse(ctx context.Context, courseID string) error
	Name() string
}

// ChunkPayload is stored with every point.
type ChunkPayload struct {
	CourseID    string `json:"course_id"`
	ChunkNumber int    `json:"chunk_number"`
	SourceType  string `json:"source_type"`
	SourceName  string `json:"source_name"`
	Text        string `json:"text"`
}

type Point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload ChunkPayload `json:"payload"`
}

type SearchHit struct {
	ID      string       `json:"id"`
	Score   float64      `json:"score"`
	Payload ChunkPayload `json:"payload"`
}

var pointNamespace = uuid.MustParse("6f1c2b8e-4d0a-4f5e-9a57-2c7d3e1b9f40")

// PointID is stable per course chunk so re-indexing overwrites points.
func PointID(courseID string, chunkNumber int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%d", courseID, chunkNumber))).String()
}

type Qdrant struct {
	BaseURL    string
	Collection string
	Client     *http.Client
}

func NewQdrant(baseURL, collection string) *Qdrant {
	if collection == "" {
		collection = "course_chunks"
	}
	return &Qdrant{BaseURL: strings.TrimRight(baseURL, "/"), Collection: collection, Client: &http.Client{Timeout: 15 * time.Second}}
}

func (q *Qdrant) Name() string { return "qdrant" }

func (q *Qdrant) EnsureCollection(ctx context.Context, dim int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	status, raw, err := q.do(ctx, http.MethodPut, "/collections/"+q.Collection, body)
	if err != nil {
		return err
	}
	// 409 means the collection already exists.
	if status == http.StatusConflict || (status == http.StatusBadRequest && strings.Contains(string(raw), "already exists")) {
		return nil
	}
	return statusErr("create collection", status, raw)
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	status, raw, err := q.do(ctx, http.MethodPut, "/collections/"+q.Collection+"/points?wait=true", map[string]any{"points": points})
	if err != nil {
		return err
	}
	return statusErr("upsert", status, raw)
}

func courseFilter(courseID string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{"key": "course_id", "match": map[string]any{"value": courseID}},
		},
	}
}

// Search returns the nearest chunks; an empty courseID searches all courses.
func (q *Qdrant) Search(ctx context.Context, vector []float32, courseID string, limit int) ([]SearchHit, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if courseID != "" {
		body["filter"] = courseFilter(courseID)
	}
	status, raw, err := q.do(ctx, http.MethodPost, "/collections/"+q.Collection+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if err := statusErr("search", status, raw); err != nil {
		return nil, err
	}
	var decoded struct {
		Result []struct {
			ID      any          `json:"id"`
			Score   float64      `json:"score"`
			Payload ChunkPayload `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	out := make([]SearchHit, 0, len(decoded.Result))
	for _, item := range decoded.Result {
		out = append(out, SearchHit{ID: fmt.Sprintf("%v", item.ID), Score: item.Score, Payload: item.Payload})
	}
	return out, nil
}

func (q *Qdrant) DeleteCourse(ctx context.Context, courseID string) error {
	status, raw, err := q.do(ctx, http.MethodPost, "/collections/"+q.Collection+"/points/delete?wait=true",
		map[string]any{"filter": courseFilter(courseID)})
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	return statusErr("delete", status, raw)
}

// Ping checks that the Qdrant server answers.
func (q *Qdrant) Ping(ctx context.Context) error {
	status, raw, err := q.do(ctx, http.MethodGet, "/collections", nil)
	if err != nil {
		return err
	}
	return statusErr("ping", status, raw)
}

func (q *Qdrant) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	if q.BaseURL == "" {
		return 0, nil, errors.New("qdrant url not configured")
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := q.Client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, raw, nil
}

func statusErr(op string, status int, raw []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return fmt.Errorf("qdrant %s failed: http %d: %s", op, status, msg)
}
