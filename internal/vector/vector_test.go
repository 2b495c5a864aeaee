package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPointIDIsStable(t *testing.T) {
	a := PointID("course-1", 3)
	if a != PointID("course-1", 3) {
		t.Fatalf("point id must be deterministic")
	}
	if a == PointID("course-1", 4) || a == PointID("course-2", 3) {
		t.Fatalf("point ids must differ per chunk")
	}
}

func TestQdrantSearchFiltersByCourse(t *testing.T) {
	var seen map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/course_chunks/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&seen)
		_, _ = w.Write([]byte(`{"result":[{"id":"p1","score":0.9,"payload":{"course_id":"c1","chunk_number":2,"text":"hello"}}]}`))
	}))
	defer srv.Close()

	hits, err := NewQdrant(srv.URL, "").Search(context.Background(), []float32{0.1, 0.2}, "c1", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 1 || hits[0].Payload.ChunkNumber != 2 || hits[0].Payload.Text != "hello" {
		t.Fatalf("unexpected hits %+v", hits)
	}
	if _, ok := seen["filter"]; !ok {
		t.Fatalf("expected course filter in request")
	}
	if seen["limit"].(float64) != 5 {
		t.Fatalf("expected limit 5")
	}
}

func TestQdrantEnsureCollectionToleratesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"status":{"error":"Collection already exists"}}`))
	}))
	defer srv.Close()

	if err := NewQdrant(srv.URL, "c").EnsureCollection(context.Background(), 8); err != nil {
		t.Fatalf("expected existing collection to be accepted: %v", err)
	}
}

func TestQdrantErrorsCarryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	err := NewQdrant(srv.URL, "c").Upsert(context.Background(), []Point{{ID: PointID("c", 0), Vector: []float32{1}}})
	if err == nil || !strings.Contains(err.Error(), "http 500") {
		t.Fatalf("expected http 500 error, got %v", err)
	}
	if err := NewQdrant("", "c").Ping(context.Background()); err == nil {
		t.Fatalf("expected error without url")
	}
}
