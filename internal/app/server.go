package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coursegen/internal/auth"
	"coursegen/internal/chunk"
	"coursegen/internal/course"
	"coursegen/internal/llm"
	"coursegen/internal/logger"
	"coursegen/internal/metrics"
	"coursegen/internal/orchestrator"
	"coursegen/internal/retrieval"
	"coursegen/internal/store"
)

const maxUploadBytes = 16 << 20

// Generator produces course content. GenerateCourse and ModifyContent also
// return the name of the provider that answered.
type Generator interface {
	GenerateCourse(ctx context.Context, req course.GenerationRequest) (*course.Course, string, error)
	GenerateLessonContent(ctx context.Context, title, summary string, contextChunks []string) string
	ModifyContent(ctx context.Context, req course.MutationRequest) (course.Fragment, string, error)
	Current() string
	Providers(ctx context.Context) []orchestrator.Status
}

type CourseRepo interface {
	CreateCourse(ctx context.Context, src store.Source, chunks []string) (string, error)
	SaveDocument(ctx context.Context, id string, doc *course.Course, provider string) error
	GetCourse(ctx context.Context, id string) (store.CourseRecord, error)
	GetChunks(ctx context.Context, id string) ([]store.Chunk, error)
	DeleteCourse(ctx context.Context, id string) error
	ListChunks(ctx context.Context, limit int) ([]store.Chunk, error)
}

type Searcher interface {
	Search(ctx context.Context, courseID, query string, n int) ([]retrieval.Result, error)
	LessonContext(ctx context.Context, courseID, title, summary string, n int) ([]string, error)
}

type JobQueue interface {
	PushIndexJob(ctx context.Context, courseID string) error
}

type CourseIndex interface {
	DeleteCourse(ctx context.Context, courseID string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP API. Jobs, Index, Auth and Ready
// entries may be nil; a nil Auth serves every route unauthenticated.
type Deps struct {
	Generator Generator
	Courses   CourseRepo
	Search    Searcher
	Jobs      JobQueue
	Index     CourseIndex
	Ready     map[string]Pinger
	Metrics   *metrics.Metrics
	Auth      *auth.Verifier
	Log       *logger.Logger

	ChunkSize     int
	ChunkOverlap  int
	LessonResults int
}

type Server struct {
	d Deps
}

func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.ChunkSize <= 0 {
		d.ChunkSize = chunk.DefaultSize
	}
	if d.ChunkOverlap < 0 || d.ChunkOverlap >= d.ChunkSize {
		d.ChunkOverlap = 0
	}
	if d.LessonResults <= 0 {
		d.LessonResults = 10
	}
	return &Server{d: d}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "POST /upload", auth.ScopeWrite, s.handleUpload)
	s.handle(mux, "POST /lesson-content", auth.ScopeWrite, s.handleLessonContent)
	s.handle(mux, "POST /modify", auth.ScopeWrite, s.handleModify)
	s.handle(mux, "POST /search", auth.ScopeRead, s.handleSearch)
	s.handle(mux, "GET /course/{id}", auth.ScopeRead, s.handleGetCourse)
	s.handle(mux, "DELETE /course/{id}", auth.ScopeWrite, s.handleDeleteCourse)
	s.handle(mux, "GET /all-content", auth.ScopeRead, s.handleAllContent)
	s.handle(mux, "GET /providers", auth.ScopeRead, s.handleProviders)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.d.Metrics != nil {
		mux.Handle("GET /metrics", s.d.Metrics.Handler())
	}
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern, scope string, h http.HandlerFunc) {
	route := pattern[strings.Index(pattern, " ")+1:]
	guarded := s.d.Auth.Require(scope, h)
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		guarded.ServeHTTP(rec, r)
		if s.d.Metrics != nil {
			s.d.Metrics.ObserveRequest(route, rec.status)
		}
		s.d.Log.Debug("request", "method", r.Method, "route", route, "status", rec.status, "elapsed", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type uploadRequest struct {
	Text   string       `json:"text"`
	Prompt string       `json:"prompt"`
	Source store.Source `json:"source"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeBody(w, r, maxUploadBytes, &req) {
		return
	}
	chunks := chunk.Split(req.Text, s.d.ChunkSize, s.d.ChunkOverlap)
	if len(chunks) == 0 {
		writeError(w, http.StatusBadRequest, "text is empty")
		return
	}
	if req.Source.Type == "" {
		req.Source.Type = "text"
	}
	ctx := r.Context()
	id, err := s.d.Courses.CreateCourse(ctx, req.Source, chunks)
	if err != nil {
		s.d.Log.Error("store course failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not store content")
		return
	}
	if s.d.Jobs != nil {
		if err := s.d.Jobs.PushIndexJob(ctx, id); err != nil {
			s.d.Log.Warn("enqueue index job failed", "course_id", id, "error", err)
		}
	}

	doc, provider, err := s.d.Generator.GenerateCourse(ctx, course.NewGenerationRequest(chunks, req.Prompt))
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	if err := s.d.Courses.SaveDocument(ctx, id, doc, provider); err != nil {
		s.d.Log.Error("save course document failed", "course_id", id, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"course_id": id,
		"course":    doc,
		"provider":  provider,
		"chunks":    len(chunks),
	})
}

type lessonRequest struct {
	Title    string `json:"lesson_title"`
	Summary  string `json:"lesson_summary"`
	CourseID string `json:"course_id"`
}

func (s *Server) handleLessonContent(w http.ResponseWriter, r *http.Request) {
	var req lessonRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "lesson_title is required")
		return
	}
	ctx := r.Context()
	var contextChunks []string
	if s.d.Search != nil {
		found, err := s.d.Search.LessonContext(ctx, req.CourseID, req.Title, req.Summary, s.d.LessonResults)
		if err != nil {
			s.d.Log.Warn("lesson context lookup failed", "course_id", req.CourseID, "error", err)
		}
		contextChunks = found
	}
	content := s.d.Generator.GenerateLessonContent(ctx, req.Title, req.Summary, contextChunks)
	writeJSON(w, http.StatusOK, map[string]any{
		"lesson_title":    req.Title,
		"content":         content,
		"context_sources": len(contextChunks),
	})
}

type modifyRequest struct {
	ContentType string          `json:"content_type"`
	Original    json.RawMessage `json:"original_content"`
	Prompt      string          `json:"prompt"`
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req modifyRequest
	if !decodeBody(w, r, 4<<20, &req) {
		return
	}
	ct, err := course.ParseContentType(req.ContentType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if len(req.Original) == 0 {
		writeError(w, http.StatusBadRequest, "original_content is required")
		return
	}
	frag, provider, err := s.d.Generator.ModifyContent(r.Context(), course.MutationRequest{
		ContentType: ct,
		Original:    req.Original,
		Instruction: req.Prompt,
	})
	if err != nil {
		s.writeGenerationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content_type": ct,
		"content":      frag,
		"provider":     provider,
	})
}

type searchRequest struct {
	Query    string `json:"query"`
	CourseID string `json:"course_id"`
	N        int    `json:"n_results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, 1<<20, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.N <= 0 {
		req.N = 5
	}
	results, err := s.d.Search.Search(r.Context(), req.CourseID, req.Query, req.N)
	if err != nil {
		s.d.Log.Error("search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()
	rec, err := s.d.Courses.GetCourse(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	chunks, err := s.d.Courses.GetChunks(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if chunks == nil {
		chunks = []store.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"course_id":  rec.ID,
		"source":     rec.Source,
		"course":     rec.Document,
		"provider":   rec.Provider,
		"created_at": rec.CreatedAt,
		"chunks":     chunks,
	})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ctx := r.Context()
	if err := s.d.Courses.DeleteCourse(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if s.d.Index != nil {
		if err := s.d.Index.DeleteCourse(ctx, id); err != nil {
			s.d.Log.Warn("delete course vectors failed", "course_id", id, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleAllContent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	chunks, err := s.d.Courses.ListChunks(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if chunks == nil {
		chunks = []store.Chunk{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks, "total": len(chunks)})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"current":   s.d.Generator.Current(),
		"providers": s.d.Generator.Providers(r.Context()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	for name, p := range s.d.Ready {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// writeGenerationError maps err to a status. Only client errors echo err to
// the caller; backend failures carry upstream bodies and stay in the log.
func (s *Server) writeGenerationError(w http.ResponseWriter, err error) {
	status, msg := http.StatusInternalServerError, "generation failed"
	switch {
	case errors.Is(err, llm.ErrUnsupportedContentType), errors.Is(err, orchestrator.ErrInvalidRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, orchestrator.ErrNoProvidersAvailable):
		status, msg = http.StatusServiceUnavailable, "no providers available"
	case errors.Is(err, orchestrator.ErrAllProvidersFailed):
		status, msg = http.StatusBadGateway, "all providers failed"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "generation timed out"
	}
	s.d.Log.Error("generation failed", "status", status, "error", err)
	writeError(w, status, msg)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "course not found")
		return
	}
	s.d.Log.Error("store request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "storage error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
