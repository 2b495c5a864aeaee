package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"coursegen/internal/course"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("missing database dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Source describes where a course's text came from.
type Source struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type CourseRecord struct {
	ID        string
	Source    Source
	Document  *course.Course
	Provider  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Chunk struct {
	CourseID string `json:"course_id"`
	Number   int    `json:"chunk_number"`
	Text     string `json:"text"`
	Source   Source `json:"source"`
}

type SearchResult struct {
	CourseID    string  `json:"course_id"`
	ChunkNumber int     `json:"chunk_number"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
}

// CreateCourse stores a course row and its ordered chunks in one transaction
// and returns the new course id.
func (s *Store) CreateCourse(ctx context.Context, src Source, chunks []string) (string, error) {
	if src.Type == "" {
		return "", errors.New("missing source type")
	}
	id := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO courses (id, source_type, source_name) VALUES ($1, $2, $3)`, id, src.Type, src.Name); err != nil {
		return "", fmt.Errorf("insert course: %w", err)
	}
	for i, text := range chunks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO course_chunks (course_id, chunk_number, text) VALUES ($1, $2, $3)`, id, i, text); err != nil {
			return "", fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SaveDocument(ctx context.Context, id string, doc *course.Course, provider string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE courses SET document = $2, provider = $3, updated_at = now() WHERE id = $1`, id, data, provider)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func (s *Store) GetCourse(ctx context.Context, id string) (CourseRecord, error) {
	var rec CourseRecord
	if _, err := uuid.Parse(id); err != nil {
		return rec, ErrNotFound
	}
	var document []byte
	err := s.db.QueryRowContext(ctx, `SELECT id, source_type, source_name, document, provider, created_at, updated_at
		FROM courses WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Source.Type, &rec.Source.Name, &document, &rec.Provider, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if len(document) > 0 {
		rec.Document = &course.Course{}
		if err := json.Unmarshal(document, rec.Document); err != nil {
			return rec, fmt.Errorf("decode course %s: %w", id, err)
		}
	}
	return rec, nil
}

func (s *Store) GetChunks(ctx context.Context, id string) ([]Chunk, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ch.course_id, ch.chunk_number, ch.text, c.source_type, c.source_name
		FROM course_chunks ch
		JOIN courses c ON c.id = ch.course_id
		WHERE ch.course_id = $1
		ORDER BY ch.chunk_number`, id)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// ListChunks returns stored chunks of every course, newest course first.
func (s *Store) ListChunks(ctx context.Context, limit int) ([]Chunk, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ch.course_id, ch.chunk_number, ch.text, c.source_type, c.source_name
		FROM course_chunks ch
		JOIN courses c ON c.id = ch.course_id
		ORDER BY c.created_at DESC, ch.chunk_number
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return scanChunks(rows)
}

// SearchChunks ranks chunks by full-text match. An empty courseID searches
// every course.
func (s *Store) SearchChunks(ctx context.Context, courseID string, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if courseID != "" {
		if _, err := uuid.Parse(courseID); err != nil {
			return nil, nil
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT course_id, chunk_number,
		ts_rank_cd(to_tsvector('simple', text), plainto_tsquery('simple', $2)) AS score, text
		FROM course_chunks
		WHERE ($1 = '' OR course_id::text = $1) AND to_tsvector('simple', text) @@ plainto_tsquery('simple', $2)
		ORDER BY score DESC, chunk_number
		LIMIT $3`, courseID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.CourseID, &r.ChunkNumber, &r.Score, &r.Text); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func scanChunks(rows *sql.Rows) ([]Chunk, error) {
	defer rows.Close()
	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.CourseID, &c.Number, &c.Text, &c.Source.Type, &c.Source.Name); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
