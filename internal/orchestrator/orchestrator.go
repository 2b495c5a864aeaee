// Package orchestrator drives an ordered list of providers: the first
// available provider that succeeds answers the request, failures fall through
// to the next entry.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"coursegen/internal/course"
	"coursegen/internal/llm"
	"coursegen/internal/logger"
	"coursegen/internal/metrics"
)

const defaultProbeTimeout = 5 * time.Second

type Option func(*Orchestrator)

func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.rec = r
		}
	}
}

// WithProbeTimeout bounds every availability check.
func WithProbeTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.probeTimeout = d
		}
	}
}

type Orchestrator struct {
	providers    []llm.Provider
	log          *logger.Logger
	rec          metrics.Recorder
	probeTimeout time.Duration

	current atomic.Pointer[string]
}

type Status struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Current   bool   `json:"current"`
}

// New keeps providers in the given order. It fails when the list is empty,
// holds a nil entry or a duplicate name, or when no provider is available.
func New(ctx context.Context, providers []llm.Provider, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		log:          logger.Nop(),
		rec:          metrics.Nop{},
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	seen := make(map[string]struct{}, len(providers))
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider %d is nil", i)
		}
		if _, dup := seen[p.Name()]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.Name())
		}
		seen[p.Name()] = struct{}{}
	}
	o.providers = append([]llm.Provider(nil), providers...)

	available := 0
	for _, st := range o.Providers(ctx) {
		o.log.Info("provider probed", "provider", st.Name, "available", st.Available)
		if st.Available {
			available++
		}
	}
	if available == 0 {
		return nil, ErrNoProvidersAvailable
	}
	return o, nil
}

// Current is the provider that answered the most recent successful request.
// Under concurrent use it may belong to another caller's request; use the
// provider name returned with each result to attribute output.
func (o *Orchestrator) Current() string {
	if name := o.current.Load(); name != nil {
		return *name
	}
	return ""
}

// Providers probes every provider concurrently and reports them in order.
func (o *Orchestrator) Providers(ctx context.Context) []Status {
	out := make([]Status, len(o.providers))
	current := o.Current()
	var g errgroup.Group
	for i, p := range o.providers {
		g.Go(func() error {
			out[i] = Status{Name: p.Name(), Available: o.available(ctx, p), Current: p.Name() == current}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// GenerateCourse returns the course and the name of the provider that built
// it.
func (o *Orchestrator) GenerateCourse(ctx context.Context, req course.GenerationRequest) (*course.Course, string, error) {
	return run(ctx, o, llm.OpGenerateCourse, func(ctx context.Context, p llm.Provider) (*course.Course, error) {
		return p.GenerateCourse(ctx, req.Chunks, req.Instruction)
	})
}

// GenerateLessonContent never fails: exhaustion yields LessonUnavailableText.
func (o *Orchestrator) GenerateLessonContent(ctx context.Context, title, summary string, contextChunks []string) string {
	text, _, err := run(ctx, o, llm.OpGenerateLesson, func(ctx context.Context, p llm.Provider) (string, error) {
		return p.GenerateLessonContent(ctx, title, summary, contextChunks)
	})
	if err != nil {
		o.log.Error("lesson content unavailable", "lesson", title, "error", err)
		return LessonUnavailableText
	}
	return text
}

// ModifyContent resolves the content type and checks the original against
// its schema before any provider is called. It returns the rewritten
// fragment and the name of the provider that produced it.
func (o *Orchestrator) ModifyContent(ctx context.Context, req course.MutationRequest) (course.Fragment, string, error) {
	if _, err := llm.Dispatch(req.ContentType); err != nil {
		return nil, "", err
	}
	if !json.Valid(req.Original) {
		return nil, "", fmt.Errorf("%w: original %s content is not valid JSON", ErrInvalidRequest, req.ContentType)
	}
	if err := llm.CheckShape(req.ContentType, req.Original); err != nil {
		return nil, "", fmt.Errorf("%w: original does not match the %s schema: %v", ErrInvalidRequest, req.ContentType, err)
	}
	return run(ctx, o, llm.OpModifyContent, func(ctx context.Context, p llm.Provider) (course.Fragment, error) {
		return p.ModifyContent(ctx, req.ContentType, req.Original, req.Instruction)
	})
}

// run returns the first successful result and the name of the provider that
// produced it.
func run[T any](ctx context.Context, o *Orchestrator, op llm.Op, call func(context.Context, llm.Provider) (T, error)) (T, string, error) {
	var zero T
	attempts := make([]Attempt, 0, len(o.providers))
	for i, p := range o.providers {
		if err := ctx.Err(); err != nil {
			return zero, "", fmt.Errorf("%s: %w", op, err)
		}
		name := p.Name()
		if !o.available(ctx, p) {
			o.rec.ObserveAttempt(name, string(op), metrics.OutcomeUnavailable, 0)
			o.log.Debug("provider unavailable", "provider", name, "op", op)
			attempts = append(attempts, Attempt{Provider: name, Err: &llm.UnavailableError{Provider: name}})
			continue
		}

		start := time.Now()
		out, err := call(ctx, p)
		elapsed := time.Since(start)
		if err == nil {
			o.rec.ObserveAttempt(name, string(op), metrics.OutcomeSuccess, elapsed)
			o.current.Store(&name)
			return out, name, nil
		}
		if errors.Is(err, llm.ErrUnsupportedContentType) {
			return zero, "", err
		}

		outcome := metrics.OutcomeError
		if errors.Is(err, llm.ErrMalformedOutput) {
			outcome = metrics.OutcomeMalformed
		}
		o.rec.ObserveAttempt(name, string(op), outcome, elapsed)
		o.log.Warn("provider attempt failed", "provider", name, "op", op, "error", err, "elapsed", elapsed)
		attempts = append(attempts, Attempt{Provider: name, Err: err})
		if ctx.Err() != nil {
			return zero, "", fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if i < len(o.providers)-1 {
			o.rec.ObserveFallback(string(op))
		}
	}
	return zero, "", &AllProvidersFailedError{Op: op, Attempts: attempts}
}

func (o *Orchestrator) available(ctx context.Context, p llm.Provider) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("availability probe panicked", "provider", p.Name(), "panic", r)
			ok = false
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()
	return p.IsAvailable(ctx)
}
