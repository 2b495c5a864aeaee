// Package embed turns chunk text into vectors for the semantic index.
package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
)

var ErrDisabled = errors.New("embedding provider disabled")

type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	Name() string
}

type Config struct {
	Provider  string
	Model     string
	Dim       int
	OllamaURL string
	OpenAIKey string
	OpenAIURL string
}

// New selects the provider named in cfg. An empty name disables embeddings.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "disabled", "none":
		return Disabled{}, nil
	case "noop":
		return NewNoop(cfg.Dim), nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, cfg.Dim), nil
	case "openai":
		o := NewOpenAI(cfg.OpenAIKey, cfg.Model, cfg.Dim)
		if cfg.OpenAIURL != "" {
			o.BaseURL = strings.TrimRight(cfg.OpenAIURL, "/")
		}
		return o, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Enabled reports whether p produces real vectors.
func Enabled(p Provider) bool {
	if p == nil {
		return false
	}
	_, off := p.(Disabled)
	return !off
}

// Noop derives a stable unit vector from the text hash. Useful in dev to
// exercise the index without a model.
type Noop struct {
	dim int
}

func NewNoop(dim int) *Noop {
	if dim <= 0 {
		dim = 768
	}
	return &Noop{dim: dim}
}

func (n *Noop) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, hashVector(text, n.dim))
	}
	return out, nil
}

func (n *Noop) Dim() int     { return n.dim }
func (n *Noop) Name() string { return "noop" }

func hashVector(text string, dim int) []float32 {
	h := sha256.Sum256([]byte(text))
	rnd := rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(h[:8]))))
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = float32(rnd.Float64()*2 - 1)
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := 1 / float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

type Disabled struct{}

func (Disabled) Embed(context.Context, []string) ([][]float32, error) { return nil, ErrDisabled }
func (Disabled) Dim() int                                             { return 0 }
func (Disabled) Name() string                                         { return "disabled" }

// checkCount guards against services that drop inputs.
func checkCount(name string, want int, got [][]float32) error {
	if len(got) != want {
		return fmt.Errorf("%s returned %d embeddings for %d inputs", name, len(got), want)
	}
	return nil
}
