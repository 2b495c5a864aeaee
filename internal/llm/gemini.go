package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	initErr error
}

// NewGemini never fails; a missing key or a client build error leaves the
// adapter unavailable and InitErr reports why.
func NewGemini(ctx context.Context, cfg GeminiConfig) *Gemini {
	g := &Gemini{model: cfg.Model, timeout: cfg.Timeout}
	if g.model == "" {
		g.model = "gemini-2.0-flash"
	}
	if g.timeout <= 0 {
		g.timeout = defaultChatTimeout
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		g.initErr = errNoAPIKey
		return g
	}
	clientCfg := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		g.initErr = fmt.Errorf("create genai client: %w", err)
		return g
	}
	g.client = client
	return g
}

func (g *Gemini) Name() string   { return "gemini" }
func (g *Gemini) Model() string  { return g.model }
func (g *Gemini) InitErr() error { return g.initErr }

func (g *Gemini) Available(_ context.Context) bool {
	return g.client != nil
}

func (g *Gemini) Complete(ctx context.Context, p Prompt) (string, error) {
	if g.client == nil {
		if g.initErr != nil {
			return "", g.initErr
		}
		return "", errors.New("gemini client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](defaultTemperature),
		MaxOutputTokens: int32(p.MaxTokens),
	}
	if p.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}
	if p.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(p.User), cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in response")
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", errors.New("response blocked by safety filter")
	}
	return resp.Text(), nil
}
