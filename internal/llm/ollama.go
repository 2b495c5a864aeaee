package llm

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
)

const (
	defaultOllamaTimeout = 120 * time.Second
	defaultProbeTimeout  = 5 * time.Second
)

type Ollama struct {
	BaseURL      string
	Model        string
	Client       *http.Client
	ProbeTimeout time.Duration
}

func NewOllama(baseURL string, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3"
	}
	return &Ollama{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Model:        model,
		Client:       &http.Client{Timeout: defaultOllamaTimeout},
		ProbeTimeout: defaultProbeTimeout,
	}
}

func (o *Ollama) Name() string { return "ollama" }

// Available reports whether the local server answers its model listing
// within the probe timeout.
func (o *Ollama) Available(ctx context.Context) bool {
	timeout := o.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	return resp.StatusCode == http.StatusOK
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format,omitempty"`
	Options ollamaOptions `json:"options"`
}

func (o *Ollama) Complete(ctx context.Context, p Prompt) (string, error) {
	if o.BaseURL == "" {
		return "", errors.New("ollama url not configured")
	}
	payload := ollamaRequest{
		Model:  o.Model,
		System: p.System,
		Prompt: p.User,
		Options: ollamaOptions{
			Temperature: defaultTemperature,
			NumPredict:  p.MaxTokens,
		},
	}
	if p.JSON {
		payload.Format = "json"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}
	var decoded struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return decoded.Response, nil
}
