package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Ollama struct {
	BaseURL string
	Model   string
	DimVal  int
	Client  *http.Client
}

func NewOllama(baseURL string, model string, dim int) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dim <= 0 {
		dim = 768
	}
	return &Ollama{BaseURL: strings.TrimRight(baseURL, "/"), Model: model, DimVal: dim, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (o *Ollama) Name() string { return "ollama" }
func (o *Ollama) Dim() int     { return o.DimVal }

// Embed sends the whole batch to /api/embed in one request.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(map[string]any{"model": o.Model, "input": texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama embed http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var decoded struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if err := checkCount(o.Name(), len(texts), decoded.Embeddings); err != nil {
		return nil, err
	}
	return decoded.Embeddings, nil
}
