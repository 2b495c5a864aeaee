package app

import (
	"context"
	"fmt"

	"coursegen/internal/config"
	"coursegen/internal/llm"
	"coursegen/internal/logger"
)

// BuildProviders constructs the providers named in providers.order, in that
// order. An enabled placeholder that is not listed is appended last.
func BuildProviders(ctx context.Context, cfg config.Config, log *logger.Logger) ([]llm.Provider, error) {
	if log == nil {
		log = logger.Nop()
	}
	pc := cfg.Providers
	out := make([]llm.Provider, 0, len(pc.Order)+1)
	listed := make(map[string]bool, len(pc.Order))
	for _, name := range pc.Order {
		listed[name] = true
		switch name {
		case "groq":
			out = append(out, llm.NewAdapter(llm.NewGroq(chatConfig(pc.Groq))))
		case "deepseek":
			out = append(out, llm.NewAdapter(llm.NewDeepSeek(chatConfig(pc.DeepSeek))))
		case "openai":
			out = append(out, llm.NewAdapter(llm.NewOpenAI(chatConfig(pc.OpenAI))))
		case "gemini":
			g := llm.NewGemini(ctx, llm.GeminiConfig{
				APIKey:  pc.Gemini.APIKey,
				Model:   pc.Gemini.Model,
				BaseURL: pc.Gemini.BaseURL,
				Timeout: pc.Gemini.Timeout,
			})
			if err := g.InitErr(); err != nil {
				log.Warn("gemini unavailable", "model", g.Model(), "error", err)
			}
			out = append(out, llm.NewAdapter(g))
		case "ollama":
			o := llm.NewOllama(pc.Ollama.BaseURL, pc.Ollama.Model)
			if pc.Ollama.Timeout > 0 {
				o.Client.Timeout = pc.Ollama.Timeout
			}
			if pc.ProbeTimeout > 0 {
				o.ProbeTimeout = pc.ProbeTimeout
			}
			out = append(out, llm.NewAdapter(o))
		case "placeholder":
			out = append(out, llm.NewPlaceholder(pc.Placeholder.Enabled))
		default:
			return nil, fmt.Errorf("unknown provider %q", name)
		}
	}
	if pc.Placeholder.Enabled && !listed["placeholder"] {
		out = append(out, llm.NewPlaceholder(true))
	}
	return out, nil
}

func chatConfig(pc config.ProviderConfig) llm.ChatConfig {
	return llm.ChatConfig{
		APIKey:  pc.APIKey,
		Model:   pc.Model,
		BaseURL: pc.BaseURL,
		Timeout: pc.Timeout,
	}
}
