package llm

import (
	"fmt"

	"github.com/querydojo/querydojo/internal/config"
)

// NewProvider constructs the appropriate LLM provider based on config.
// Called once at server startup.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "groq":
		return newChatClient("groq", cfg.Groq.BaseURL, cfg.Groq.APIKey, cfg.Groq.Model, cfg.InferenceTimeout), nil
	case "openai":
		return newChatClient("openai", cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.InferenceTimeout), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q: must be one of groq, openai", cfg.Provider)
	}
}
