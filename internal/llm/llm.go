package llm

import (
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/lifeline/internal/config"
)

// NewClient builds the chat service client selected by cfg.Provider.
func NewClient(cfg config.ChatServiceConfig) (Client, error) {
	switch cfg.Provider {
	case config.ProviderHTTP, "":
		return NewHTTPClient(cfg.BaseURL, cfg.Timeout), nil
	case config.ProviderOpenAI:
		oc := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		if cfg.Timeout > 0 {
			oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		}
		return NewOpenAI(openai.NewClientWithConfig(oc), cfg.Model, cfg.SystemPrompt), nil
	default:
		return nil, fmt.Errorf("unsupported chat service provider %q", cfg.Provider)
	}
}
