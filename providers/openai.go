package providers

import (
	"encoding/json"
	"net/http"

	"github.com/BaSui01/tripflow/llm"
)

// OpenAIAdapter OpenAI 官方 API 协议适配器。
type OpenAIAdapter struct {
	cfg Config
}

// NewOpenAIAdapter 创建 OpenAI 协议适配器。
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	cfg.applyDefaults()
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{cfg: cfg}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

func (a *OpenAIAdapter) BuildPayload(messages []llm.Message, opts llm.ChatOptions, stream bool) ([]byte, error) {
	temperature, maxTokens := resolveSampling(a.cfg, opts)
	return json.Marshal(openAIRequest{
		Model:            a.cfg.Model,
		Messages:         toOpenAIMessages(messages),
		Temperature:      temperature,
		MaxTokens:        maxTokens,
		TopP:             a.cfg.TopP,
		FrequencyPenalty: a.cfg.FrequencyPenalty,
		PresencePenalty:  a.cfg.PresencePenalty,
		Stream:           stream,
	})
}

func (a *OpenAIAdapter) BuildHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+a.cfg.APIKey)
}

func (a *OpenAIAdapter) ChatEndpoint() string {
	return chatCompletionsEndpoint(a.cfg.APIBase)
}

func (a *OpenAIAdapter) ParseStreamLine(line string) (string, bool) {
	return parseOpenAIStreamLine(line)
}

func (a *OpenAIAdapter) ParseResponse(data []byte) (*llm.Completion, error) {
	return parseOpenAIResponse(data, a.Name())
}
