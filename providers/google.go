package providers

import (
	"encoding/json"
	"net/http"

	"github.com/BaSui01/tripflow/llm"
)

// GoogleAdapter Google Gemini API 协议适配器。
// Gemini 暴露 OpenAI 兼容端点，线格式与 OpenAI 相同，仅默认基址不同。
type GoogleAdapter struct {
	cfg Config
}

// NewGoogleAdapter 创建 Google 协议适配器。
func NewGoogleAdapter(cfg Config) *GoogleAdapter {
	cfg.applyDefaults()
	if cfg.APIBase == "" {
		cfg.APIBase = "https://generativelanguage.googleapis.com/v1beta/openai"
	}
	return &GoogleAdapter{cfg: cfg}
}

func (a *GoogleAdapter) Name() string { return "google" }

func (a *GoogleAdapter) BuildPayload(messages []llm.Message, opts llm.ChatOptions, stream bool) ([]byte, error) {
	temperature, maxTokens := resolveSampling(a.cfg, opts)
	return json.Marshal(openAIRequest{
		Model:       a.cfg.Model,
		Messages:    toOpenAIMessages(messages),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        a.cfg.TopP,
		Stream:      stream,
	})
}

func (a *GoogleAdapter) BuildHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+a.cfg.APIKey)
}

func (a *GoogleAdapter) ChatEndpoint() string {
	return chatCompletionsEndpoint(a.cfg.APIBase)
}

func (a *GoogleAdapter) ParseStreamLine(line string) (string, bool) {
	return parseOpenAIStreamLine(line)
}

func (a *GoogleAdapter) ParseResponse(data []byte) (*llm.Completion, error) {
	return parseOpenAIResponse(data, a.Name())
}
