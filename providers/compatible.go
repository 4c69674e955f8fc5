package providers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BaSui01/tripflow/llm"
)

// ErrMissingAPIBase 兼容协议必须显式给出 api_base。
var ErrMissingAPIBase = errors.New("OpenAI兼容协议必须提供 api_base 参数")

// CompatibleAdapter 通用 OpenAI 兼容协议适配器，覆盖本地部署
// （ollama、vLLM 等）与各类兼容网关。API Key 为空时省略认证头。
type CompatibleAdapter struct {
	cfg Config
}

// NewCompatibleAdapter 创建兼容协议适配器。APIBase 为空时返回错误。
func NewCompatibleAdapter(cfg Config) (*CompatibleAdapter, error) {
	if cfg.APIBase == "" {
		return nil, ErrMissingAPIBase
	}
	cfg.applyDefaults()
	return &CompatibleAdapter{cfg: cfg}, nil
}

func (a *CompatibleAdapter) Name() string { return "openai-compatible" }

func (a *CompatibleAdapter) BuildPayload(messages []llm.Message, opts llm.ChatOptions, stream bool) ([]byte, error) {
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

func (a *CompatibleAdapter) BuildHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
}

func (a *CompatibleAdapter) ChatEndpoint() string {
	return chatCompletionsEndpoint(a.cfg.APIBase)
}

func (a *CompatibleAdapter) ParseStreamLine(line string) (string, bool) {
	return parseOpenAIStreamLine(line)
}

func (a *CompatibleAdapter) ParseResponse(data []byte) (*llm.Completion, error) {
	return parseOpenAIResponse(data, a.Name())
}
