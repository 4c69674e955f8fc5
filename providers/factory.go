package providers

import (
	"fmt"
	"strings"

	"github.com/BaSui01/tripflow/llm"
)

// 协议类型别名，统一映射到规范名
var protocolAliases = map[string]string{
	"compatible": "openai-compatible",
	"local":      "openai-compatible",
}

// SupportedProtocols 返回支持的协议类型列表。
func SupportedProtocols() []string {
	return []string{"openai", "anthropic", "google", "ollama", "openai-compatible"}
}

// IsSupportedProtocol 判断协议名（含别名）是否受支持。
func IsSupportedProtocol(name string) bool {
	protocol := strings.ToLower(strings.TrimSpace(name))
	if protocol == "" {
		return true
	}
	if canonical, ok := protocolAliases[protocol]; ok {
		protocol = canonical
	}
	for _, p := range SupportedProtocols() {
		if p == protocol {
			return true
		}
	}
	return false
}

// NewAdapter 按配置选择协议适配器。协议集合是封闭的；
// 未知协议类型是配置错误，启动期失败。
func NewAdapter(cfg Config) (llm.ProtocolAdapter, error) {
	protocol := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if protocol == "" {
		protocol = "openai"
	}
	if canonical, ok := protocolAliases[protocol]; ok {
		protocol = canonical
	}

	switch protocol {
	case "openai":
		return NewOpenAIAdapter(cfg), nil
	case "anthropic":
		return NewAnthropicAdapter(cfg), nil
	case "google":
		return NewGoogleAdapter(cfg), nil
	case "ollama":
		// ollama 本地端点不需要 API Key
		if cfg.APIBase == "" {
			cfg.APIBase = "http://localhost:11434/v1"
		}
		cfg.APIKey = ""
		return NewCompatibleAdapter(cfg)
	case "openai-compatible":
		return NewCompatibleAdapter(cfg)
	default:
		return nil, fmt.Errorf("不支持的协议类型: %s（支持的类型: %s）",
			protocol, strings.Join(SupportedProtocols(), ", "))
	}
}
