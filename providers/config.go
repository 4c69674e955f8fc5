// Package providers 实现封闭的协议适配器集合：openai、anthropic、google、
// ollama 与通用 OpenAI 兼容协议，以及按配置选择适配器的工厂。
package providers

import "time"

// Config 单个模型的归一化连接参数，所有协议适配器共享同一配置形态。
type Config struct {
	Provider         string        // 协议类型，见 SupportedProtocols
	Model            string        // 模型标识
	APIKey           string        // 认证密钥（ollama/部分兼容端点可为空）
	APIBase          string        // API 基址，空则用协议默认值
	APIVersion       string        // anthropic 专用版本头
	Temperature      float32       // 默认采样温度
	MaxTokens        int           // 默认最大生成 token 数
	TopP             float32       // 核采样
	FrequencyPenalty float32       // openai 专用
	PresencePenalty  float32       // openai 专用
	Timeout          time.Duration // 单次请求超时
	MaxRetries       int           // chat 总尝试次数
}

func (c *Config) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.TopP == 0 {
		c.TopP = 1.0
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.APIVersion == "" {
		c.APIVersion = "2023-06-01"
	}
}
