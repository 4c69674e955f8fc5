// Package config 统一配置加载：YAML 文件 + ${VAR} 环境变量占位符替换 +
// 环境变量覆盖，以及模型表与内置旅游知识库。
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config/tripflow.yaml").
//	    WithEnvPrefix("TRIPFLOW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/tripflow/providers"
)

// Config 完整配置结构。
type Config struct {
	// Agent 推理循环配置
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Memory 记忆容量与持久化配置
	Memory MemoryConfig `yaml:"memory" env:"MEMORY"`

	// Session 会话存储配置
	Session SessionConfig `yaml:"session" env:"SESSION"`

	// Redis 缓存配置（session.backend=redis 时使用）
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// DefaultModel 默认模型 id
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`

	// Models 模型表，key 为模型 id
	Models map[string]ModelConfig `yaml:"models" env:"-"`
}

// AgentConfig 推理循环配置。
type AgentConfig struct {
	// 名称
	Name string `yaml:"name" env:"NAME"`
	// 最大推理步数
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// 短期记忆条数
	ShortTermSize int `yaml:"short_term_size" env:"SHORT_TERM_SIZE"`
}

// MemoryConfig 记忆配置。
type MemoryConfig struct {
	// 工作记忆最大消息数
	MaxWorking int `yaml:"max_working" env:"MAX_WORKING"`
	// 长期归档最大会话数
	MaxLongTerm int `yaml:"max_long_term" env:"MAX_LONG_TERM"`
	// 持久化文件路径，空则不持久化
	PersistPath string `yaml:"persist_path" env:"PERSIST_PATH"`
}

// SessionConfig 会话存储配置。
type SessionConfig struct {
	// 后端类型: memory, redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// 会话空闲过期时间
	TTL time.Duration `yaml:"ttl" env:"TTL"`
}

// RedisConfig Redis 配置。
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
}

// LogConfig 日志配置。
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// ModelConfig 模型表中单个模型的连接参数。
type ModelConfig struct {
	// 展示名称，空则用模型 id
	Name string `yaml:"name"`
	// 协议类型: openai, anthropic, google, ollama, openai-compatible
	Provider string `yaml:"provider"`
	// 上游模型标识
	Model string `yaml:"model"`
	// 认证密钥
	APIKey string `yaml:"api_key"`
	// API 基址，空则用协议默认值
	APIBase string `yaml:"api_base"`
	// anthropic 版本头
	APIVersion string `yaml:"api_version"`
	// 采样温度
	Temperature float32 `yaml:"temperature"`
	// 最大生成 token 数
	MaxTokens int `yaml:"max_tokens"`
	// 核采样
	TopP float32 `yaml:"top_p"`
	// 频率惩罚
	FrequencyPenalty float32 `yaml:"frequency_penalty"`
	// 存在惩罚
	PresencePenalty float32 `yaml:"presence_penalty"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout"`
	// chat 总尝试次数
	MaxRetries int `yaml:"max_retries"`
}

// ProviderConfig 转换为协议适配器配置。
func (m ModelConfig) ProviderConfig() providers.Config {
	return providers.Config{
		Provider:         m.Provider,
		Model:            m.Model,
		APIKey:           m.APIKey,
		APIBase:          m.APIBase,
		APIVersion:       m.APIVersion,
		Temperature:      m.Temperature,
		MaxTokens:        m.MaxTokens,
		TopP:             m.TopP,
		FrequencyPenalty: m.FrequencyPenalty,
		PresencePenalty:  m.PresencePenalty,
		Timeout:          m.Timeout,
		MaxRetries:       m.MaxRetries,
	}
}

// DefaultConfig 返回默认配置（不含模型表，模型必须来自配置文件）。
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Name:          "travel-assistant",
			MaxSteps:      10,
			ShortTermSize: 20,
		},
		Memory: MemoryConfig{
			MaxWorking:  10,
			MaxLongTerm: 50,
		},
		Session: SessionConfig{
			Backend: "memory",
			TTL:     30 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		DefaultModel: "gpt-4o-mini",
	}
}

// Loader 配置加载器（Builder 模式）。
type Loader struct {
	configPath string
	envPrefix  string
}

// NewLoader 创建配置加载器。
func NewLoader() *Loader {
	return &Loader{envPrefix: "TRIPFLOW"}
}

// WithConfigPath 设置配置文件路径。
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀。
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load 加载配置。优先级: 默认值 → YAML 文件 → 环境变量。
// 指定了配置文件但文件不存在时直接失败；模型表为空或协议不受支持
// 同样是启动期错误。
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, err
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("加载环境变量失败: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("配置文件不存在: %s（请先复制 config/tripflow.yaml.example 并填入 API Key）", l.configPath)
		}
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 先替换 ${VAR} 占位符再解析；未设置的变量保留原样
	text := envVarPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		name := m[2 : len(m)-1]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return m
	})

	if err := yaml.Unmarshal([]byte(text), cfg); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("模型表为空，至少需要配置一个模型")
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("默认模型不存在: %s", c.DefaultModel)
	}
	for id, m := range c.Models {
		if !providers.IsSupportedProtocol(m.Provider) {
			return fmt.Errorf("模型 %s 使用了不支持的协议: %s", id, m.Provider)
		}
	}
	return nil
}

// ModelByID 按 id 查模型配置，id 为空时返回默认模型。
func (c *Config) ModelByID(id string) (ModelConfig, error) {
	if id == "" {
		id = c.DefaultModel
	}
	m, ok := c.Models[id]
	if !ok {
		return ModelConfig{}, fmt.Errorf("模型不存在: %s", id)
	}
	return m, nil
}

// ModelInfo 模型列表项。
type ModelInfo struct {
	ModelID  string `json:"model_id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// AvailableModels 返回模型表的展示列表，按 id 排序。
func (c *Config) AvailableModels() []ModelInfo {
	ids := make([]string, 0, len(c.Models))
	for id := range c.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		m := c.Models[id]
		name := m.Name
		if name == "" {
			name = id
		}
		model := m.Model
		if model == "" {
			model = id
		}
		provider := m.Provider
		if provider == "" {
			provider = "openai"
		}
		out = append(out, ModelInfo{ModelID: id, Name: name, Provider: provider, Model: model})
	}
	return out
}

// loadFromEnv 从环境变量覆盖配置，按 env tag 递归。
func (l *Loader) loadFromEnv(cfg *Config) error {
	return setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}
		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("设置 %s 失败: %w", envKey, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
