// Package tripflow provides a top-level convenience entry point for creating
// the travel assistant with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/tripflow"
//
//	assistant, err := tripflow.New(tripflow.WithConfigPath("config/tripflow.yaml"))
//	assistant, err := tripflow.New(tripflow.WithConfig(cfg), tripflow.WithModel("claude"))
//
// This is a thin wrapper around [travel.NewTravelAgent]; use it when you prefer
// the shorter import path.
package tripflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/travel"
)

// Option 配置 [New] 创建的助手。
type Option func(*options)

type options struct {
	configPath string
	config     *config.Config
	modelID    string
	logger     *zap.Logger
}

// WithConfigPath 从 YAML 文件加载配置。
func WithConfigPath(path string) Option {
	return func(o *options) { o.configPath = path }
}

// WithConfig 直接使用已构建的配置，跳过文件加载。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithModel 指定模型表里的模型 ID，缺省用 default_model。
func WithModel(id string) Option {
	return func(o *options) { o.modelID = id }
}

// WithLogger 设置自定义 zap logger。
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New 创建旅游助手。必须通过 [WithConfigPath] 或 [WithConfig] 提供模型配置。
func New(opts ...Option) (*travel.TravelAgent, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.config
	if cfg == nil {
		loader := config.NewLoader()
		if o.configPath != "" {
			loader = loader.WithConfigPath(o.configPath)
		}
		loaded, err := loader.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	return travel.NewTravelAgent(travel.Options{
		Config:  cfg,
		ModelID: o.modelID,
		Logger:  o.logger,
	})
}
