// Package metrics 聚合 agent 运行、工具执行与 LLM 调用的 Prometheus 指标。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector 进程级指标收集器。组件按需注入，nil 安全由调用方保证
// （核心组件在未注入时跳过上报）。
type Collector struct {
	agentRuns      *prometheus.CounterVec
	agentSteps     prometheus.Counter
	toolExecutions *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	llmRequests    *prometheus.CounterVec
	llmTokens      *prometheus.CounterVec
}

// NewCollector 创建并注册收集器。registerer 为 nil 时用默认注册表。
func NewCollector(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Collector{
		agentRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripflow",
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Completed agent runs by outcome.",
		}, []string{"outcome"}),
		agentSteps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tripflow",
			Subsystem: "agent",
			Name:      "steps_total",
			Help:      "ReAct loop iterations executed.",
		}),
		toolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripflow",
			Subsystem: "tool",
			Name:      "executions_total",
			Help:      "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tripflow",
			Subsystem: "tool",
			Name:      "duration_seconds",
			Help:      "Tool execution wall time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripflow",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "LLM chat requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripflow",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "LLM tokens consumed by provider and kind.",
		}, []string{"provider", "kind"}),
	}
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordRun 记录一次 agent 运行结束。
func (c *Collector) RecordRun(success bool) {
	c.agentRuns.WithLabelValues(outcome(success)).Inc()
}

// RecordStep 记录一次循环迭代。
func (c *Collector) RecordStep() {
	c.agentSteps.Inc()
}

// RecordToolExecution 记录一次工具执行。
func (c *Collector) RecordToolExecution(tool string, success bool, duration time.Duration) {
	c.toolExecutions.WithLabelValues(tool, outcome(success)).Inc()
	c.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordLLMRequest 记录一次 LLM 请求及其 token 消耗。
func (c *Collector) RecordLLMRequest(provider string, success bool, promptTokens, completionTokens int) {
	c.llmRequests.WithLabelValues(provider, outcome(success)).Inc()
	if promptTokens > 0 {
		c.llmTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.llmTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}
