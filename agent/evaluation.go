package agent

import (
	"sync"

	"github.com/BaSui01/tripflow/internal/metrics"
)

// EvaluationEngine 把已完成的行动折算为评估结果，并维护累计计数。
// 注入 Collector 时同步上报 Prometheus 指标。
type EvaluationEngine struct {
	mu         sync.Mutex
	total      int
	successful int
	failed     int

	collector *metrics.Collector // 可为 nil
}

// NewEvaluationEngine 创建评估引擎。collector 可为 nil。
func NewEvaluationEngine(collector *metrics.Collector) *EvaluationEngine {
	return &EvaluationEngine{collector: collector}
}

// Evaluate 评估一次已到终态的行动并更新累计计数。
func (e *EvaluationEngine) Evaluate(action *Action) *Evaluation {
	evaluation := &Evaluation{
		Success:   action.Status == ActionSuccess,
		Duration:  action.Duration,
		HasResult: action.Result != nil,
	}

	e.mu.Lock()
	e.total++
	if evaluation.Success {
		e.successful++
	} else {
		e.failed++
	}
	e.mu.Unlock()

	if e.collector != nil {
		e.collector.RecordToolExecution(action.ToolName, evaluation.Success, action.Duration)
	}

	return evaluation
}

// Counters 返回累计的 总数/成功/失败 计数。
func (e *EvaluationEngine) Counters() (total, successful, failed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total, e.successful, e.failed
}
