// Package agent 实现 ReAct 执行核心：有限步数的
// 观察→思考→(停止?)→执行→评估→记录 循环，以及支撑它的
// 工具注册表、思考引擎、评估引擎与短期记忆。
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ToolInfo 工具静态描述，注册后不可变。
type ToolInfo struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Parameters     map[string]any `json:"parameters,omitempty"` // JSON-Schema 风格的参数描述
	RequiredParams []string       `json:"required_params,omitempty"`
	Timeout        time.Duration  `json:"timeout,omitempty"` // 单次执行预算，0 用注册表默认值
	Category       string         `json:"category,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
}

// Executor 工具执行函数。调用前 params 已通过必填参数校验。
// 返回映射时约定至少包含 success 字段（见 travel 包的工具实现）；
// 返回非映射值时注册表会包装为 {"result": value}。
type Executor func(ctx context.Context, params map[string]any) (any, error)

// ActionStatus 行动状态，只允许向前流转：
// Pending → Running → Success|Failed，终态后不再变更。
type ActionStatus string

const (
	ActionPending ActionStatus = "pending"
	ActionRunning ActionStatus = "running"
	ActionSuccess ActionStatus = "success"
	ActionFailed  ActionStatus = "failed"
)

// Action 一次工具调用尝试。每轮循环新建，不复用。
type Action struct {
	ID         string         `json:"id"`
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Status     ActionStatus   `json:"status"`
	Result     map[string]any `json:"result,omitempty"` // 仅 Success 时存在
	Error      string         `json:"error,omitempty"`  // 仅 Failed 时存在
	Duration   time.Duration  `json:"duration,omitempty"`

	startedAt time.Time
}

// NewAction 创建处于 Pending 状态的行动。
func NewAction(toolName string, params map[string]any) *Action {
	return &Action{
		ID:         uuid.NewString(),
		ToolName:   toolName,
		Parameters: params,
		Status:     ActionPending,
	}
}

// MarkRunning 进入执行状态并记录起始时间。已离开 Pending 时不做任何事。
func (a *Action) MarkRunning() {
	if a.Status != ActionPending {
		return
	}
	a.Status = ActionRunning
	a.startedAt = time.Now()
}

// MarkSuccess 标记成功并记录耗时。仅允许从 Running 进入。
func (a *Action) MarkSuccess(result map[string]any) {
	if a.Status != ActionRunning {
		return
	}
	a.Status = ActionSuccess
	a.Result = result
	a.Duration = time.Since(a.startedAt)
}

// MarkFailed 标记失败并记录耗时。仅允许从 Running 进入。
func (a *Action) MarkFailed(errMsg string) {
	if a.Status != ActionRunning {
		return
	}
	a.Status = ActionFailed
	a.Error = errMsg
	a.Duration = time.Since(a.startedAt)
}

// Terminal 是否已到终态。
func (a *Action) Terminal() bool {
	return a.Status == ActionSuccess || a.Status == ActionFailed
}

// ThoughtType 思考类型
type ThoughtType string

const (
	ThoughtAnalysis   ThoughtType = "analysis"
	ThoughtPlanning   ThoughtType = "planning"
	ThoughtDecision   ThoughtType = "decision"
	ThoughtReflection ThoughtType = "reflection"
	ThoughtInference  ThoughtType = "inference"
)

// PlannedStep 计划中的一步。
type PlannedStep struct {
	Step       int            `json:"step"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Plan 前向执行计划，按 current_step 索引取步骤。
type Plan struct {
	Steps     []PlannedStep `json:"steps"`
	Reasoning string        `json:"reasoning,omitempty"`
}

// StepAt 按下标取计划步骤，越界返回 false。
func (p *Plan) StepAt(index int) (PlannedStep, bool) {
	if p == nil || index < 0 || index >= len(p.Steps) {
		return PlannedStep{}, false
	}
	return p.Steps[index], true
}

// Thought 一次推理产物。Plan 非空时是后续行动的唯一来源。
type Thought struct {
	ID             string      `json:"id"`
	Type           ThoughtType `json:"type"`
	Content        string      `json:"content"`
	Confidence     float64     `json:"confidence"` // [0,1]
	ReasoningChain []string    `json:"reasoning_chain,omitempty"`
	Plan           *Plan       `json:"plan,omitempty"`
}

// NewThought 创建思考，置信度默认 0.8。
func NewThought(typ ThoughtType, content string) *Thought {
	return &Thought{
		ID:         uuid.NewString(),
		Type:       typ,
		Content:    content,
		Confidence: 0.8,
	}
}

// AddReasoning 追加推理链条目（只追加，不回改）。
func (t *Thought) AddReasoning(step string) {
	t.ReasoningChain = append(t.ReasoningChain, step)
}

// Observation 单轮观察快照，只在创建它的迭代内使用。
type Observation struct {
	ID      string         `json:"id"`
	Source  string         `json:"source"`
	Content map[string]any `json:"content,omitempty"`
	Type    string         `json:"observation_type"`
}

// Evaluation 对一次已完成行动的评估。
type Evaluation struct {
	Success   bool          `json:"success"`
	Duration  time.Duration `json:"duration"`
	HasResult bool          `json:"has_result"`
}

// StepRecord history 中一条完整的步骤记录，记录后不再修改。
type StepRecord struct {
	Step       int         `json:"step"`
	Thought    *Thought    `json:"thought,omitempty"`
	Action     *Action     `json:"action,omitempty"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Result 一次 run 的最终结果。
type Result struct {
	Success         bool          `json:"success"`
	Task            string        `json:"task"`
	StepsCompleted  int           `json:"steps_completed"`
	SuccessfulSteps int           `json:"successful_steps"`
	TotalDuration   time.Duration `json:"total_duration"`
	History         []StepRecord  `json:"history,omitempty"`
	Error           string        `json:"error,omitempty"`
}
