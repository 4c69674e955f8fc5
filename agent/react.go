package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/llm"
)

// StateData 单次运行的可变状态。
type StateData struct {
	Task        string         `json:"task"`
	Goal        string         `json:"goal,omitempty"`
	History     []StepRecord   `json:"history"`
	CurrentStep int            `json:"current_step"`
	MaxSteps    int            `json:"max_steps"`
	Context     map[string]any `json:"context,omitempty"`
}

// 这些工具的成功结果即是最终答案，推理阶段看到它们就结束循环。
var terminalTools = map[string]bool{
	"llm_chat":                     true,
	"generate_city_recommendation": true,
	"generate_route_plan":          true,
}

// Options ReActAgent 构造参数。
type Options struct {
	Name          string
	MaxSteps      int
	LLMClient     *llm.Client        // nil 时思考引擎走纯规则
	Collector     *metrics.Collector // nil 时不上报指标
	ShortTermSize int
}

// ReActAgent 驱动 观察→思考→(停止?)→执行→评估→记录 的有限循环。
// 单个实例一次只跑一个 run，跨会话并发应各自持有实例。
type ReActAgent struct {
	name      string
	maxSteps  int
	registry  *Registry
	thoughts  *ThoughtEngine
	evaluator *EvaluationEngine
	scratch   *ShortTermMemory
	collector *metrics.Collector
	logger    *zap.Logger

	state          State
	data           StateData
	actionHistory  []*Action
	thoughtHistory []*Thought

	thoughtCallbacks []func(*Thought)
	actionCallbacks  []func(*Action)
}

// NewReActAgent 创建 agent。
func NewReActAgent(opts Options, logger *zap.Logger) *ReActAgent {
	name := opts.Name
	if name == "" {
		name = "ReActAgent"
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 10
	}

	return &ReActAgent{
		name:      name,
		maxSteps:  maxSteps,
		registry:  NewRegistry(logger),
		thoughts:  NewThoughtEngine(opts.LLMClient, logger),
		evaluator: NewEvaluationEngine(opts.Collector),
		scratch:   NewShortTermMemory(opts.ShortTermSize),
		collector: opts.Collector,
		logger:    logger,
		state:     StateIdle,
	}
}

// Name agent 名称。
func (a *ReActAgent) Name() string { return a.name }

// State 当前生命周期状态。
func (a *ReActAgent) State() State { return a.state }

// Registry 工具注册表。
func (a *ReActAgent) Registry() *Registry { return a.registry }

// RegisterTool 注册工具，语义同 Registry.Register。
func (a *ReActAgent) RegisterTool(info ToolInfo, exec Executor) bool {
	return a.registry.Register(info, exec)
}

// AddThoughtCallback 注册思考回调。回调内的 panic 被捕获记录，不会中断循环。
func (a *ReActAgent) AddThoughtCallback(cb func(*Thought)) {
	a.thoughtCallbacks = append(a.thoughtCallbacks, cb)
}

// AddActionCallback 注册行动回调。
func (a *ReActAgent) AddActionCallback(cb func(*Action)) {
	a.actionCallbacks = append(a.actionCallbacks, cb)
}

func (a *ReActAgent) notifyThought(thought *Thought) {
	for _, cb := range a.thoughtCallbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("thought callback panic", zap.Any("panic", r))
				}
			}()
			cb(thought)
		}()
	}
}

func (a *ReActAgent) notifyAction(action *Action) {
	for _, cb := range a.actionCallbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					a.logger.Error("action callback panic", zap.Any("panic", r))
				}
			}()
			cb(action)
		}()
	}
}

func (a *ReActAgent) transition(to State) {
	if !CanTransition(a.state, to) {
		// 状态表遗漏属于编程错误，让顶层 recover 兜底
		panic(ErrInvalidTransition{From: a.state, To: to})
	}
	a.state = to
}

// Run 执行一个任务直至停止条件或步数耗尽。工具失败与 LLM 失败被折叠进
// history 继续循环；只有真正意料之外的故障以 Error 结果返回。
func (a *ReActAgent) Run(ctx context.Context, task string, taskContext map[string]any) (result *Result) {
	if taskContext == nil {
		taskContext = make(map[string]any)
	}
	a.data = StateData{
		Task:     task,
		MaxSteps: a.maxSteps,
		Context:  taskContext,
	}
	a.actionHistory = a.actionHistory[:0]
	a.thoughtHistory = a.thoughtHistory[:0]
	a.scratch.Clear()
	a.state = StateIdle

	a.logger.Info("task started",
		zap.String("agent", a.name),
		zap.String("task", task),
		zap.Int("max_steps", a.maxSteps),
	)

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("task aborted",
				zap.String("task", task),
				zap.Any("panic", r),
			)
			a.state = StateError
			if a.collector != nil {
				a.collector.RecordRun(false)
			}
			result = &Result{
				Success:        false,
				Error:          fmt.Sprint(r),
				Task:           task,
				StepsCompleted: a.data.CurrentStep,
			}
		}
	}()

	for a.data.CurrentStep < a.maxSteps {
		observation := a.observe()
		thought := a.think(ctx, observation)

		if a.shouldStop(thought) {
			break
		}

		action := a.act(ctx, thought)
		evaluation := a.evaluate(action)

		a.updateState(action)
		a.record(thought, action, evaluation)
	}

	if a.state == StateIdle {
		// 循环体一次都没执行（maxSteps=0 的退化情况）
		a.state = StateCompleted
	} else {
		a.transition(StateCompleted)
	}
	if a.collector != nil {
		a.collector.RecordRun(true)
	}
	return a.buildResult()
}

func (a *ReActAgent) lastAction() *Action {
	if len(a.actionHistory) == 0 {
		return nil
	}
	return a.actionHistory[len(a.actionHistory)-1]
}

func (a *ReActAgent) observe() *Observation {
	a.transition(StateObserving)

	var lastResult any
	if last := a.lastAction(); last != nil {
		lastResult = last.Result
		a.scratch.Add(last.Result, 0.5)
	}

	return &Observation{
		ID:     fmt.Sprintf("obs_%d", a.data.CurrentStep),
		Source: "environment",
		Type:   "environment",
		Content: map[string]any{
			"last_action": lastResult,
			"step":        a.data.CurrentStep,
		},
	}
}

func (a *ReActAgent) think(ctx context.Context, _ *Observation) *Thought {
	a.transition(StateReasoning)

	var thought *Thought
	if a.data.CurrentStep == 0 {
		thought = a.thoughts.AnalyzeTask(ctx, a.data.Task, a.data.Context)

		// 不论分析置信度高低，始终生成执行计划
		planThought := a.thoughts.PlanActions(ctx, a.data.Task, a.registry)
		thought.Plan = planThought.Plan
		thought.ReasoningChain = append(thought.ReasoningChain, planThought.ReasoningChain...)
	} else {
		last := a.lastAction()
		switch {
		case last != nil && last.Status == ActionFailed:
			thought = a.thoughts.Reflect(last.Result)
			thought.Content = fmt.Sprintf("【执行失败】步骤 %d\n\n【失败原因】%s\n【当前状态】需要调整策略或检查参数\n【后续行动】尝试其他工具或重新执行",
				a.data.CurrentStep, last.Error)
		case last != nil && last.Status == ActionSuccess:
			thought = NewThought(ThoughtInference,
				fmt.Sprintf("【执行成功】步骤 %d 完成\n\n【工具】%s\n【结果】%s",
					a.data.CurrentStep, last.ToolName, summarizeResult(last.Result)))
			thought.ReasoningChain = []string{
				fmt.Sprintf("步骤 %d 执行状态：成功", a.data.CurrentStep),
				fmt.Sprintf("工具 %s 返回结果", last.ToolName),
				"评估是否需要继续执行或生成最终回答",
			}
			thought.Confidence = 0.95
		default:
			thought = NewThought(ThoughtInference,
				fmt.Sprintf("【继续执行】步骤 %d\n\n根据执行计划，继续执行下一步操作", a.data.CurrentStep+1))
			thought.ReasoningChain = []string{fmt.Sprintf("执行步骤 %d", a.data.CurrentStep+1)}
		}
	}

	a.thoughtHistory = append(a.thoughtHistory, thought)
	a.notifyThought(thought)
	return thought
}

// summarizeResult 按结果形态生成一句执行摘要，供推理思考引用。
// 不符合任何已知形态的结果退化为通用成功描述。
func summarizeResult(result map[string]any) string {
	if result == nil {
		return "工具执行成功"
	}
	success, _ := result["success"].(bool)

	if success {
		if rawCities, ok := result["cities"]; ok {
			names := cityNames(rawCities, 5)
			return fmt.Sprintf("获取到 %d 个推荐城市：%s", cityCount(rawCities), strings.Join(names, ", "))
		}
		switch plan := result["route_plan"].(type) {
		case []any:
			return fmt.Sprintf("路线规划完成，共 %d 天行程", len(plan))
		case *llm.RoutePlanPayload:
			if plan != nil {
				return fmt.Sprintf("路线规划完成，共 %d 天行程", len(plan.RoutePlan))
			}
		}
	}
	if response, ok := result["response"].(string); ok {
		return "LLM生成回答：" + truncateRunes(response, 80) + "..."
	}
	if _, ok := result["info"]; ok {
		return "城市详细信息获取成功"
	}
	return fmt.Sprintf("工具执行成功，结果类型：%T", result)
}

func cityCount(raw any) int {
	switch v := raw.(type) {
	case []any:
		return len(v)
	case []map[string]any:
		return len(v)
	}
	return 0
}

func cityNames(raw any, limit int) []string {
	var items []map[string]any
	switch v := raw.(type) {
	case []map[string]any:
		items = v
	case []any:
		for _, it := range v {
			if m, ok := it.(map[string]any); ok {
				items = append(items, m)
			} else {
				items = append(items, map[string]any{"city": fmt.Sprint(it)})
			}
		}
	}

	names := make([]string, 0, limit)
	for _, item := range items {
		if len(names) >= limit {
			break
		}
		if name, ok := item["city"].(string); ok {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprint(item))
		}
	}
	return names
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// shouldStop 三个独立触发器按固定顺序检查：
// (i) 推理型思考 + 末次行动是终结工具且成功；
// (ii) 置信度 > 0.9 且携带计划且末次行动成功；
// (iii) 步数预算只剩最后一步。
func (a *ReActAgent) shouldStop(thought *Thought) bool {
	last := a.lastAction()

	if thought.Type == ThoughtInference {
		if last != nil && terminalTools[last.ToolName] && last.Status == ActionSuccess {
			return true
		}
	}

	if thought.Confidence > 0.9 && thought.Plan != nil {
		if last != nil && last.Status == ActionSuccess {
			return true
		}
	}

	if a.data.CurrentStep >= a.maxSteps-1 {
		return true
	}

	return false
}

// 计划里常见的别名参数统一归一到工具期望的 cities
var paramAliases = map[string]string{
	"city":        "cities",
	"destination": "cities",
	"location":    "cities",
}

func remapParameters(params map[string]any) map[string]any {
	mapped := make(map[string]any, len(params))
	for key, value := range params {
		if alias, ok := paramAliases[key]; ok {
			key = alias
		}
		if key == "cities" {
			if s, isString := value.(string); isString {
				value = []string{s}
			}
		}
		mapped[key] = value
	}
	return mapped
}

func (a *ReActAgent) extractAction(thought *Thought) *Action {
	step, ok := thought.Plan.StepAt(a.data.CurrentStep)
	if !ok || step.Tool == "" {
		return nil
	}
	return NewAction(step.Tool, remapParameters(step.Parameters))
}

func (a *ReActAgent) act(ctx context.Context, thought *Thought) *Action {
	a.transition(StateActing)

	action := a.extractAction(thought)
	if action == nil {
		// 计划缺失或越界：记一个立即成功的空操作
		action = NewAction("none", map[string]any{})
		action.MarkRunning()
		action.MarkSuccess(map[string]any{"message": "无操作需要执行"})
		a.actionHistory = append(a.actionHistory, action)
		return action
	}

	action.MarkRunning()
	a.actionHistory = append(a.actionHistory, action)
	a.notifyAction(action)

	result, err := a.registry.Execute(ctx, action.ToolName, action.Parameters)
	if err != nil {
		action.MarkFailed(err.Error())
		a.logger.Error("tool execution failed",
			zap.String("tool", action.ToolName),
			zap.Error(err),
		)
	} else {
		action.MarkSuccess(result)
		a.logger.Info("tool executed", zap.String("tool", action.ToolName))
	}
	return action
}

func (a *ReActAgent) evaluate(action *Action) *Evaluation {
	a.transition(StateEvaluating)
	return a.evaluator.Evaluate(action)
}

func (a *ReActAgent) updateState(action *Action) {
	a.data.CurrentStep++
	if action.Result != nil {
		a.data.Context["last_result"] = action.Result
	}
	if a.collector != nil {
		a.collector.RecordStep()
	}
}

func (a *ReActAgent) record(thought *Thought, action *Action, evaluation *Evaluation) {
	a.data.History = append(a.data.History, StepRecord{
		Step:       a.data.CurrentStep,
		Thought:    thought,
		Action:     action,
		Evaluation: evaluation,
		Timestamp:  time.Now(),
	})
}

func (a *ReActAgent) buildResult() *Result {
	var successful int
	var total time.Duration
	for _, step := range a.data.History {
		if step.Evaluation != nil && step.Evaluation.Success {
			successful++
		}
		if step.Action != nil {
			total += step.Action.Duration
		}
	}

	return &Result{
		Success:         a.state == StateCompleted,
		Task:            a.data.Task,
		StepsCompleted:  len(a.data.History),
		SuccessfulSteps: successful,
		TotalDuration:   total,
		History:         a.data.History,
	}
}

// Reset 清空运行状态，使实例可复用。
func (a *ReActAgent) Reset() {
	a.data = StateData{MaxSteps: a.maxSteps}
	a.state = StateIdle
	a.actionHistory = nil
	a.thoughtHistory = nil
	a.scratch.Clear()
}

// ThoughtHistory 本次运行产生的全部思考（按产生顺序）。
func (a *ReActAgent) ThoughtHistory() []*Thought { return a.thoughtHistory }
