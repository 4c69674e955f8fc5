package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/llm"
)

// ThoughtEngine 无状态的分析/规划器。每个操作都有 LLM 与规则两种策略：
// 提供了 LLM 客户端时优先走 LLM，任何调用失败或输出不可解析时
// 自动回退到规则策略。
type ThoughtEngine struct {
	llm    *llm.Client // nil 表示纯规则模式
	logger *zap.Logger
}

// NewThoughtEngine 创建思考引擎。client 可以为 nil。
func NewThoughtEngine(client *llm.Client, logger *zap.Logger) *ThoughtEngine {
	return &ThoughtEngine{llm: client, logger: logger}
}

// AnalyzeTask 分析任务意图并提取要素。
func (e *ThoughtEngine) AnalyzeTask(ctx context.Context, task string, taskContext map[string]any) *Thought {
	if e.llm != nil {
		if thought := e.analyzeWithLLM(ctx, task); thought != nil {
			return thought
		}
	}
	return e.analyzeWithRules(task)
}

func (e *ThoughtEngine) analyzeWithLLM(ctx context.Context, task string) *Thought {
	systemPrompt := `你是一个专业的旅游助手，负责分析用户的旅游需求。

可用工具：
- search_cities: 根据兴趣、预算搜索城市
- query_attractions: 查询城市景点
- get_city_info: 获取城市详情
- generate_route_plan: 生成详细路线规划
- llm_chat: 一般对话

请分析用户输入，判断意图，并决定使用哪些工具。`

	resp := e.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: fmt.Sprintf("用户输入：%s\n\n请分析这个请求，以JSON格式返回intent、reasoning、tools和confidence。只返回JSON格式。", task)},
	}, llm.Temp(0.3))
	if !resp.Success {
		e.logger.Warn("llm analysis failed, falling back to rules", zap.String("error", resp.Error))
		return nil
	}

	var analysis struct {
		Intent    string `json:"intent"`
		Reasoning string `json:"reasoning"`
		Tools     []struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"tools"`
		Confidence float64 `json:"confidence"`
	}
	if err := llm.ParseJSONContent(resp.Content, &analysis); err != nil {
		e.logger.Warn("llm analysis unparseable, falling back to rules", zap.Error(err))
		return nil
	}

	thought := NewThought(ThoughtAnalysis, "【任务分析】"+analysis.Reasoning)
	thought.Confidence = analysis.Confidence
	if thought.Confidence == 0 {
		thought.Confidence = 0.85
	}
	if len(analysis.Tools) > 0 {
		plan := &Plan{Reasoning: analysis.Reasoning}
		for i, tool := range analysis.Tools {
			plan.Steps = append(plan.Steps, PlannedStep{
				Step:       i + 1,
				Tool:       tool.Name,
				Parameters: tool.Parameters,
			})
		}
		thought.Plan = plan
	}
	return thought
}

func (e *ThoughtEngine) analyzeWithRules(task string) *Thought {
	entities := ExtractEntities(task)
	category := ClassifyTask(task)

	encoded, _ := json.Marshal(entities)
	content := fmt.Sprintf("【任务分析】用户输入：「%s」\n【意图识别】任务类型=%s\n【提取信息】%s",
		task, category.Label(), encoded)

	thought := NewThought(ThoughtAnalysis, content)
	thought.Confidence = 0.7
	return thought
}

// PlanActions 产出前向执行计划。
func (e *ThoughtEngine) PlanActions(ctx context.Context, task string, registry *Registry) *Thought {
	if e.llm != nil {
		if thought := e.planWithLLM(ctx, task, registry); thought != nil {
			return thought
		}
	}
	return e.planWithRules(task, registry)
}

func (e *ThoughtEngine) planWithLLM(ctx context.Context, task string, registry *Registry) *Thought {
	var descriptions []string
	for _, tool := range registry.Tools() {
		var params []string
		if props, ok := tool.Parameters["properties"].(map[string]any); ok {
			for name, schema := range props {
				typ := "string"
				if s, ok := schema.(map[string]any); ok {
					if t, ok := s["type"].(string); ok {
						typ = t
					}
				}
				params = append(params, fmt.Sprintf("%s(%s)", name, typ))
			}
		}
		descriptions = append(descriptions,
			fmt.Sprintf("- %s: %s (参数: %s)", tool.Name, tool.Description, strings.Join(params, ", ")))
	}

	systemPrompt := fmt.Sprintf(`你是 ReAct 智能体，负责规划行动步骤。

用户任务：%s

可用工具：
%s

请规划执行步骤，以JSON格式返回steps和reasoning。`, task, strings.Join(descriptions, "\n"))

	resp := e.llm.Chat(ctx, []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, llm.Temp(0.3))
	if !resp.Success {
		e.logger.Warn("llm planning failed, falling back to rules", zap.String("error", resp.Error))
		return nil
	}

	var parsed struct {
		Steps []struct {
			Step       int            `json:"step"`
			Tool       string         `json:"tool"`
			Parameters map[string]any `json:"parameters"`
		} `json:"steps"`
		Reasoning string `json:"reasoning"`
	}
	if err := llm.ParseJSONContent(resp.Content, &parsed); err != nil {
		e.logger.Warn("llm plan unparseable, falling back to rules", zap.Error(err))
		return nil
	}

	thought := NewThought(ThoughtPlanning, "【执行计划】"+parsed.Reasoning)
	thought.Confidence = 0.9
	if len(parsed.Steps) > 0 {
		plan := &Plan{Reasoning: parsed.Reasoning}
		for i, s := range parsed.Steps {
			step := s.Step
			if step == 0 {
				step = i + 1
			}
			plan.Steps = append(plan.Steps, PlannedStep{Step: step, Tool: s.Tool, Parameters: s.Parameters})
		}
		thought.Plan = plan
	}
	return thought
}

func (e *ThoughtEngine) planWithRules(task string, registry *Registry) *Thought {
	steps := DecomposeByRules(task, registry)

	var sb strings.Builder
	fmt.Fprintf(&sb, "【执行计划】根据任务分析结果，制定以下执行方案：\n\n【步骤规划】共%d个执行步骤\n\n【工具选择理由】", len(steps))
	if len(steps) > 0 {
		for _, step := range steps {
			var params []string
			for k, v := range step.Parameters {
				params = append(params, fmt.Sprintf("%s=%v", k, v))
			}
			fmt.Fprintf(&sb, "\n  选择 %s，参数：(%s)", step.Tool, strings.Join(params, ", "))
		}
	} else {
		sb.WriteString("\n  无需工具调用，直接生成回答")
	}

	thought := NewThought(ThoughtPlanning, sb.String())
	thought.Confidence = 0.9

	thought.AddReasoning(fmt.Sprintf("任务分解完成：共%d个执行步骤", len(steps)))
	if len(steps) > 0 {
		names := make([]string, 0, len(steps))
		for _, s := range steps {
			names = append(names, s.Tool)
		}
		thought.AddReasoning("工具调用序列：" + strings.Join(names, " → "))
	} else {
		thought.AddReasoning("无需工具调用")
	}
	thought.AddReasoning("准备按计划执行各步骤")

	if len(steps) > 0 {
		thought.Plan = &Plan{Steps: steps}
	}
	return thought
}

// Reflect 对一次行动结果生成反思。成功置信度 0.9，失败 0.6。
func (e *ThoughtEngine) Reflect(actionResult map[string]any) *Thought {
	success, _ := actionResult["success"].(bool)

	thought := NewThought(ThoughtReflection, "反思行动结果")
	thought.AddReasoning(fmt.Sprintf("行动成功：%t", success))
	if success {
		thought.AddReasoning("改进建议：结果符合预期")
		thought.Confidence = 0.9
	} else {
		thought.AddReasoning("改进建议：建议检查参数或尝试其他工具")
		thought.Confidence = 0.6
	}
	return thought
}
