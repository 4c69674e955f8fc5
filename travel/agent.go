package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/internal/metrics"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/memory"
	"github.com/BaSui01/tripflow/providers"
)

// Reasoning 一次处理的推理过程摘要。
type Reasoning struct {
	Text       string   `json:"text"`
	TotalSteps int      `json:"total_steps"`
	ToolsUsed  []string `json:"tools_used"`
}

// ProcessResult 对话处理结果。
type ProcessResult struct {
	Success   bool               `json:"success"`
	Answer    string             `json:"answer,omitempty"`
	Reasoning *Reasoning         `json:"reasoning,omitempty"`
	History   []agent.StepRecord `json:"history,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Options TravelAgent 构造参数。
type Options struct {
	Config    *config.Config
	ModelID   string // 空则用配置里的默认模型
	Collector *metrics.Collector
	Logger    *zap.Logger
}

// TravelAgent 旅游助手门面：把记忆、工具集和 ReAct 推理循环
// 组合成一个按轮次对话的智能体。单实例串行使用，一个会话一个实例。
type TravelAgent struct {
	cfg       *config.Config
	knowledge *config.Knowledge
	mem       *memory.Manager
	client    *llm.Client
	react     *agent.ReActAgent
	logger    *zap.Logger
}

// NewTravelAgent 组装旅游助手。模型配置出错时返回错误而不是带病启动。
func NewTravelAgent(opts Options) (*TravelAgent, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("缺少配置")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	modelCfg, err := opts.Config.ModelByID(opts.ModelID)
	if err != nil {
		return nil, err
	}
	adapter, err := providers.NewAdapter(modelCfg.ProviderConfig())
	if err != nil {
		return nil, err
	}
	client := llm.NewClient(adapter, llm.ClientConfig{
		Model:      modelCfg.Model,
		Timeout:    modelCfg.Timeout,
		MaxRetries: modelCfg.MaxRetries,
	}, logger.Named("llm"))
	if opts.Collector != nil {
		client.SetCollector(opts.Collector)
	}

	knowledge := config.NewKnowledge()
	mem := memory.NewManager(opts.Config.Memory.MaxWorking, opts.Config.Memory.MaxLongTerm, logger.Named("memory"))
	if p := opts.Config.Memory.PersistPath; p != "" && mem.LoadFromFile(p) {
		logger.Info("加载历史记忆", zap.String("path", p))
	}

	react := agent.NewReActAgent(agent.Options{
		Name:          opts.Config.Agent.Name,
		MaxSteps:      opts.Config.Agent.MaxSteps,
		LLMClient:     client,
		Collector:     opts.Collector,
		ShortTermSize: opts.Config.Agent.ShortTermSize,
	}, logger.Named("react"))

	t := &TravelAgent{
		cfg:       opts.Config,
		knowledge: knowledge,
		mem:       mem,
		client:    client,
		react:     react,
		logger:    logger,
	}

	data := NewTravelData(knowledge, logger.Named("data"))
	NewToolset(data, knowledge, client, logger.Named("tools")).Register(react)
	t.registerCallbacks()
	return t, nil
}

// 推理过程同步写入会话记忆，便于后续轮次回看。
func (t *TravelAgent) registerCallbacks() {
	t.react.AddThoughtCallback(func(thought *agent.Thought) {
		t.mem.AddMessage("assistant", "[思考] "+thought.Content)
	})
	t.react.AddActionCallback(func(action *agent.Action) {
		switch action.Status {
		case agent.ActionRunning:
			t.mem.AddMessage("assistant", "[行动] 执行工具: "+action.ToolName)
		case agent.ActionSuccess:
			t.mem.AddMessage("assistant", "[完成] "+action.ToolName)
		case agent.ActionFailed:
			t.mem.AddMessage("assistant", "[失败] "+action.ToolName+": "+action.Error)
		}
	})
}

// Memory 会话记忆管理器。
func (t *TravelAgent) Memory() *memory.Manager { return t.mem }

// Knowledge 内置知识库。
func (t *TravelAgent) Knowledge() *config.Knowledge { return t.knowledge }

// Process 处理一轮用户输入：记入记忆、跑推理循环、提取回答。
func (t *TravelAgent) Process(ctx context.Context, userInput string) *ProcessResult {
	t.logger.Info("开始处理用户输入", zap.String("input", truncate(userInput, 50)))

	t.mem.AddMessage("user", userInput)

	taskContext := map[string]any{
		"user_query":      userInput,
		"user_preference": t.mem.ContextSummary(),
	}

	result := t.react.Run(ctx, userInput, taskContext)
	t.logger.Info("推理循环结束",
		zap.Bool("success", result.Success),
		zap.Int("steps", len(result.History)))

	if !result.Success {
		errMsg := result.Error
		if errMsg == "" {
			errMsg = "处理失败"
		}
		return &ProcessResult{Success: false, Error: errMsg, History: result.History}
	}

	answer := t.extractAnswer(ctx, result.History)
	t.mem.AddMessage("assistant", answer)

	return &ProcessResult{
		Success: true,
		Answer:  answer,
		Reasoning: &Reasoning{
			Text:       buildReasoningText(result.History),
			TotalSteps: len(result.History),
			ToolsUsed:  toolsUsed(result.History),
		},
		History: result.History,
	}
}

// ClearConversation 清空并归档当前会话，重置推理状态。
func (t *TravelAgent) ClearConversation() {
	t.mem.ClearConversation(true)
	t.react.Reset()
}

// 这些工具的结果可以直接作为对用户的回答。
var answerTools = map[string]bool{
	"generate_city_recommendation": true,
	"generate_route_plan":          true,
	"llm_chat":                     true,
	"query_attractions":            true,
	"generate_route":               true,
}

// extractAnswer 从历史里倒序找第一个能充当回答的成功行动结果；
// 找不到就退回让 LLM 基于工具结果汇总。
func (t *TravelAgent) extractAnswer(ctx context.Context, history []agent.StepRecord) string {
	for i := len(history) - 1; i >= 0; i-- {
		action := history[i].Action
		if action == nil || action.Status != agent.ActionSuccess || !answerTools[action.ToolName] {
			continue
		}
		result := action.Result
		if result == nil {
			continue
		}

		if response := stringField(result, "response"); response != "" {
			return response
		}
		if content := stringField(result, "content"); content != "" {
			return content
		}

		if action.ToolName == "query_attractions" {
			if data, ok := result["data"].(map[string]any); ok && len(data) > 0 {
				return formatAttractions(data)
			}
		}
		if action.ToolName == "generate_route" {
			if plan, ok := result["route_plan"].([]any); ok && len(plan) > 0 {
				if raw, err := json.Marshal(result); err == nil {
					return string(raw)
				}
			}
		}
	}
	return t.generateAnswer(ctx, history)
}

// generateAnswer 把所有成功的工具结果交给 LLM 汇总成最终回答。
func (t *TravelAgent) generateAnswer(ctx context.Context, history []agent.StepRecord) string {
	var toolResults []map[string]any
	for _, step := range history {
		if step.Action != nil && step.Action.Status == agent.ActionSuccess && step.Action.Result != nil {
			toolResults = append(toolResults, map[string]any{
				"tool":   step.Action.ToolName,
				"result": step.Action.Result,
			})
		}
	}
	if t.client == nil {
		return "处理完成"
	}

	raw, err := json.MarshalIndent(toolResults, "", "  ")
	if err != nil {
		return "处理完成"
	}

	result := t.client.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: "你是一个专业的AI旅游助手。请基于工具调用结果，为用户提供完整、详细、专业的回答。"},
		{Role: llm.RoleUser, Content: "工具调用结果：\n" + string(raw) + "\n\n请提供完整回答。"},
	}, llm.ChatOptions{})

	if result.Success && result.Content != "" {
		return result.Content
	}
	return "处理完成"
}

// formatAttractions 把景点查询结果排版为可读文本。
func formatAttractions(data map[string]any) string {
	cities := make([]string, 0, len(data))
	for city := range data {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	var lines []string
	for _, city := range cities {
		item, _ := data[city].(map[string]any)
		header := "\n## " + city
		if region := stringField(item, "region"); region != "" {
			header += fmt.Sprintf(" (来自%s地区)", region)
		}
		lines = append(lines, header)

		attractions, _ := item["attractions"].([]any)
		if len(attractions) == 0 {
			lines = append(lines, "  暂无景点信息")
			continue
		}
		lines = append(lines, "\n### 景点推荐：")
		for i, raw := range attractions {
			if i >= 10 {
				break
			}
			attr, _ := raw.(map[string]any)
			name := stringField(attr, "name")
			if name == "" {
				name = "未知景点"
			}
			lines = append(lines, fmt.Sprintf("%d. **%s**", i+1, name))
			if ticket, ok := intField(attr, "ticket"); ok && ticket > 0 {
				lines = append(lines, fmt.Sprintf("   - 门票: ¥%d", ticket))
			}
		}
	}

	if len(lines) == 0 {
		return "未找到相关景点信息"
	}
	return strings.Join(lines, "\n")
}

// buildReasoningText 把推理历史归纳成四段式 <thinking> 文本。
func buildReasoningText(history []agent.StepRecord) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	if len(history) == 0 {
		return fmt.Sprintf("<thinking>\n[Timestamp: %s]\n\n[Intent Analysis]\nNo reasoning history available.\n\n[Context Evaluation]\nNo context available.\n\n[Response Planning]\nUnable to generate response.\n\n[Constraint Check]\nNo constraints checked.\n</thinking>", timestamp)
	}

	var intentAnalysis, contextEvaluation, responsePlanning, constraintCheck []string

	for i, step := range history {
		if step.Thought == nil {
			continue
		}
		content := step.Thought.Content
		line := fmt.Sprintf("Step %d: %s", i+1, content)

		switch step.Thought.Type {
		case agent.ThoughtAnalysis:
			if content != "" {
				intentAnalysis = append(intentAnalysis, line)
			}
		case agent.ThoughtPlanning:
			if content != "" {
				responsePlanning = append(responsePlanning, line)
			}
		case agent.ThoughtInference:
			if content != "" {
				contextEvaluation = append(contextEvaluation, line)
			}
			if step.Action != nil && step.Action.ToolName != "" && step.Action.ToolName != "none" {
				contextEvaluation = append(contextEvaluation,
					fmt.Sprintf("  - Tool: %s [%s]", step.Action.ToolName, strings.ToUpper(string(step.Action.Status))))
			}
		case agent.ThoughtReflection:
			if content != "" {
				constraintCheck = append(constraintCheck, line)
			}
		}
	}

	intentSection := "[Intent Analysis]\n"
	if len(intentAnalysis) > 0 {
		intentSection += strings.Join(intentAnalysis, "\n")
	} else {
		intentSection += fmt.Sprintf("User query analysis based on %d reasoning steps.\n", len(history))
	}

	contextSection := "[Context Evaluation]\n"
	if len(contextEvaluation) > 0 {
		contextSection += strings.Join(contextEvaluation, "\n")
	} else {
		contextSection += "No explicit context evaluation steps recorded."
	}

	responseSection := "[Response Planning]\n"
	if len(responsePlanning) > 0 {
		responseSection += strings.Join(responsePlanning, "\n")
	} else {
		responseSection += "Response generation based on tool execution results."
	}

	constraintSection := "[Constraint Check]\n"
	if len(constraintCheck) > 0 {
		constraintSection += strings.Join(constraintCheck, "\n")
	} else {
		constraintSection += "All constraints satisfied.\n"
		constraintSection += fmt.Sprintf("- Total reasoning steps: %d\n", len(history))
		constraintSection += fmt.Sprintf("- Tools executed: %d\n", len(toolsUsed(history)))
		constraintSection += "- Response format: Standard text response"
	}

	return fmt.Sprintf("<thinking>\n[Timestamp: %s]\n\n%s\n\n%s\n\n%s\n\n%s\n</thinking>",
		timestamp, intentSection, contextSection, responseSection, constraintSection)
}

func toolsUsed(history []agent.StepRecord) []string {
	var tools []string
	seen := make(map[string]bool)
	for _, step := range history {
		if step.Action == nil {
			continue
		}
		name := step.Action.ToolName
		if name == "" || name == "none" || seen[name] {
			continue
		}
		seen[name] = true
		tools = append(tools, name)
	}
	return tools
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
