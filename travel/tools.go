package travel

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/agent"
	"github.com/BaSui01/tripflow/config"
	"github.com/BaSui01/tripflow/llm"
	"github.com/BaSui01/tripflow/memory"
)

// Toolset 旅游助手的完整工具集：五个知识库工具 + 三个 LLM 工具。
type Toolset struct {
	data      *TravelData
	knowledge *config.Knowledge
	client    *llm.Client
	logger    *zap.Logger
}

// NewToolset 创建工具集。client 为 nil 时 LLM 工具返回失败结果而不是 panic。
func NewToolset(data *TravelData, knowledge *config.Knowledge, client *llm.Client, logger *zap.Logger) *Toolset {
	return &Toolset{data: data, knowledge: knowledge, client: client, logger: logger}
}

// Register 把全部工具注册到推理代理上。
func (t *Toolset) Register(a *agent.ReActAgent) {
	a.RegisterTool(agent.ToolInfo{
		Name:        "search_cities",
		Description: "根据用户兴趣、预算和季节偏好搜索匹配的城市",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"interests":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "用户兴趣标签列表"},
				"budget_min": map[string]any{"type": "integer", "description": "最低预算"},
				"budget_max": map[string]any{"type": "integer", "description": "最高预算"},
				"season":     map[string]any{"type": "string", "description": "旅行季节"},
			},
		},
		Category: "travel",
		Tags:     []string{"search", "city", "recommend"},
	}, t.searchCities)

	a.RegisterTool(agent.ToolInfo{
		Name:        "query_attractions",
		Description: "查询指定城市的景点信息",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "要查询的城市名称列表"},
			},
			"required": []any{"cities"},
		},
		RequiredParams: []string{"cities"},
		Category:       "travel",
		Tags:           []string{"query", "attraction", "scenic"},
	}, t.queryAttractions)

	a.RegisterTool(agent.ToolInfo{
		Name:        "generate_route",
		Description: "为指定城市生成详细的旅游路线规划",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "目标城市名称"},
				"days": map[string]any{"type": "integer", "description": "旅行天数，默认3天", "default": 3},
			},
			"required": []any{"city"},
		},
		RequiredParams: []string{"city"},
		Category:       "travel",
		Tags:           []string{"route", "plan", "schedule"},
	}, t.generateRoute)

	a.RegisterTool(agent.ToolInfo{
		Name:        "calculate_budget",
		Description: "计算指定城市和天数的旅游预算",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "目标城市"},
				"days": map[string]any{"type": "integer", "description": "旅行天数"},
			},
			"required": []any{"city", "days"},
		},
		RequiredParams: []string{"city", "days"},
		Category:       "travel",
		Tags:           []string{"budget", "cost", "expense"},
	}, t.calculateBudget)

	a.RegisterTool(agent.ToolInfo{
		Name:        "get_city_info",
		Description: "获取指定城市的详细信息",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "城市名称"},
			},
			"required": []any{"city"},
		},
		RequiredParams: []string{"city"},
		Category:       "travel",
		Tags:           []string{"city", "info", "detail"},
	}, t.getCityInfo)

	a.RegisterTool(agent.ToolInfo{
		Name:        "llm_chat",
		Description: "使用大语言模型进行对话回答",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":   map[string]any{"type": "string", "description": "用户问题"},
				"context": map[string]any{"type": "string", "description": "对话上下文"},
			},
			"required": []any{"query"},
		},
		RequiredParams: []string{"query"},
		Category:       "ai",
		Tags:           []string{"chat", "llm", "ai"},
	}, t.llmChat)

	a.RegisterTool(agent.ToolInfo{
		Name:        "generate_city_recommendation",
		Description: "根据用户需求生成个性化城市推荐",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"user_query":       map[string]any{"type": "string", "description": "用户原始需求"},
				"available_cities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "可选城市列表"},
			},
			"required": []any{"user_query", "available_cities"},
		},
		RequiredParams: []string{"user_query", "available_cities"},
		Category:       "ai",
		Tags:           []string{"recommend", "city", "llm"},
	}, t.generateCityRecommendation)

	a.RegisterTool(agent.ToolInfo{
		Name:        "generate_route_plan",
		Description: "根据城市景点信息生成详细路线规划",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city":        map[string]any{"type": "string", "description": "目标城市"},
				"days":        map[string]any{"type": "integer", "description": "旅行天数"},
				"preferences": map[string]any{"type": "string", "description": "用户偏好"},
			},
			"required": []any{"city", "days"},
		},
		RequiredParams: []string{"city", "days"},
		Category:       "ai",
		Tags:           []string{"route", "plan", "llm"},
	}, t.generateRoutePlan)
}

func (t *Toolset) searchCities(_ context.Context, params map[string]any) (any, error) {
	interests := stringSliceParam(params, "interests")
	season := stringParam(params, "season", "")

	var budget *memory.BudgetRange
	budgetMin, hasMin := intParam(params, "budget_min")
	budgetMax, hasMax := intParam(params, "budget_max")
	if hasMin && hasMax && budgetMin > 0 && budgetMax > 0 {
		budget = &memory.BudgetRange{Min: budgetMin, Max: budgetMax}
	}

	return t.data.SearchCities(interests, budget, season), nil
}

func (t *Toolset) queryAttractions(_ context.Context, params map[string]any) (any, error) {
	cities := stringSliceParam(params, "cities")
	return t.data.QueryAttractions(cities), nil
}

func (t *Toolset) generateRoute(_ context.Context, params map[string]any) (any, error) {
	city := stringParam(params, "city", "")
	days, ok := intParam(params, "days")
	if !ok || days <= 0 {
		days = 3
	}
	return t.data.GenerateRoute(city, days), nil
}

func (t *Toolset) calculateBudget(_ context.Context, params map[string]any) (any, error) {
	city := stringParam(params, "city", "")
	days, ok := intParam(params, "days")
	if !ok || days <= 0 {
		days = 3
	}
	return t.data.CalculateBudget(city, days, true, true), nil
}

func (t *Toolset) getCityInfo(_ context.Context, params map[string]any) (any, error) {
	return t.data.GetCityInfo(stringParam(params, "city", "")), nil
}

func (t *Toolset) llmChat(ctx context.Context, params map[string]any) (any, error) {
	if t.client == nil {
		return map[string]any{"success": false, "response": "LLM 客户端未配置"}, nil
	}

	query := stringParam(params, "query", "")
	contextText := stringParam(params, "context", "")

	var messages []llm.Message
	if contextText != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: contextText})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	result := t.client.Chat(ctx, messages, llm.ChatOptions{})
	if !result.Success {
		return map[string]any{"success": false, "response": result.Error}, nil
	}
	return map[string]any{"success": true, "response": result.Content}, nil
}

func (t *Toolset) generateCityRecommendation(ctx context.Context, params map[string]any) (any, error) {
	if t.client == nil {
		return map[string]any{"success": false, "error": "LLM 客户端未配置"}, nil
	}

	userQuery := stringParam(params, "user_query", "")
	cities := stringSliceParam(params, "available_cities")
	if len(cities) == 0 {
		cities = t.knowledge.Cities()
	}

	r := t.client.GenerateCityRecommendation(ctx, userQuery, "", cities)
	if !r.Success {
		return map[string]any{"success": false, "error": r.Error, "raw_content": r.RawContent}, nil
	}
	return map[string]any{
		"success":         true,
		"content":         r.Content,
		"recommendations": r.Recommendations,
	}, nil
}

func (t *Toolset) generateRoutePlan(ctx context.Context, params map[string]any) (any, error) {
	if t.client == nil {
		return map[string]any{"success": false, "error": "LLM 客户端未配置"}, nil
	}

	city := stringParam(params, "city", "")
	days, ok := intParam(params, "days")
	if !ok || days <= 0 {
		days = 3
	}
	preferences := stringParam(params, "preferences", "")

	info, found := t.knowledge.City(city)
	if !found {
		return map[string]any{"success": false, "error": "未找到城市: " + city}, nil
	}

	briefs := make([]llm.AttractionBrief, 0, len(info.Attractions))
	for _, a := range info.Attractions {
		briefs = append(briefs, llm.AttractionBrief{
			Name:     a.Name,
			Type:     a.Type,
			Duration: float64(a.Duration),
			Ticket:   float64(a.Ticket),
		})
	}

	r := t.client.GenerateRoutePlan(ctx, city, days, briefs, preferences)
	if !r.Success {
		return map[string]any{"success": false, "error": r.Error, "raw_content": r.RawContent}, nil
	}
	return map[string]any{
		"success":    true,
		"content":    r.Content,
		"route_plan": r.Plan,
	}, nil
}

// --- 参数读取 ---

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return def
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func stringSliceParam(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if s == "" {
			return nil
		}
		return []string{s}
	}
	return nil
}
