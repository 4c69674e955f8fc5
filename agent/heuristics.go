package agent

import (
	"regexp"
	"strconv"
	"strings"
)

// 规则抽取使用的模式。按序尝试、首个命中生效，
// 任务分类与参数抽取的确定性依赖这里的顺序。
var (
	daysPattern   = regexp.MustCompile(`(\d+)\s*天`)
	budgetPattern = regexp.MustCompile(`(\d+)\s*元`)

	cityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(.+?)\s+计划`),
		regexp.MustCompile(`^(.+?)\s+想要`),
		regexp.MustCompile(`(?:去|在|到)(.+?)(?:旅游|游玩|旅行)?`),
		regexp.MustCompile(`(.+?)的?攻略`),
	}

	// 捕获到这些词说明抓到的不是城市名
	cityStopWords = []string{"推荐", "建议", "哪些", "什么"}

	recommendKeywords = []string{"推荐", "建议", "哪些", "适合"}
	queryKeywords     = []string{"查询", "搜索", "有什么", "信息"}
	planningKeywords  = []string{"规划", "计划", "路线", "行程", "安排", "攻略", "旅游", "旅行", "游玩", "出游", "出发"}

	// 触发路线工具的词集，比任务分类的 planning 集合窄
	routeKeywords = []string{"规划", "计划", "路线", "行程", "安排", "攻略", "旅游", "旅行", "游玩", "出游", "出发"}
)

// TaskEntities 规则抽取出的任务要素。
type TaskEntities struct {
	City   string `json:"city,omitempty"`
	Days   int    `json:"days"`
	Budget int    `json:"budget,omitempty"`
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// ExtractCity 按序尝试城市模式，取第一个不含干扰词的捕获。
func ExtractCity(task string) string {
	for _, pattern := range cityPatterns {
		m := pattern.FindStringSubmatch(task)
		if m == nil {
			continue
		}
		city := strings.TrimSpace(m[1])
		if city != "" && !containsAny(city, cityStopWords) {
			return city
		}
	}
	return ""
}

// ExtractEntities 从任务文本中规则抽取城市、天数与预算。
// 天数缺省为 3。
func ExtractEntities(task string) TaskEntities {
	entities := TaskEntities{Days: 3}

	if m := daysPattern.FindStringSubmatch(task); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			entities.Days = days
		}
	}
	entities.City = ExtractCity(task)
	if m := budgetPattern.FindStringSubmatch(task); m != nil {
		if budget, err := strconv.Atoi(m[1]); err == nil {
			entities.Budget = budget
		}
	}

	return entities
}

// TaskCategory 任务意图分类。
type TaskCategory string

const (
	CategoryRecommendation TaskCategory = "recommendation"
	CategoryQuery          TaskCategory = "query"
	CategoryPlanning       TaskCategory = "planning"
	CategoryBudget         TaskCategory = "budget"
	CategoryGeneral        TaskCategory = "general"
)

// Label 分类的中文展示名。
func (c TaskCategory) Label() string {
	switch c {
	case CategoryRecommendation:
		return "城市推荐"
	case CategoryQuery:
		return "信息查询"
	case CategoryPlanning:
		return "路线规划"
	case CategoryBudget:
		return "预算计算"
	default:
		return "一般对话"
	}
}

// ClassifyTask 按关键词把任务归入意图分类，顺序判定、首个命中生效。
func ClassifyTask(task string) TaskCategory {
	switch {
	case containsAny(task, recommendKeywords):
		return CategoryRecommendation
	case containsAny(task, queryKeywords):
		return CategoryQuery
	case containsAny(task, planningKeywords):
		return CategoryPlanning
	default:
		return CategoryGeneral
	}
}

// DecomposeByRules 确定性地把任务分解为计划步骤。
// 固定的评估顺序：推荐类工具 → 城市信息工具 → 路线工具 → llm_chat 兜底；
// 每类至多选一个工具，同类命中时取注册顺序里的第一个。
func DecomposeByRules(task string, registry *Registry) []PlannedStep {
	var steps []PlannedStep

	entities := ExtractEntities(task)

	if containsAny(task, recommendKeywords) {
		if tool, ok := registry.FirstMatch("recommend", "search"); ok {
			steps = append(steps, PlannedStep{
				Step: len(steps) + 1,
				Tool: tool.Name,
				Parameters: map[string]any{
					"interests":  []string{},
					"budget_min": nil,
					"budget_max": nil,
					"season":     nil,
				},
			})
		}
	}

	if entities.City != "" {
		if tool, ok := registry.FirstMatch("city_info", "attraction"); ok {
			steps = append(steps, PlannedStep{
				Step:       len(steps) + 1,
				Tool:       tool.Name,
				Parameters: map[string]any{"city": entities.City},
			})
		}
	}

	if containsAny(task, routeKeywords) {
		if tool, ok := registry.FirstMatch("route", "plan"); ok {
			city := entities.City
			if city == "" {
				city = "未知"
			}
			steps = append(steps, PlannedStep{
				Step:       len(steps) + 1,
				Tool:       tool.Name,
				Parameters: map[string]any{"city": city, "days": entities.Days},
			})
		}
	}

	if len(steps) == 0 {
		if tool, ok := registry.FirstMatch("llm_chat"); ok {
			steps = append(steps, PlannedStep{
				Step:       1,
				Tool:       tool.Name,
				Parameters: map[string]any{"query": task},
			})
		}
	}

	return steps
}
