package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/tripflow/llm"
)

const (
	defaultMaxWorkingMemory  = 10
	defaultMaxLongTermMemory = 50
)

// ArchiveRecord 会话归档记录，清空会话时生成。
type ArchiveRecord struct {
	SessionID      string         `json:"session_id"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	MessageCount   int            `json:"message_count"`
	Summary        string         `json:"summary"`
	UserPreference UserPreference `json:"user_preference"`
	SessionState   map[string]any `json:"session_state"`
	Messages       []Message      `json:"messages"`
}

// ArchiveSummary 归档列表项。
type ArchiveSummary struct {
	SessionID    string    `json:"session_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	MessageCount int       `json:"message_count"`
	Summary      string    `json:"summary"`
}

// Manager 会话级记忆管理器。
type Manager struct {
	maxWorking  int
	maxLongTerm int

	history      []Message
	preference   UserPreference
	sessionState map[string]any
	sessionID    string
	startTime    time.Time
	longTerm     []ArchiveRecord

	logger *zap.Logger
}

// NewManager 创建记忆管理器，容量参数 <=0 时用默认值（工作记忆 10 条、
// 长期归档 50 条）。
func NewManager(maxWorking, maxLongTerm int, logger *zap.Logger) *Manager {
	if maxWorking <= 0 {
		maxWorking = defaultMaxWorkingMemory
	}
	if maxLongTerm <= 0 {
		maxLongTerm = defaultMaxLongTermMemory
	}

	m := &Manager{
		maxWorking:   maxWorking,
		maxLongTerm:  maxLongTerm,
		sessionState: make(map[string]any),
		logger:       logger,
	}
	m.resetSession()
	return m
}

func (m *Manager) resetSession() {
	m.sessionID = "session_" + uuid.NewString()
	m.startTime = time.Now()
	m.sessionState["last_recommended_cities"] = []string{}
	m.sessionState["last_recommended_attractions"] = []string{}
	m.sessionState["current_plan"] = nil
}

// SessionID 当前会话标识。
func (m *Manager) SessionID() string { return m.sessionID }

// AddMessage 追加一条消息。工作记忆溢出时淘汰最旧的；
// 用户消息同时驱动偏好的增量更新。
func (m *Manager) AddMessage(role, content string) {
	m.history = append(m.history, NewMessage(role, content))
	if len(m.history) > m.maxWorking {
		m.history = m.history[len(m.history)-m.maxWorking:]
	}

	if role == "user" {
		m.preference.UpdateFromText(content)
	}
}

// History 返回最近 limit 条消息（limit<=0 返回全部），旧→新。
func (m *Manager) History(limit int) []Message {
	n := len(m.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Message, limit)
	copy(out, m.history[n-limit:])
	return out
}

// MessagesForLLM 把最近的会话历史转换为 LLM 消息。
func (m *Manager) MessagesForLLM(limit int) []llm.Message {
	history := m.History(limit)
	out := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		out = append(out, llm.Message{Role: llm.Role(msg.Role), Content: msg.Content})
	}
	return out
}

// SetSessionState 写入会话状态键值。
func (m *Manager) SetSessionState(key string, value any) {
	m.sessionState[key] = value
}

// SessionState 读取会话状态，不存在时返回 def。
func (m *Manager) SessionState(key string, def any) any {
	if v, ok := m.sessionState[key]; ok && v != nil {
		return v
	}
	return def
}

// Preference 当前偏好快照。
func (m *Manager) Preference() UserPreference { return m.preference }

// SetPreference 整体覆盖偏好（用于恢复持久化状态）。
func (m *Manager) SetPreference(p UserPreference) { m.preference = p }

// ClearConversation 清空当前会话。archive 为 true 时先归档，
// 然后重置工作记忆与会话标识。
func (m *Manager) ClearConversation(archive bool) {
	if archive {
		m.archiveSession()
	}
	m.history = nil
	m.resetSession()
}

// ArchiveCurrentSession 就地归档当前会话并返回归档记录，不清空历史。
func (m *Manager) ArchiveCurrentSession() *ArchiveRecord {
	m.archiveSession()
	if len(m.longTerm) == 0 {
		return nil
	}
	return &m.longTerm[len(m.longTerm)-1]
}

func (m *Manager) archiveSession() {
	stateCopy := map[string]any{
		"last_recommended_cities":      m.sessionState["last_recommended_cities"],
		"last_recommended_attractions": m.sessionState["last_recommended_attractions"],
		"current_plan":                 m.sessionState["current_plan"],
	}

	record := ArchiveRecord{
		SessionID:      m.sessionID,
		StartTime:      m.startTime,
		EndTime:        time.Now(),
		MessageCount:   len(m.history),
		Summary:        m.sessionSummary(),
		UserPreference: m.preference,
		SessionState:   stateCopy,
		Messages:       m.History(0),
	}

	m.longTerm = append(m.longTerm, record)
	// 超过上限时从最旧的开始淘汰
	if len(m.longTerm) > m.maxLongTerm {
		m.longTerm = m.longTerm[len(m.longTerm)-m.maxLongTerm:]
	}
}

func (m *Manager) sessionSummary() string {
	var parts []string

	userCount := 0
	for _, msg := range m.history {
		if msg.Role == "user" {
			userCount++
		}
	}
	if userCount > 0 {
		parts = append(parts, fmt.Sprintf("用户消息数: %d", userCount))
	}

	if cities := toStringSlice(m.sessionState["last_recommended_cities"]); len(cities) > 0 {
		if len(cities) > 5 {
			cities = cities[:5]
		}
		parts = append(parts, "推荐城市: "+strings.Join(cities, ", "))
	}

	if plan, ok := m.sessionState["current_plan"].(map[string]any); ok {
		if days, ok := plan["route_plan"].([]any); ok && len(days) > 0 {
			parts = append(parts, "已规划路线")
		}
	}

	if len(parts) == 0 {
		return "一般对话"
	}
	return strings.Join(parts, " | ")
}

// ArchivedSessions 返回最近 limit 条归档摘要，最新的在前。
func (m *Manager) ArchivedSessions(limit int) []ArchiveSummary {
	if limit <= 0 || limit > len(m.longTerm) {
		limit = len(m.longTerm)
	}
	out := make([]ArchiveSummary, 0, limit)
	for i := len(m.longTerm) - 1; i >= len(m.longTerm)-limit; i-- {
		r := m.longTerm[i]
		out = append(out, ArchiveSummary{
			SessionID:    r.SessionID,
			StartTime:    r.StartTime,
			EndTime:      r.EndTime,
			MessageCount: r.MessageCount,
			Summary:      r.Summary,
		})
	}
	return out
}

// ArchiveDetail 按会话 id 查完整归档。
func (m *Manager) ArchiveDetail(sessionID string) (*ArchiveRecord, bool) {
	for i := range m.longTerm {
		if m.longTerm[i].SessionID == sessionID {
			return &m.longTerm[i], true
		}
	}
	return nil, false
}

// LongTermMemory 全部归档记录，旧→新。
func (m *Manager) LongTermMemory() []ArchiveRecord { return m.longTerm }

// ContextSummary 把偏好与会话状态汇总成给 LLM 的上下文片段。
func (m *Manager) ContextSummary() string {
	var parts []string

	if m.preference.BudgetRange != nil {
		parts = append(parts, fmt.Sprintf("预算范围：%d-%d元/天",
			m.preference.BudgetRange.Min, m.preference.BudgetRange.Max))
	}
	if m.preference.TravelDays > 0 {
		parts = append(parts, fmt.Sprintf("旅行天数：%d天", m.preference.TravelDays))
	}
	if len(m.preference.InterestTags) > 0 {
		parts = append(parts, "兴趣偏好："+strings.Join(m.preference.InterestTags, ", "))
	}
	if len(m.preference.PreferredCities) > 0 {
		parts = append(parts, "偏好城市："+strings.Join(m.preference.PreferredCities, ", "))
	}
	if cities := toStringSlice(m.sessionState["last_recommended_cities"]); len(cities) > 0 {
		parts = append(parts, "已推荐城市："+strings.Join(cities, ", "))
	}

	if len(parts) == 0 {
		return "暂无用户偏好信息"
	}
	return strings.Join(parts, "\n")
}

// persistedState 持久化文档的顶层结构。
type persistedState struct {
	SessionState        map[string]any  `json:"session_state"`
	ConversationHistory []Message       `json:"conversation_history"`
	UserPreference      UserPreference  `json:"user_preference"`
	LongTermMemory      []ArchiveRecord `json:"long_term_memory"`
}

// SaveToFile 把完整记忆状态序列化为单个 JSON 文档。
func (m *Manager) SaveToFile(path string) error {
	state := persistedState{
		SessionState:        m.sessionState,
		ConversationHistory: m.history,
		UserPreference:      m.preference,
		LongTermMemory:      m.longTerm,
	}
	state.SessionState["session_id"] = m.sessionID
	state.SessionState["start_time"] = m.startTime

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化记忆失败: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadFromFile 从文件恢复记忆状态。任何失败只记日志并返回 false。
func (m *Manager) LoadFromFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		m.logger.Warn("加载记忆失败", zap.String("path", path), zap.Error(err))
		return false
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		m.logger.Warn("解析记忆失败", zap.String("path", path), zap.Error(err))
		return false
	}

	if state.SessionState != nil {
		m.sessionState = state.SessionState
		if id, ok := state.SessionState["session_id"].(string); ok {
			m.sessionID = id
		}
	}
	m.history = state.ConversationHistory
	if len(m.history) > m.maxWorking {
		m.history = m.history[len(m.history)-m.maxWorking:]
	}
	m.preference = state.UserPreference
	m.longTerm = state.LongTermMemory
	if len(m.longTerm) > m.maxLongTerm {
		m.longTerm = m.longTerm[len(m.longTerm)-m.maxLongTerm:]
	}
	return true
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
