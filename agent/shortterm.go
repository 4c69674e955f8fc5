package agent

import (
	"time"

	"github.com/google/uuid"
)

const defaultShortTermSize = 20

// MemoryEntry 短期记忆条目。
type MemoryEntry struct {
	ID         string    `json:"id"`
	Content    any       `json:"content"`
	Importance float64   `json:"importance"`
	Timestamp  time.Time `json:"timestamp"`
}

// ShortTermMemory 有界 FIFO 环，存放最近的辅助记忆条目。
// 它不是会话历史（那由 memory 包管理），只是一块运行期草稿区。
type ShortTermMemory struct {
	maxSize int
	entries []MemoryEntry
}

// NewShortTermMemory 创建短期记忆，maxSize<=0 时用默认容量。
func NewShortTermMemory(maxSize int) *ShortTermMemory {
	if maxSize <= 0 {
		maxSize = defaultShortTermSize
	}
	return &ShortTermMemory{maxSize: maxSize}
}

// Add 追加条目，容量满时淘汰最旧的。返回条目 id。
func (m *ShortTermMemory) Add(content any, importance float64) string {
	entry := MemoryEntry{
		ID:         uuid.NewString(),
		Content:    content,
		Importance: importance,
		Timestamp:  time.Now(),
	}
	m.entries = append(m.entries, entry)
	if len(m.entries) > m.maxSize {
		m.entries = m.entries[len(m.entries)-m.maxSize:]
	}
	return entry.ID
}

// Recent 返回最近 limit 条，最新的在前。limit<=0 或超界时返回全部。
func (m *ShortTermMemory) Recent(limit int) []MemoryEntry {
	n := len(m.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]MemoryEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.entries[i])
	}
	return out
}

// Len 当前条目数。
func (m *ShortTermMemory) Len() int { return len(m.entries) }

// Clear 清空全部条目。
func (m *ShortTermMemory) Clear() { m.entries = nil }
