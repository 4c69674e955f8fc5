// Package memory 管理单个会话的记忆：有界会话历史、用户偏好累积、
// 会话状态键值与封顶的长期归档，并支持整体 JSON 持久化。
// Manager 由所在会话独占持有，不做内部加锁。
package memory

import "time"

// Message 会话消息，追加后不再修改。
type Message struct {
	Role      string    `json:"role"` // user / assistant / system
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage 以当前时间创建消息。
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}
