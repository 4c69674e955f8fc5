// Package session 提供多会话管理的存储抽象：内存后端用于开发与测试，
// Redis 后端用于多实例部署。过期清理由调用方触发（定时或按访问）。
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound 会话不存在。
	ErrNotFound = errors.New("会话不存在")
	// ErrStoreClosed 存储已关闭。
	ErrStoreClosed = errors.New("存储已关闭")
)

// Message 会话中的一条消息，助手消息可携带推理过程。
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Reasoning string    `json:"reasoning,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session 一个对话会话的完整状态。
type Session struct {
	SessionID       string         `json:"session_id"`
	Name            string         `json:"name"`
	ModelID         string         `json:"model_id"`
	CreatedAt       time.Time      `json:"created_at"`
	LastActive      time.Time      `json:"last_active"`
	MessageCount    int            `json:"message_count"`
	Messages        []Message      `json:"messages"`
	UserPreferences map[string]any `json:"user_preferences,omitempty"`
}

// Store 会话存储。实现必须并发安全。
type Store interface {
	// Create 保存新会话并返回会话 id；入参缺省字段由实现补齐。
	Create(ctx context.Context, s *Session) (string, error)
	// Get 按 id 取会话。
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Update 整体覆盖会话状态并刷新活跃时间。
	Update(ctx context.Context, s *Session) error
	// Delete 删除会话，不存在时返回 ErrNotFound。
	Delete(ctx context.Context, sessionID string) error
	// List 全部会话，按最近活跃降序。
	List(ctx context.Context) ([]*Session, error)
	// Cleanup 清理空闲超过 maxAge 的会话，返回清理数量。
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
	// Close 释放底层资源。
	Close() error
}

// 补齐新会话的缺省字段。
func normalizeNew(s *Session) {
	now := time.Now()
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	if s.Name == "" {
		s.Name = "会话 " + now.Format("2006-01-02")
	}
	if s.ModelID == "" {
		s.ModelID = "gpt-4o-mini"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.LastActive = now
	s.MessageCount = len(s.Messages)
	if s.UserPreferences == nil {
		s.UserPreferences = make(map[string]any)
	}
}

// AppendMessage 往会话追加一条消息并同步计数与活跃时间。
func AppendMessage(ctx context.Context, store Store, sessionID, role, content, reasoning string) error {
	s, err := store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Reasoning: reasoning,
		Timestamp: time.Now(),
	})
	s.MessageCount = len(s.Messages)
	return store.Update(ctx, s)
}
