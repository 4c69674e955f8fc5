package travel

import (
	"context"
	"strings"
)

// EventType 流式事件类型。
type EventType string

const (
	EventSessionID      EventType = "session_id"
	EventReasoningStart EventType = "reasoning_start"
	EventReasoningChunk EventType = "reasoning_chunk"
	EventReasoningEnd   EventType = "reasoning_end"
	EventMetadata       EventType = "metadata"
	EventAnswerStart    EventType = "answer_start"
	EventChunk          EventType = "chunk"
	EventDone           EventType = "done"
	EventError          EventType = "error"
)

// Event 流式事件。事件序列严格有序：
// session_id → reasoning_start → reasoning_chunk* → reasoning_end →
// metadata → answer_start → chunk* → done|error，
// 且 done/error 终结事件恰好出现一次。
type Event struct {
	Type      EventType      `json:"type"`
	SessionID string         `json:"session_id,omitempty"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ProcessStream 处理一轮输入并以事件流形式产出推理过程与回答。
// 通道在终结事件后关闭；消费方取消 ctx 可提前终止。
func (t *TravelAgent) ProcessStream(ctx context.Context, userInput string) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		send := func(ev Event) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(Event{Type: EventSessionID, SessionID: t.mem.SessionID()}) {
			return
		}
		if !send(Event{Type: EventReasoningStart}) {
			return
		}

		result := t.Process(ctx, userInput)

		if !result.Success {
			send(Event{Type: EventReasoningChunk, Content: "处理出错: " + result.Error})
			send(Event{Type: EventReasoningEnd})
			send(Event{Type: EventMetadata, Metadata: map[string]any{
				"total_steps": len(result.History),
				"tools_used":  toolsUsed(result.History),
			}})
			send(Event{Type: EventAnswerStart})
			send(Event{Type: EventChunk, Content: "抱歉，处理您的请求时出现问题: " + result.Error})
			send(Event{Type: EventError, Content: result.Error})
			return
		}

		if result.Reasoning != nil {
			for _, chunk := range strings.Split(result.Reasoning.Text, "\n\n") {
				chunk = strings.TrimSpace(chunk)
				if chunk == "" {
					continue
				}
				if !send(Event{Type: EventReasoningChunk, Content: chunk}) {
					return
				}
			}
		}
		if !send(Event{Type: EventReasoningEnd}) {
			return
		}

		metadata := map[string]any{"total_steps": 0, "tools_used": []string{}}
		if result.Reasoning != nil {
			metadata["total_steps"] = result.Reasoning.TotalSteps
			metadata["tools_used"] = result.Reasoning.ToolsUsed
		}
		if !send(Event{Type: EventMetadata, Metadata: metadata}) {
			return
		}
		if !send(Event{Type: EventAnswerStart}) {
			return
		}

		for _, r := range result.Answer {
			if !send(Event{Type: EventChunk, Content: string(r)}) {
				return
			}
		}

		send(Event{Type: EventDone})
	}()

	return out
}
