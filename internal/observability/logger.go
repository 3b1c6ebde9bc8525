package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeScope          EventType = "scope_check"
	EventTypePlan           EventType = "plan"
	EventTypeStep           EventType = "step"
	EventTypeToolCall       EventType = "tool_call"
	EventTypeToolResult     EventType = "tool_result"
	EventTypeClassification EventType = "classification"
	EventTypeFallback       EventType = "fallback"
	EventTypeReplan         EventType = "replan"
	EventTypeSynthesis      EventType = "synthesis"
	EventTypePolicyCheck    EventType = "policy_check"
	EventTypeHeartbeat      EventType = "heartbeat"
	EventTypeLLM            EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return NewLoggerAt(filepath.Join("logs", "llm.jsonl"))
}

// NewLoggerAt writes LLM transcripts to the given path instead of the
// default logs directory.
func NewLoggerAt(llmLogPath string) *Logger {
	return &Logger{
		llmLogPath: llmLogPath,
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogStep(chatID string, stepNum int, description, status string) {
	l.Log(Event{
		Type:   EventTypeStep,
		ChatID: chatID,
		Data: map[string]any{
			"step":        stepNum,
			"description": description,
			"status":      status,
		},
	})
}

func (l *Logger) LogToolCall(chatID, tool string, params map[string]any) {
	l.Log(Event{
		Type:   EventTypeToolCall,
		ChatID: chatID,
		Data: map[string]any{
			"tool":   tool,
			"params": params,
		},
	})
}

func (l *Logger) LogFallback(chatID string, stepNum int, description string) {
	l.Log(Event{
		Type:   EventTypeFallback,
		ChatID: chatID,
		Data: map[string]any{
			"step":        stepNum,
			"description": description,
		},
	})
}

func (l *Logger) LogClassification(chatID, errMsg, class string) {
	l.Log(Event{
		Type:   EventTypeClassification,
		ChatID: chatID,
		Data: map[string]any{
			"error": errMsg,
			"class": class,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(chatID, purpose string, prompt any, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		ChatID: chatID,
		Data: map[string]any{
			"purpose":  purpose,
			"prompt":   prompt,
			"response": response,
		},
	})
}
