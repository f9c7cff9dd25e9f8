package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeRecipeCreated  EventType = "recipe_created"
	EventTypeRecipeSaved    EventType = "recipe_saved"
	EventTypeRecipeDeleted  EventType = "recipe_deleted"
	EventTypeRecipeRepaired EventType = "recipe_repaired"
	EventTypeJobDispatched  EventType = "job_dispatched"
	EventTypeDispatchFailed EventType = "dispatch_failed"
	EventTypeCommand        EventType = "command"
	EventTypePolicyCheck    EventType = "policy_check"
	EventTypeHeartbeat      EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	RecipeID  string    `json:"recipe_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger emits structured events as JSON lines. Job events are also kept in
// a size-capped file so dispatch history survives restarts.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	jobLogPath string
	maxSize    int64
}

func NewLogger(logDir string) *Logger {
	l := &Logger{
		out:     os.Stdout,
		maxSize: 10 * 1024 * 1024, // 10MB
	}
	if logDir != "" {
		l.jobLogPath = filepath.Join(logDir, "jobs.jsonl")
	}
	return l
}

// NewWriterLogger logs to w only. Useful in tests.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w}
}

// SetOutput redirects event lines. The job file is unaffected.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// Log emits a structured JSON event. A nil Logger discards events.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"error\": \"failed to marshal event: %v\"}", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, string(data))

	if l.jobLogPath != "" && (evt.Type == EventTypeJobDispatched || evt.Type == EventTypeDispatchFailed) {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.jobLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	info, err := os.Stat(l.jobLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.jobLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
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
	// keep one .old file
	oldPath := l.jobLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.jobLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogRecipe(evt EventType, recipeID, name string, steps int) {
	l.Log(Event{
		Type:     evt,
		RecipeID: recipeID,
		Data: map[string]any{
			"name":  name,
			"steps": steps,
		},
	})
}

func (l *Logger) LogRecipeRepaired(recipeID string, reason error) {
	l.Log(Event{
		Type:     EventTypeRecipeRepaired,
		RecipeID: recipeID,
		Data:     map[string]string{"reason": reason.Error()},
	})
}

func (l *Logger) LogJobDispatched(jobID, jobType, projectID, recipeID, targetRecipeID string) {
	data := map[string]string{
		"job_id":     jobID,
		"job_type":   jobType,
		"project_id": projectID,
	}
	if targetRecipeID != "" {
		data["target_recipe_id"] = targetRecipeID
	}
	l.Log(Event{
		Type:     EventTypeJobDispatched,
		RecipeID: recipeID,
		Data:     data,
	})
}

func (l *Logger) LogDispatchFailed(jobType, projectID, recipeID string, err error) {
	l.Log(Event{
		Type:     EventTypeDispatchFailed,
		RecipeID: recipeID,
		Data: map[string]string{
			"job_type":   jobType,
			"project_id": projectID,
			"error":      err.Error(),
		},
	})
}

func (l *Logger) LogCommand(chatID, command, args string, err error) {
	data := map[string]string{
		"command": command,
		"args":    args,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	l.Log(Event{
		Type:   EventTypeCommand,
		ChatID: chatID,
		Data:   data,
	})
}

func (l *Logger) LogPolicyDenied(chatID, command, reason string) {
	l.Log(Event{
		Type:   EventTypePolicyCheck,
		ChatID: chatID,
		Data: map[string]string{
			"command": command,
			"effect":  "deny",
			"reason":  reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	state, last, _ := GetStatus()
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{
			"status":       "alive",
			"state":        string(state),
			"last_command": last,
		},
	})
}
