package observability

import (
	"sync"
	"time"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateServing State = "SERVING"
	StateBusy    State = "BUSY"
)

type SystemStatus struct {
	mu            sync.RWMutex
	State         State
	LastCommand   string
	LastHeartbeat time.Time
}

var globalStatus = &SystemStatus{
	State:         StateIdle,
	LastHeartbeat: time.Now(),
}

// SetStatus updates the global system status.
func SetStatus(state State, command string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.State = state
	if command != "" {
		globalStatus.LastCommand = command
	}
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() (State, string, time.Time) {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.State, globalStatus.LastCommand, globalStatus.LastHeartbeat
}

// Heartbeat updates the last heartbeat time.
func Heartbeat() {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.LastHeartbeat = time.Now()
}
