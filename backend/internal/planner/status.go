package planner

import "sync"

// StatusKind 状态类别
type StatusKind string

const (
	StatusIdle    StatusKind = "idle"
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusWarning StatusKind = "warning"
	StatusError   StatusKind = "error"
)

// Status 最近一次操作面向用户的状态
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

// StatusReporter 单槽状态：新状态总是覆盖旧状态，不保留历史
type StatusReporter struct {
	mu        sync.RWMutex
	current   Status
	observers []func(Status)
}

// NewStatusReporter 初始状态为 idle
func NewStatusReporter() *StatusReporter {
	return &StatusReporter{current: Status{Kind: StatusIdle}}
}

// Set 覆盖当前状态并通知观察者
func (r *StatusReporter) Set(s Status) {
	r.mu.Lock()
	r.current = s
	observers := append([]func(Status){}, r.observers...)
	r.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (r *StatusReporter) Info(msg string)    { r.Set(Status{Kind: StatusInfo, Message: msg}) }
func (r *StatusReporter) Success(msg string) { r.Set(Status{Kind: StatusSuccess, Message: msg}) }
func (r *StatusReporter) Warning(msg string) { r.Set(Status{Kind: StatusWarning, Message: msg}) }
func (r *StatusReporter) Error(msg string)   { r.Set(Status{Kind: StatusError, Message: msg}) }

// Reset 回到 idle
func (r *StatusReporter) Reset() { r.Set(Status{Kind: StatusIdle}) }

// Current 当前状态
func (r *StatusReporter) Current() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// OnChange 注册状态变化观察者（在 Set 的调用方 goroutine 中同步执行）
func (r *StatusReporter) OnChange(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}
