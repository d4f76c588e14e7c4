package model

import "sync"

// Notifier is the single point responsible for user-visible outcome
// notification. Controllers report every success and every failure through
// it; nothing is silently swallowed. Centralizing the mechanism behind one
// collaborator lets tests assert on calls instead of UI side effects.
type Notifier interface {
	NotifySuccess(msg string)
	NotifyError(msg string)
}

// Notice is one recorded notification.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// NoticeLog is a Notifier that records notices in memory. It backs the
// screen session state (the frontend drains it for toasts) and doubles as
// the test double.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

// NewNoticeLog returns an empty NoticeLog.
func NewNoticeLog() *NoticeLog {
	return &NoticeLog{}
}

// NotifySuccess records a success notice.
func (l *NoticeLog) NotifySuccess(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, Notice{Level: "success", Message: msg})
}

// NotifyError records an error notice.
func (l *NoticeLog) NotifyError(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, Notice{Level: "error", Message: msg})
}

// Drain returns all recorded notices and clears the log.
func (l *NoticeLog) Drain() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

// Peek returns the recorded notices without clearing them.
func (l *NoticeLog) Peek() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Notice, len(l.notices))
	copy(out, l.notices)
	return out
}
