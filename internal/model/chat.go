package model

import (
	"time"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession is a conversation identified by a client-visible session id.
type ChatSession struct {
	ID         uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID  string    `json:"session_id" gorm:"size:64;not null;uniqueIndex:uk_session_id"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	LastActive time.Time `json:"last_active" gorm:"index:idx_last_active"`
}

// TableName returns the table name for GORM.
func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage is one persisted conversation turn.
type ChatMessage struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID string    `json:"session_id" gorm:"size:64;not null;index:idx_session_ts,priority:1"`
	Role      string    `json:"role" gorm:"size:16;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"index:idx_session_ts,priority:2"`
}

// TableName returns the table name for GORM.
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Turn is a (role, text) pair handed to the prompt builder.
type Turn struct {
	Role string
	Text string
}

// Turns converts persisted messages into conversation turns, keeping order.
func Turns(msgs []*ChatMessage) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}
