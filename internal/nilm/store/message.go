package store

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/nilm-chat/internal/model"
)

type messages struct {
	db *gorm.DB
}

func newMessages(db *gorm.DB) *messages {
	return &messages{db}
}

// Create appends a message to a session.
func (m *messages) Create(ctx context.Context, msg *model.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	msg.Timestamp = msg.Timestamp.UTC()
	return m.db.WithContext(ctx).Create(msg).Error
}

// Recent returns the last limit messages of a session in chronological order.
func (m *messages) Recent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// List returns every message of a session in chronological order.
func (m *messages) List(ctx context.Context, sessionID string) ([]*model.ChatMessage, error) {
	var msgs []*model.ChatMessage
	err := m.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&msgs).Error
	return msgs, err
}
