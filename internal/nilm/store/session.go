package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/nilm-chat/internal/model"
)

type sessions struct {
	db *gorm.DB
}

func newSessions(db *gorm.DB) *sessions {
	return &sessions{db}
}

// Get retrieves a session by its session id.
func (s *sessions) Get(ctx context.Context, sessionID string) (*model.ChatSession, error) {
	var session model.ChatSession
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Create creates a new session.
func (s *sessions) Create(ctx context.Context, session *model.ChatSession) error {
	if session.LastActive.IsZero() {
		session.LastActive = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// Touch updates last_active of a session.
func (s *sessions) Touch(ctx context.Context, sessionID string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.ChatSession{}).
		Where("session_id = ?", sessionID).
		Update("last_active", at.UTC()).Error
}

// Delete removes a session and its messages. It reports whether the session existed.
func (s *sessions) Delete(ctx context.Context, sessionID string) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		res := tx.Where("session_id = ?", sessionID).Delete(&model.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// DeleteIdle removes sessions whose last activity is before the given time,
// together with their messages, and returns how many sessions were removed.
func (s *sessions) DeleteIdle(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		idle := tx.Model(&model.ChatSession{}).Select("session_id").Where("last_active < ?", before.UTC())
		if err := tx.Where("session_id IN (?)", idle).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		res := tx.Where("last_active < ?", before.UTC()).Delete(&model.ChatSession{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	return n, err
}
