// Package store implements the relational storage of measurements and chat history.
package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/nilm-chat/internal/model"
)

// Factory defines the factory interface for creating stores.
type Factory interface {
	Measurements() MeasurementStore
	Sessions() SessionStore
	Messages() MessageStore
	AutoMigrate(ctx context.Context) error
	ResetMeasurements(ctx context.Context) error
	Close() error
}

// MeasurementStore defines the electrical data storage interface.
type MeasurementStore interface {
	Create(ctx context.Context, data *model.ElectricalData) error
	CreateBatch(ctx context.Context, data []*model.ElectricalData) error
	LatestTimestamp(ctx context.Context) (time.Time, bool, error)
	DeviceSummaries(ctx context.Context, window time.Duration) ([]model.DeviceSummary, error)
	WindowStats(ctx context.Context, from time.Time) (*WindowStats, error)
	Recent(ctx context.Context, limit int) ([]*model.ElectricalData, error)
	ByCluster(ctx context.Context, cluster, limit int) ([]*model.ElectricalData, error)
	ClusterProfiles(ctx context.Context) ([]ClusterProfile, error)
	Count(ctx context.Context) (int64, error)
}

// SessionStore defines the chat session storage interface.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*model.ChatSession, error)
	Create(ctx context.Context, session *model.ChatSession) error
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) (bool, error)
	DeleteIdle(ctx context.Context, before time.Time) (int64, error)
}

// MessageStore defines the chat message storage interface.
type MessageStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	Recent(ctx context.Context, sessionID string, limit int) ([]*model.ChatMessage, error)
	List(ctx context.Context, sessionID string) ([]*model.ChatMessage, error)
}

// WindowStats aggregates the records at or after a point in time.
type WindowStats struct {
	Clusters       int64
	Records        int64
	AvgPower       float64
	AvgPowerFactor float64
	AvgTHD         float64
}

// ClusterProfile describes a cluster across all stored records.
// DominantState is the most frequent device_state, empty when no row is labelled.
type ClusterProfile struct {
	Cluster       int
	DominantState string
	AvgPower      float64
	AvgTHD        float64
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
