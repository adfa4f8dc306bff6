// Package model provides data models for the NILM chat backend.
package model

import (
	"time"
)

// ElectricalData is one sampled instant of electrical state for a cluster.
// Rows are written by ingestion and never mutated through the API.
type ElectricalData struct {
	ID            uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp     time.Time `json:"timestamp" gorm:"index:idx_timestamp;not null"`
	Voltage       float64   `json:"voltage" gorm:"not null"`
	Current       float64   `json:"current" gorm:"not null"`
	RealPower     float64   `json:"real_power" gorm:"not null"`
	ReactivePower float64   `json:"reactive_power" gorm:"not null"`
	ApparentPower float64   `json:"apparent_power" gorm:"not null"`
	PowerFactor   float64   `json:"power_factor" gorm:"not null"`
	Frequency     *float64  `json:"frequency"`
	THD           float64   `json:"thd" gorm:"column:thd;not null"`
	RealPowerWatt float64   `json:"real_power_watt" gorm:"not null"`
	Cluster       int       `json:"cluster" gorm:"index:idx_cluster;not null"`
	DeviceState   string    `json:"device_state" gorm:"size:128"`
}

// TableName returns the table name for GORM.
func (ElectricalData) TableName() string {
	return "electrical_data"
}

// DeviceSummary is the per-(cluster, device state) aggregate used to ground
// chat answers. It is computed per request and never persisted.
type DeviceSummary struct {
	ClusterID int     `json:"cluster_id"`
	Name      string  `json:"name"`
	AvgPower  float64 `json:"avg_power"`
	AvgTHD    float64 `json:"avg_thd"`
}

// DeviceInfo describes one cluster for the device listing endpoints.
type DeviceInfo struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Cluster      int     `json:"cluster"`
	TypicalPower float64 `json:"typical_power"`
	TypicalTHD   float64 `json:"typical_thd"`
	Description  string  `json:"description"`
}

// MetricsSummary aggregates the readings around the latest timestamp.
type MetricsSummary struct {
	TotalDevices   int       `json:"total_devices"`
	TotalPower     float64   `json:"total_power"`
	AvgPowerFactor float64   `json:"avg_power_factor"`
	AvgTHD         float64   `json:"avg_thd"`
	Timestamp      time.Time `json:"timestamp"`
}

// AllModels lists the models managed by migrations.
func AllModels() []any {
	return []any{&ElectricalData{}, &ChatSession{}, &ChatMessage{}}
}
