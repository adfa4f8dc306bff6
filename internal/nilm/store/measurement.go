package store

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/kart-io/nilm-chat/internal/model"
)

// defaultBatchSize is used by CreateBatch when inserting in chunks.
const defaultBatchSize = 500

type measurements struct {
	db *gorm.DB
}

func newMeasurements(db *gorm.DB) *measurements {
	return &measurements{db}
}

// Create inserts a single measurement.
func (m *measurements) Create(ctx context.Context, data *model.ElectricalData) error {
	data.Timestamp = data.Timestamp.UTC()
	return m.db.WithContext(ctx).Create(data).Error
}

// CreateBatch inserts measurements in one transaction.
func (m *measurements) CreateBatch(ctx context.Context, data []*model.ElectricalData) error {
	if len(data) == 0 {
		return nil
	}
	for _, d := range data {
		d.Timestamp = d.Timestamp.UTC()
	}
	return m.db.WithContext(ctx).CreateInBatches(data, defaultBatchSize).Error
}

// LatestTimestamp returns the most recent stored timestamp.
// ok is false when the table is empty.
func (m *measurements) LatestTimestamp(ctx context.Context) (time.Time, bool, error) {
	var latest model.ElectricalData
	err := m.db.WithContext(ctx).
		Select("timestamp").
		Order("timestamp DESC").
		Limit(1).
		Take(&latest).Error
	if err != nil {
		if IsNotFound(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return latest.Timestamp.UTC(), true, nil
}

type summaryRow struct {
	Cluster     int
	DeviceState string
	AvgPower    float64
	AvgTHD      float64
}

// DeviceSummaries groups the records inside [latest-window, latest] by
// (cluster, device_state) and averages power and THD, rounded to two decimals.
func (m *measurements) DeviceSummaries(ctx context.Context, window time.Duration) ([]model.DeviceSummary, error) {
	latest, ok, err := m.LatestTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []model.DeviceSummary{}, nil
	}

	var rows []summaryRow
	err = m.db.WithContext(ctx).
		Model(&model.ElectricalData{}).
		Select("cluster, device_state, AVG(real_power_watt) AS avg_power, AVG(thd) AS avg_thd").
		Where("timestamp >= ?", latest.Add(-window)).
		Group("cluster, device_state").
		Order("cluster ASC, device_state ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]model.DeviceSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, model.DeviceSummary{
			ClusterID: r.Cluster,
			Name:      r.DeviceState,
			AvgPower:  round2(r.AvgPower),
			AvgTHD:    round2(r.AvgTHD),
		})
	}
	return summaries, nil
}

// WindowStats aggregates all records with timestamp >= from.
func (m *measurements) WindowStats(ctx context.Context, from time.Time) (*WindowStats, error) {
	var stats struct {
		Clusters       int64
		Records        int64
		AvgPower       *float64
		AvgPowerFactor *float64
		AvgTHD         *float64
	}
	err := m.db.WithContext(ctx).
		Model(&model.ElectricalData{}).
		Select("COUNT(DISTINCT cluster) AS clusters, COUNT(*) AS records, " +
			"AVG(real_power_watt) AS avg_power, AVG(power_factor) AS avg_power_factor, AVG(thd) AS avg_thd").
		Where("timestamp >= ?", from.UTC()).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	return &WindowStats{
		Clusters:       stats.Clusters,
		Records:        stats.Records,
		AvgPower:       deref(stats.AvgPower),
		AvgPowerFactor: deref(stats.AvgPowerFactor),
		AvgTHD:         deref(stats.AvgTHD),
	}, nil
}

// Recent returns the latest records, newest first.
func (m *measurements) Recent(ctx context.Context, limit int) ([]*model.ElectricalData, error) {
	var data []*model.ElectricalData
	err := m.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&data).Error
	return data, err
}

// ByCluster returns the latest records of one cluster, newest first.
func (m *measurements) ByCluster(ctx context.Context, cluster, limit int) ([]*model.ElectricalData, error) {
	var data []*model.ElectricalData
	err := m.db.WithContext(ctx).
		Where("cluster = ?", cluster).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&data).Error
	return data, err
}

// ClusterProfiles returns one profile per cluster ordered by cluster id.
func (m *measurements) ClusterProfiles(ctx context.Context) ([]ClusterProfile, error) {
	var averages []struct {
		Cluster  int
		AvgPower float64
		AvgTHD   float64
	}
	err := m.db.WithContext(ctx).
		Model(&model.ElectricalData{}).
		Select("cluster, AVG(real_power_watt) AS avg_power, AVG(thd) AS avg_thd").
		Group("cluster").
		Order("cluster ASC").
		Scan(&averages).Error
	if err != nil {
		return nil, err
	}

	// 按 (cluster, device_state) 计数，取每个 cluster 出现次数最多的标签
	var counts []struct {
		Cluster     int
		DeviceState string
		N           int64
	}
	err = m.db.WithContext(ctx).
		Model(&model.ElectricalData{}).
		Select("cluster, device_state, COUNT(*) AS n").
		Where("device_state IS NOT NULL AND device_state <> ''").
		Group("cluster, device_state").
		Order("cluster ASC, n DESC, device_state ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	dominant := make(map[int]string, len(counts))
	for _, c := range counts {
		if _, seen := dominant[c.Cluster]; !seen {
			dominant[c.Cluster] = c.DeviceState
		}
	}

	profiles := make([]ClusterProfile, 0, len(averages))
	for _, a := range averages {
		profiles = append(profiles, ClusterProfile{
			Cluster:       a.Cluster,
			DominantState: dominant[a.Cluster],
			AvgPower:      a.AvgPower,
			AvgTHD:        a.AvgTHD,
		})
	}
	return profiles, nil
}

// Count returns the number of stored measurements.
func (m *measurements) Count(ctx context.Context) (int64, error) {
	var n int64
	err := m.db.WithContext(ctx).Model(&model.ElectricalData{}).Count(&n).Error
	return n, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
