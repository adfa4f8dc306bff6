package biz

import (
	"context"
	"math"
	"time"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

const (
	// DefaultRecentLimit /metrics/recent 的默认条数。
	DefaultRecentLimit = 10
	// DefaultDataLimit /data 的默认条数。
	DefaultDataLimit = 5
	// MaxLimit 列表接口的最大条数。
	MaxLimit = 100

	// summaryWindow 汇总指标取最新时间戳前的这段时间。
	summaryWindow = 5 * time.Second
)

// MeasurementService 提供测量数据的汇总、查询与写入。
type MeasurementService struct {
	measurements store.MeasurementStore
	now          func() time.Time
}

// NewMeasurementService 创建测量数据服务。
func NewMeasurementService(measurements store.MeasurementStore) *MeasurementService {
	return &MeasurementService{measurements: measurements, now: time.Now}
}

// Summary 汇总最新时间戳前 5 秒内的读数。没有数据时返回零值与当前时间。
func (s *MeasurementService) Summary(ctx context.Context) (*model.MetricsSummary, error) {
	latest, ok, err := s.measurements.LatestTimestamp(ctx)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	if !ok {
		return &model.MetricsSummary{Timestamp: s.now().UTC()}, nil
	}

	stats, err := s.measurements.WindowStats(ctx, latest.Add(-summaryWindow))
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return &model.MetricsSummary{
		TotalDevices:   int(stats.Clusters),
		TotalPower:     round2(stats.AvgPower),
		AvgPowerFactor: round2(stats.AvgPowerFactor),
		AvgTHD:         round2(stats.AvgTHD),
		Timestamp:      latest,
	}, nil
}

// Recent 返回最新的 limit 条记录，limit 取值 1..100。
func (s *MeasurementService) Recent(ctx context.Context, limit int) ([]*model.ElectricalData, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	data, err := s.measurements.Recent(ctx, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return data, nil
}

// ByCluster 返回某个集群最新的 limit 条记录。
func (s *MeasurementService) ByCluster(ctx context.Context, cluster, limit int) ([]*model.ElectricalData, error) {
	if cluster < 0 {
		return nil, errors.ErrInvalidCluster
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}
	data, err := s.measurements.ByCluster(ctx, cluster, limit)
	if err != nil {
		return nil, errors.ErrDatabase.WithCause(err)
	}
	return data, nil
}

// Create 写入一条测量记录，未给出时间戳时使用当前时间。
func (s *MeasurementService) Create(ctx context.Context, data *model.ElectricalData) error {
	if data.Timestamp.IsZero() {
		data.Timestamp = s.now()
	}
	if err := s.measurements.Create(ctx, data); err != nil {
		return errors.ErrDatabase.WithCause(err)
	}
	return nil
}

func checkLimit(limit int) error {
	if limit < 1 || limit > MaxLimit {
		return errors.ErrInvalidLimit
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
