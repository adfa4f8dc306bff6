package biz

import (
	"context"
	"time"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
)

// DefaultDeviceWindow 设备聚合的默认回看窗口。
const DefaultDeviceWindow = 24 * time.Hour

// DeviceAggregator 将窗口内的原始测量聚合为设备摘要。
type DeviceAggregator struct {
	measurements store.MeasurementStore
	window       time.Duration
}

// NewDeviceAggregator 创建设备聚合器，window <= 0 时使用默认窗口。
func NewDeviceAggregator(measurements store.MeasurementStore, window time.Duration) *DeviceAggregator {
	if window <= 0 {
		window = DefaultDeviceWindow
	}
	return &DeviceAggregator{measurements: measurements, window: window}
}

// Aggregate 返回最近一次时间戳往前 window 内的设备摘要。
// 没有数据时返回空切片，不视为错误。
func (a *DeviceAggregator) Aggregate(ctx context.Context) ([]model.DeviceSummary, error) {
	devices, err := a.measurements.DeviceSummaries(ctx, a.window)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []model.DeviceSummary{}
	}
	return devices, nil
}

// Window 返回聚合窗口。
func (a *DeviceAggregator) Window() time.Duration {
	return a.window
}
