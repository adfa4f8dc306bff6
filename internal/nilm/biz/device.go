package biz

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// DefaultDeviceCacheTTL 设备列表缓存时间。
const DefaultDeviceCacheTTL = 30 * time.Second

const devicesCacheKey = "devices"

// DeviceCache 设备列表缓存，Redis 实现见 pkg/component/redis.JSONCache。
type DeviceCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

// DeviceService 按集群汇总全部历史记录，提供设备列表。
type DeviceService struct {
	measurements store.MeasurementStore
	cache        DeviceCache
	ttl          time.Duration
}

// NewDeviceService 创建设备服务。cache 可为 nil。
func NewDeviceService(measurements store.MeasurementStore, cache DeviceCache, ttl time.Duration) *DeviceService {
	if ttl <= 0 {
		ttl = DefaultDeviceCacheTTL
	}
	return &DeviceService{measurements: measurements, cache: cache, ttl: ttl}
}

// List 返回每个集群的设备信息，按集群升序。
func (s *DeviceService) List(ctx context.Context) ([]model.DeviceInfo, error) {
	if s.cache != nil {
		var cached []model.DeviceInfo
		hit, err := s.cache.Get(ctx, devicesCacheKey, &cached)
		if err != nil {
			ctxlog.GetLogger(ctx).Warnw("Device cache read failed", "error", err.Error())
		} else if hit {
			return cached, nil
		}
	}

	profiles, err := s.measurements.ClusterProfiles(ctx)
	if err != nil {
		return nil, errors.ErrDeviceQuery.WithCause(err)
	}

	devices := make([]model.DeviceInfo, 0, len(profiles))
	for _, p := range profiles {
		devices = append(devices, deviceInfo(p))
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, devicesCacheKey, devices, s.ttl); err != nil {
			ctxlog.GetLogger(ctx).Warnw("Device cache write failed", "error", err.Error())
		}
	}
	return devices, nil
}

// Get 返回单个集群的设备信息。
func (s *DeviceService) Get(ctx context.Context, cluster int) (*model.DeviceInfo, error) {
	devices, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if devices[i].Cluster == cluster {
			return &devices[i], nil
		}
	}
	return nil, errors.ErrDeviceNotFound.WithMessagef("Device for cluster %d not found", cluster)
}

func deviceInfo(p store.ClusterProfile) model.DeviceInfo {
	info := model.DeviceInfo{
		ID:           p.Cluster,
		Name:         p.DominantState,
		Cluster:      p.Cluster,
		TypicalPower: p.AvgPower,
		TypicalTHD:   p.AvgTHD,
		Description:  "Identified device",
	}
	if p.DominantState == "" {
		info.Name = fmt.Sprintf("Unknown Device (Cluster %d)", p.Cluster)
		info.Description = "Unidentified device"
	}
	return info
}
