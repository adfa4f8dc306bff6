package store

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kart-io/nilm-chat/internal/model"
)

func setupTestStore(t *testing.T) Factory {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := NewFactory(db)
	require.NoError(t, f.AutoMigrate(context.Background()))
	return f
}

func reading(ts time.Time, cluster int, state string, watt, thd float64) *model.ElectricalData {
	return &model.ElectricalData{
		Timestamp:     ts,
		Voltage:       230,
		Current:       watt / 230,
		RealPower:     watt / 1000,
		ApparentPower: watt / 1000,
		PowerFactor:   0.9,
		THD:           thd,
		RealPowerWatt: watt,
		Cluster:       cluster,
		DeviceState:   state,
	}
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDeviceSummariesEmptyTable(t *testing.T) {
	f := setupTestStore(t)

	_, ok, err := f.Measurements().LatestTimestamp(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := f.Measurements().DeviceSummaries(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeviceSummariesWindowAnchoredAtLatest(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, f.Measurements().CreateBatch(ctx, []*model.ElectricalData{
		reading(base.Add(-48*time.Hour), 1, "Refrigerator", 999, 9),
		reading(base.Add(-2*time.Hour), 1, "Refrigerator", 120, 4.1),
		reading(base.Add(-1*time.Hour), 1, "Refrigerator", 121, 4.3),
		reading(base, 5, "HVAC", 1500.333, 6.666),
		reading(base, 1, "Defrost", 300, 2),
	}))

	latest, ok, err := f.Measurements().LatestTimestamp(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, base.Equal(latest))

	got, err := f.Measurements().DeviceSummaries(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []model.DeviceSummary{
		{ClusterID: 1, Name: "Defrost", AvgPower: 300, AvgTHD: 2},
		{ClusterID: 1, Name: "Refrigerator", AvgPower: 120.5, AvgTHD: 4.2},
		{ClusterID: 5, Name: "HVAC", AvgPower: 1500.33, AvgTHD: 6.67},
	}, got)
}

func TestWindowStats(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	empty, err := f.Measurements().WindowStats(ctx, base)
	require.NoError(t, err)
	assert.Zero(t, empty.Records)
	assert.Zero(t, empty.AvgPower)

	require.NoError(t, f.Measurements().CreateBatch(ctx, []*model.ElectricalData{
		reading(base.Add(-10*time.Second), 0, "Background", 10, 1),
		reading(base.Add(-3*time.Second), 1, "Refrigerator", 100, 4),
		reading(base, 2, "Lighting", 50, 20),
	}))

	stats, err := f.Measurements().WindowStats(ctx, base.Add(-5*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Clusters)
	assert.EqualValues(t, 2, stats.Records)
	assert.InDelta(t, 75, stats.AvgPower, 1e-9)
	assert.InDelta(t, 0.9, stats.AvgPowerFactor, 1e-9)
	assert.InDelta(t, 12, stats.AvgTHD, 1e-9)
}

func TestRecentAndByCluster(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, f.Measurements().Create(ctx, reading(base.Add(time.Duration(i)*time.Second), i%2, "x", float64(i), 1)))
	}

	recent, err := f.Measurements().Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, 5.0, recent[0].RealPowerWatt)
	assert.Equal(t, 3.0, recent[2].RealPowerWatt)

	odd, err := f.Measurements().ByCluster(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, odd, 3)
	for _, r := range odd {
		assert.Equal(t, 1, r.Cluster)
	}

	n, err := f.Measurements().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
}

func TestClusterProfiles(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, f.Measurements().CreateBatch(ctx, []*model.ElectricalData{
		reading(base, 1, "Refrigerator", 100, 4),
		reading(base, 1, "Refrigerator", 120, 6),
		reading(base, 1, "Defrost", 300, 2),
		reading(base, 3, "", 40, 30),
	}))

	profiles, err := f.Measurements().ClusterProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, 1, profiles[0].Cluster)
	assert.Equal(t, "Refrigerator", profiles[0].DominantState)
	assert.InDelta(t, 173.333, profiles[0].AvgPower, 1e-3)
	assert.InDelta(t, 4, profiles[0].AvgTHD, 1e-9)

	assert.Equal(t, 3, profiles[1].Cluster)
	assert.Empty(t, profiles[1].DominantState)
}

func TestSessionsAndMessages(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	_, err := f.Sessions().Get(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, f.Sessions().Create(ctx, &model.ChatSession{SessionID: "s1"}))
	for i := 0; i < 5; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		require.NoError(t, f.Messages().Create(ctx, &model.ChatMessage{
			SessionID: "s1",
			Role:      role,
			Content:   string(rune('a' + i)),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recent, err := f.Messages().Recent(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"c", "d", "e"}, []string{recent[0].Content, recent[1].Content, recent[2].Content})

	all, err := f.Messages().List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "a", all[0].Content)

	at := base.Add(time.Hour)
	require.NoError(t, f.Sessions().Touch(ctx, "s1", at))
	s, err := f.Sessions().Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, at.Equal(s.LastActive))

	ok, err := f.Sessions().Delete(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	all, err = f.Messages().List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, all)

	ok, err = f.Sessions().Delete(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteIdle(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, f.Sessions().Create(ctx, &model.ChatSession{SessionID: "old", LastActive: base.Add(-48 * time.Hour)}))
	require.NoError(t, f.Sessions().Create(ctx, &model.ChatSession{SessionID: "new", LastActive: base}))
	require.NoError(t, f.Messages().Create(ctx, &model.ChatMessage{SessionID: "old", Role: model.RoleUser, Content: "x"}))
	require.NoError(t, f.Messages().Create(ctx, &model.ChatMessage{SessionID: "new", Role: model.RoleUser, Content: "y"}))

	n, err := f.Sessions().DeleteIdle(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = f.Sessions().Get(ctx, "old")
	assert.True(t, IsNotFound(err))
	msgs, err := f.Messages().List(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, msgs)
	msgs, err = f.Messages().List(ctx, "new")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestResetMeasurements(t *testing.T) {
	f := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, f.Measurements().CreateBatch(ctx, []*model.ElectricalData{
		reading(base, 1, "Refrigerator", 120, 4),
		reading(base, 2, "Lighting", 40, 3),
	}))
	require.NoError(t, f.Sessions().Create(ctx, &model.ChatSession{SessionID: "keep", LastActive: base}))

	require.NoError(t, f.ResetMeasurements(ctx))

	count, err := f.Measurements().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// 重建后的表可继续写入
	require.NoError(t, f.Measurements().Create(ctx, reading(base, 3, "HVAC", 1800, 6)))
	count, err = f.Measurements().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = f.Sessions().Get(ctx, "keep")
	require.NoError(t, err)
}
