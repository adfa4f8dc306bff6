package importer

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nilm-chat/internal/nilm/store"
	importopts "github.com/kart-io/nilm-chat/pkg/options/importer"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

func setupImporter(t *testing.T, batchSize, workers int) (*Importer, store.Factory) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := store.NewFactory(db)
	require.NoError(t, f.AutoMigrate(context.Background()))

	im, err := New(f.Measurements(), &importopts.Options{BatchSize: batchSize, Workers: workers}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = im.Close() })
	return im, f
}

const header = "DateTime,Voltage,Current,Real Power,Reactive Power,Apparent Power,Power Factor,Frequency,THD,Real Power (Watt),Cluster,Device_State\n"

func TestImportCSV(t *testing.T) {
	im, f := setupImporter(t, 2, 2)

	input := header +
		"2024-03-01 12:00:00,230,0.5,0.12,0.05,0.13,0.92,50.0,4.2,120.5,1, Refrigerator \n" +
		"2024-03-01 12:00:05,231,0.6,0.13,0.05,0.14,1.4,61.0,4.0,121.0,1,Refrigerator\n" +
		"2024-03-01 12:00:10,229,,0.13,0.05,0.14,0.9,50.0,4.0,121.0,1,Refrigerator\n" +
		"2024-03-01 12:00:15,229,0.4,nan,0.05,0.14,0.9,50.0,4.0,121.0,2,Lighting\n" +
		"2024-03-01 12:00:20,229,0.4,0.1,inf,0.14,0.9,50.0,4.0,121.0,2,Lighting\n" +
		"not-a-date,229,0.4,0.1,0.05,0.14,0.9,50.0,4.0,121.0,2,Lighting\n" +
		"2024-03-01 12:00:22,229,0.4,0.1,0.05,0.14,0.9,50.0,4.0,121.0,2,  \n" +
		"2024-03-01T12:00:25Z,228,0.3,0.06,0.02,0.07,-1.5,40,12,60,2.0,Lighting\n"

	report, err := im.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 8, report.Read)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 5, report.Skipped)
	assert.Zero(t, report.Failed)

	count, err := f.Measurements().Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	rows, err := f.Measurements().Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Recent 按时间倒序
	last, clipped, first := rows[0], rows[1], rows[2]
	assert.Equal(t, "Refrigerator", first.DeviceState)
	assert.InDelta(t, 120.5, first.RealPowerWatt, 1e-9)

	assert.InDelta(t, 1.0, clipped.PowerFactor, 1e-9)
	require.NotNil(t, clipped.Frequency)
	assert.InDelta(t, 55.0, *clipped.Frequency, 1e-9)

	assert.Equal(t, 2, last.Cluster)
	assert.InDelta(t, -1.0, last.PowerFactor, 1e-9)
	assert.InDelta(t, 45.0, *last.Frequency, 1e-9)
}

func TestImportAcceptsWattAlias(t *testing.T) {
	im, f := setupImporter(t, 10, 1)

	input := strings.Replace(header, "Real Power (Watt)", "Real Power (W)", 1) +
		"2024-03-01 12:00:00,230,0.5,0.12,0.05,0.13,0.92,50.0,4.2,120.5,1,Refrigerator\n"

	report, err := im.Import(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	rows, err := f.Measurements().Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 120.5, rows[0].RealPowerWatt, 1e-9)
}

func TestImportRejectsMissingColumns(t *testing.T) {
	im, _ := setupImporter(t, 10, 1)

	_, err := im.Import(context.Background(), strings.NewReader("DateTime,Voltage\n2024-03-01 12:00:00,230\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidCSVInput))
	assert.Contains(t, err.Error(), "Cluster")

	_, err = im.Import(context.Background(), strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrInvalidCSVInput))
}

func TestImportFileNotFound(t *testing.T) {
	im, _ := setupImporter(t, 10, 1)

	_, err := im.ImportFile(context.Background(), "/nonexistent/data.csv")
	assert.True(t, errors.Is(err, errors.ErrInvalidCSVInput))
}

func TestGenerateIsDeterministic(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := Generate(50, 42, start)
	b := Generate(50, 42, start)
	c := Generate(50, 7, start)

	require.Len(t, a, 50)
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
	assert.NotEqual(t, a[0].RealPowerWatt, c[0].RealPowerWatt)
}

func TestGenerateRespectsClusterRanges(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := Generate(500, 1, start)

	seen := make(map[int]int)
	for i, r := range rows {
		require.GreaterOrEqual(t, r.Cluster, 0)
		require.Less(t, r.Cluster, len(seedClusters))
		p := seedClusters[r.Cluster]
		seen[r.Cluster]++

		assert.Equal(t, p.name, r.DeviceState)
		assert.True(t, r.RealPowerWatt >= p.power.lo && r.RealPowerWatt <= p.power.hi)
		assert.True(t, r.THD >= p.thd.lo && r.THD <= p.thd.hi)
		assert.True(t, r.PowerFactor >= p.pf.lo && r.PowerFactor <= p.pf.hi)
		assert.True(t, r.Voltage >= 215 && r.Voltage <= 235)
		assert.InDelta(t, 50, *r.Frequency, 0.2)

		// 派生量关系
		assert.InDelta(t, r.RealPowerWatt/1000, r.RealPower, 1e-12)
		assert.InDelta(t, r.RealPower/r.PowerFactor, r.ApparentPower, 1e-12)
		assert.InDelta(t, r.ApparentPower*1000/r.Voltage, r.Current, 1e-9)
		want := math.Sqrt(math.Max(0, r.ApparentPower*r.ApparentPower-r.RealPower*r.RealPower))
		assert.InDelta(t, want, r.ReactivePower, 1e-9)

		offset := r.Timestamp.Sub(start.Add(time.Duration(i) * seedInterval))
		assert.True(t, offset >= -2*time.Second && offset <= 2*time.Second, "offset %s", offset)
	}
	assert.Len(t, seen, len(seedClusters), "every cluster appears in 500 draws")
}

func TestSeedWritesRows(t *testing.T) {
	im, f := setupImporter(t, 7, 3)

	report, err := im.Seed(context.Background(), 30, 99)
	require.NoError(t, err)
	assert.Equal(t, 30, report.Read)
	assert.Equal(t, 30, report.Imported)

	count, err := f.Measurements().Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 30, count)
}

func TestImportCancelledContext(t *testing.T) {
	im, _ := setupImporter(t, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := header + "2024-03-01 12:00:00,230,0.5,0.12,0.05,0.13,0.92,50.0,4.2,120.5,1,Refrigerator\n"
	_, err := im.Import(ctx, strings.NewReader(input))
	assert.ErrorIs(t, err, context.Canceled)
}
