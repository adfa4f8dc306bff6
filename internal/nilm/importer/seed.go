package importer

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nilm-chat/internal/model"
)

// 合成数据的采样间隔与抖动。
const (
	seedInterval = 5 * time.Second
	seedJitter   = 2 // seconds, both directions
	seedSpan     = 24 * time.Hour
)

type span struct{ lo, hi float64 }

func (s span) draw(r *rand.Rand) float64 {
	return s.lo + r.Float64()*(s.hi-s.lo)
}

// clusterProfile 单个合成集群的取值范围。
type clusterProfile struct {
	name   string
	weight float64
	power  span // W
	thd    span // %
	pf     span
}

var seedClusters = []clusterProfile{
	{"Background", 0.20, span{5, 30}, span{1, 3}, span{0.95, 1.0}},
	{"Refrigerator", 0.15, span{80, 200}, span{3, 8}, span{0.65, 0.85}},
	{"Lighting", 0.15, span{10, 100}, span{10, 25}, span{0.50, 0.95}},
	{"Electronics", 0.15, span{30, 150}, span{15, 35}, span{0.60, 0.90}},
	{"Kitchen appliances", 0.10, span{500, 1500}, span{5, 15}, span{0.80, 0.95}},
	{"HVAC", 0.10, span{800, 2500}, span{2, 10}, span{0.70, 0.90}},
	{"Water heating", 0.10, span{1500, 4000}, span{1, 5}, span{0.90, 1.0}},
	{"Large appliances", 0.05, span{300, 2000}, span{5, 20}, span{0.60, 0.85}},
}

// Generate 生成 count 条合成测量，从 start 起每 5 秒一条（±2 秒抖动）。
// 相同的 seed 得到相同的数据。
func Generate(count int, seed uint64, start time.Time) []*model.ElectricalData {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([]*model.ElectricalData, 0, max(count, 0))
	for i := 0; i < count; i++ {
		cluster := pickCluster(r)
		p := seedClusters[cluster]

		watts := p.power.draw(r)
		voltage := span{215, 235}.draw(r)
		pf := p.pf.draw(r)
		thd := p.thd.draw(r)

		realKW := watts / 1000
		apparent := 0.0
		if pf > 0 {
			apparent = realKW / pf
		}
		reactive := 0.0
		if apparent > realKW {
			reactive = math.Sqrt(apparent*apparent - realKW*realKW)
		}
		current := apparent * 1000 / voltage
		frequency := 50 + span{-0.2, 0.2}.draw(r)
		jitter := time.Duration(r.IntN(2*seedJitter+1)-seedJitter) * time.Second

		rows = append(rows, &model.ElectricalData{
			Timestamp:     start.Add(time.Duration(i)*seedInterval + jitter).UTC(),
			Voltage:       voltage,
			Current:       current,
			RealPower:     realKW,
			ReactivePower: reactive,
			ApparentPower: apparent,
			PowerFactor:   pf,
			Frequency:     &frequency,
			THD:           thd,
			RealPowerWatt: watts,
			Cluster:       cluster,
			DeviceState:   p.name,
		})
	}
	return rows
}

func pickCluster(r *rand.Rand) int {
	x := r.Float64()
	for i, c := range seedClusters {
		if x < c.weight {
			return i
		}
		x -= c.weight
	}
	return len(seedClusters) - 1
}

// Seed 写入 count 条合成测量，时间从 24 小时前开始。
func (im *Importer) Seed(ctx context.Context, count int, seed uint64) (*Report, error) {
	rows := Generate(count, seed, time.Now().Add(-seedSpan))
	logger.Infow("Seeding measurements", "count", count, "seed", seed)

	report := &Report{Read: len(rows)}
	w := im.newBatchWriter(ctx)
	var addErr error
	for _, row := range rows {
		if addErr = w.Add(row); addErr != nil {
			break
		}
	}

	var err error
	report.Imported, report.Failed, err = w.Close()
	im.finish(report)
	if addErr != nil {
		return report, addErr
	}
	return report, err
}
