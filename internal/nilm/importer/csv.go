package importer

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// CSV column names.
const (
	colDateTime      = "DateTime"
	colVoltage       = "Voltage"
	colCurrent       = "Current"
	colRealPower     = "Real Power"
	colReactivePower = "Reactive Power"
	colApparentPower = "Apparent Power"
	colPowerFactor   = "Power Factor"
	colFrequency     = "Frequency"
	colTHD           = "THD"
	colRealPowerWatt = "Real Power (Watt)"
	colCluster       = "Cluster"
	colDeviceState   = "Device_State"
)

// realPowerWattAliases are accepted in place of "Real Power (Watt)".
var realPowerWattAliases = []string{colRealPowerWatt, "Real Power (W)"}

var requiredColumns = []string{
	colDateTime, colVoltage, colCurrent, colRealPower, colReactivePower,
	colApparentPower, colPowerFactor, colFrequency, colTHD, colRealPowerWatt,
	colCluster, colDeviceState,
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

var errSkipRow = stderrors.New("skip row")

// ImportFile imports the CSV file at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	f, err := os.Open(strings.Trim(strings.TrimSpace(path), `"`))
	if err != nil {
		return nil, errors.ErrInvalidCSVInput.WithMessagef("cannot open %s", path).WithCause(err)
	}
	defer f.Close()

	logger.Infow("Importing measurements", "file", path)
	return im.Import(ctx, f)
}

// Import reads measurements from r. Rows with a missing or non-finite numeric
// field are skipped; power factor and frequency are clipped to their
// physical ranges.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.ErrInvalidCSVInput.WithMessage("cannot read CSV header").WithCause(err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	w := im.newBatchWriter(ctx)
	var addErr error
	for addErr == nil {
		if err := ctx.Err(); err != nil {
			addErr = err
			break
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		report.Read++
		if err != nil {
			// 列数不一致等格式问题按行跳过
			report.Skipped++
			continue
		}

		row, err := cols.parse(record)
		if err != nil {
			report.Skipped++
			continue
		}
		addErr = w.Add(row)
	}

	report.Imported, report.Failed, err = w.Close()
	im.finish(report)
	if addErr != nil {
		return report, addErr
	}
	return report, err
}

type columns map[string]int

func indexColumns(header []string) (columns, error) {
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}

	for _, alias := range realPowerWattAliases {
		if i, ok := cols[alias]; ok {
			cols[colRealPowerWatt] = i
			break
		}
	}

	var missing []string
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.ErrInvalidCSVInput.WithMessagef("missing columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) field(record []string, name string) string {
	i := c[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columns) float(record []string, name string) (float64, error) {
	raw := c.field(record, name)
	if raw == "" {
		return 0, errSkipRow
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errSkipRow
	}
	return v, nil
}

func (c columns) parse(record []string) (*model.ElectricalData, error) {
	ts, err := parseTime(c.field(record, colDateTime))
	if err != nil {
		return nil, err
	}

	var vals [9]float64
	for i, name := range []string{
		colVoltage, colCurrent, colRealPower, colReactivePower, colApparentPower,
		colPowerFactor, colFrequency, colTHD, colRealPowerWatt,
	} {
		if vals[i], err = c.float(record, name); err != nil {
			return nil, err
		}
	}

	cluster, err := parseCluster(c.field(record, colCluster))
	if err != nil {
		return nil, err
	}

	// 没有设备名的行无法参与按设备聚合
	state := c.field(record, colDeviceState)
	if state == "" {
		return nil, fmt.Errorf("%w: empty device state", errSkipRow)
	}

	frequency := clip(vals[6], 45, 55)
	return &model.ElectricalData{
		Timestamp:     ts,
		Voltage:       vals[0],
		Current:       vals[1],
		RealPower:     vals[2],
		ReactivePower: vals[3],
		ApparentPower: vals[4],
		PowerFactor:   clip(vals[5], -1, 1),
		Frequency:     &frequency,
		THD:           vals[7],
		RealPowerWatt: vals[8],
		Cluster:       cluster,
		DeviceState:   state,
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errSkipRow
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errSkipRow
}

// parseCluster accepts integral values written as floats, e.g. "3.0".
func parseCluster(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: cluster %q", errSkipRow, raw)
	}
	return int(f), nil
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
