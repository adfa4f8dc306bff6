package biz

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kart-io/nilm-chat/internal/model"
)

var errNoDevices = errors.New("no devices to format")

// FormatContext 将设备摘要渲染为设备列表和功率汇总两段文本。
// devices 不能为空。
func FormatContext(devices []model.DeviceSummary) (listing, summary string, err error) {
	if len(devices) == 0 {
		return "", "", errNoDevices
	}

	lines := make([]string, 0, len(devices))
	total := 0.0
	peak := devices[0]
	for _, d := range devices {
		lines = append(lines, fmt.Sprintf("- %s (Cluster %d): %sW, THD: %.1f%%",
			d.Name, d.ClusterID, formatPower(d.AvgPower), d.AvgTHD))
		total += d.AvgPower
		if d.AvgPower > peak.AvgPower {
			peak = d
		}
	}

	listing = strings.Join(lines, "\n")
	summary = fmt.Sprintf("Total power: %.1fW\nHighest consumer: %s (%sW)",
		total, peak.Name, formatPower(peak.AvgPower))
	return listing, summary, nil
}

// formatPower 以最短表示输出浮点数，整数值保留一位小数（120.5, 100.0）。
// 指数形式的范围与十进制习惯一致：绝对值 >= 1e16 或 < 1e-4。
func formatPower(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
