package biz

import (
	"math"
	"strings"

	"github.com/kart-io/nilm-chat/internal/model"
)

// NoDevicesConfidence 无设备时的固定置信度。
const NoDevicesConfidence = 0.9

// Confidence 按回复中提到的设备名比例给出启发式置信度。
// 匹配为大小写不敏感的子串匹配，不考虑词边界；空名称不计为提及。
func Confidence(response string, devices []model.DeviceSummary) float64 {
	if len(devices) == 0 {
		return NoDevicesConfidence
	}

	text := strings.ToLower(response)
	mentioned := 0
	for _, d := range devices {
		if d.Name != "" && strings.Contains(text, strings.ToLower(d.Name)) {
			mentioned++
		}
	}

	return math.Min(1.0, float64(mentioned)/float64(len(devices))*0.8+0.2)
}
