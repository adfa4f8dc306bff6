package llm

import (
	"fmt"
	"strings"
)

// Device 推理设备偏好，由各供应商映射到其运行时参数。
type Device string

const (
	// DeviceAuto 由供应商运行时自行决定。
	DeviceAuto Device = "auto"
	// DeviceCPU 强制 CPU 推理。
	DeviceCPU Device = "cpu"
	// DeviceCUDA 使用 GPU 推理。
	DeviceCUDA Device = "cuda"
)

// ParseDevice 解析设备配置，空值视为 auto，gpu 是 cuda 的别名。
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DeviceAuto):
		return DeviceAuto, nil
	case string(DeviceCPU):
		return DeviceCPU, nil
	case string(DeviceCUDA), "gpu":
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("unsupported device %q (auto, cpu, cuda)", s)
	}
}

// DeviceFromConfig 从供应商配置 map 读取 device 键。
func DeviceFromConfig(configMap map[string]any) (Device, error) {
	v, _ := configMap["device"].(string)
	return ParseDevice(v)
}

// RequireAutoDevice 供托管类供应商使用：设备由服务端决定，只接受 auto。
func RequireAutoDevice(provider string, configMap map[string]any) error {
	d, err := DeviceFromConfig(configMap)
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	if d != DeviceAuto {
		return fmt.Errorf("%s: device %q cannot be honoured by a hosted provider, use auto", provider, d)
	}
	return nil
}
