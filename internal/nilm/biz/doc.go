// Package biz 实现 NILM 对话服务的业务逻辑：设备聚合、上下文格式化、提示构建、
// 模型加载、回复生成与置信度评分，以及会话、设备与指标查询。
package biz

// tracerName 业务层 span 使用的 tracer 名称。
const tracerName = "github.com/kart-io/nilm-chat/internal/nilm/biz"
