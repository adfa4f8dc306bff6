package errors

import "google.golang.org/grpc/codes"

// NILM 服务错误码: 50 (业务服务范围 20-79)
// 错误码格式: AABBCCC

var (
	// 请求参数错误 (类别 01)
	ErrEmptyMessage   = Register(New(MakeCode(ServiceNILM, CategoryRequest, 1), 400, codes.InvalidArgument, "Message must not be empty", "消息不能为空"))
	ErrInvalidLimit   = Register(New(MakeCode(ServiceNILM, CategoryRequest, 2), 400, codes.InvalidArgument, "Limit must be between 1 and 100", "limit 必须在 1 到 100 之间"))
	ErrInvalidCluster = Register(New(MakeCode(ServiceNILM, CategoryRequest, 3), 400, codes.InvalidArgument, "Invalid cluster id", "集群 ID 无效"))

	// 资源错误 (类别 04)
	ErrSessionNotFound = Register(New(MakeCode(ServiceNILM, CategoryResource, 1), 404, codes.NotFound, "No chat history found for session", "会话没有聊天记录"))
	ErrDeviceNotFound  = Register(New(MakeCode(ServiceNILM, CategoryResource, 2), 404, codes.NotFound, "Device not found", "设备不存在"))

	// 内部错误 (类别 07)
	ErrDeviceQuery     = Register(New(MakeCode(ServiceNILM, CategoryInternal, 1), 500, codes.Internal, "Failed to fetch devices", "获取设备失败"))
	ErrGeneration      = Register(New(MakeCode(ServiceNILM, CategoryInternal, 2), 500, codes.Internal, "Response generation failed", "回复生成失败"))
	ErrImportFailed    = Register(New(MakeCode(ServiceNILM, CategoryInternal, 3), 500, codes.Internal, "Measurement import failed", "测量数据导入失败"))
	ErrInvalidCSVInput = Register(New(MakeCode(ServiceNILM, CategoryRequest, 4), 400, codes.InvalidArgument, "Invalid CSV input", "CSV 输入无效"))

	// 模型错误 (类别 10)
	ErrModelUnavailable = Register(New(MakeCode(ServiceNILM, CategoryNetwork, 2), 503, codes.Unavailable, "Language model unavailable", "语言模型不可用"))

	// LLM 供应商错误
	ErrProviderNotFound = Register(New(MakeCode(ServiceLLM, CategoryConfig, 1), 500, codes.FailedPrecondition, "Unknown language model provider", "未知的语言模型供应商"))
	ErrProviderRequest  = Register(New(MakeCode(ServiceLLM, CategoryNetwork, 1), 502, codes.Unavailable, "Language model provider request failed", "语言模型供应商请求失败"))
)
