// Package pool wraps ants worker pools used for bulk ingestion and
// background maintenance.
package pool

import "errors"

// 池相关错误定义
var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("池已关闭")

	// ErrPoolOverload 池已满
	ErrPoolOverload = errors.New("池已满")
)
