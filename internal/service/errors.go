package service

import "errors"

// 请求校验类错误：在任何存储调用之前产生，调用方不应重试
var (
	// ErrInvalidPath 动态属性路径非法：多段路径（含 "."）或必须提供而缺失
	ErrInvalidPath = errors.New("invalid path")
	// ErrUnknownField 开启校验的合并引用了目录中不存在的 key
	ErrUnknownField = errors.New("unknown field")
	// ErrValidation 其余请求校验失败（缺失租户、未注册的实体/列、格式错误的请求体）
	ErrValidation = errors.New("validation failed")
)
