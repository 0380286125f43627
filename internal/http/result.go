package httpapi

// Result 统一响应包络
// - ok: 请求是否成功
// - data: 成功时的负载
// - error: 失败时的人类可读信息（不回显内部细节）
type Result[T any] struct {
	OK    bool   `json:"ok"`
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{OK: true, Data: data}
}

func Fail(message string) Result[any] {
	return Result[any]{OK: false, Error: message}
}
