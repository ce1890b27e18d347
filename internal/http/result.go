package httpapi

// Result 所有 JSON 接口共用的响应信封
// 监控台按 code 判断业务结果：2000 成功，-1 失败。
// HTTP 状态码只表达传输层问题，场景执行失败仍返回 200，
// 失败原因放在 message（SimulatorResult 同时原样放入 result）。
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

// Ok 成功信封
func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

// Fail 失败信封，result 恒为 null
func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
