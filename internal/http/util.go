package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
)

// writeJSON 写出 JSON 响应
// 头已经发出后 Encode 失败无法补救，错误直接忽略。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBodyJSON 读取并解析请求体，maxBytes 之外的内容被截断
// 空请求体按零值处理：场景接口允许完全省略 body（随机选择目标设备）。
func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}
