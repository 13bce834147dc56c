package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// maxBodyBytes 限制 JSON 请求体大小。
const maxBodyBytes = 1 << 20

// ErrorBody 是所有失败响应的统一形状：{"error": "..."}。
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondJSON 写出状态码和 JSON 负载；编码失败时头已发出，只能记日志。
func RespondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[http] encode %d response: %v", status, err)
	}
}

// RespondError writes an ErrorBody with the given status.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// DecodeJSON reads a size-limited JSON body into dst. An empty body yields io.EOF.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}
