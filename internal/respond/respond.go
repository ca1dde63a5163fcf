// Package respond writes the JSON envelope shared by every HTTP endpoint.
package respond

import (
	"encoding/json"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// Success codes.
const (
	CodeLoginOK   = "LS000"
	CodeRefreshOK = "RS000"
	CodeOK        = "S000"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	IsSuccess bool   `json:"isSuccess"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Result    any    `json:"result,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, code, message string, result any) {
	JSON(w, http.StatusOK, Envelope{IsSuccess: true, Code: code, Message: message, Result: result})
}

// Error writes the failure envelope for err and returns the descriptor used.
func Error(w http.ResponseWriter, err error) goSession.ErrorDescriptor {
	desc := goSession.DescribeError(err)
	JSON(w, desc.Status, Envelope{Code: desc.Code, Message: desc.Message})
	return desc
}
