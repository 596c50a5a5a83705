package ingest

import (
	"fmt"
	"net/http"
	"runtime"
)

// Error is an error with an HTTP status. Internal errors are logged in
// full but reach the client only as their status text.
type Error struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	FuncName string `json:"-"`
	FileName string `json:"-"`
	Internal bool   `json:"-"`
}

// NewError returns an Error the client may see.
func NewError(code int, err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     code,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
	}
}

// NewInternalError returns a 500 whose message is hidden from the client.
func NewInternalError(err error) *Error {
	pc, filename, line, _ := runtime.Caller(1)

	return &Error{
		Code:     http.StatusInternalServerError,
		Message:  err.Error(),
		FuncName: runtime.FuncForPC(pc).Name(),
		FileName: fmt.Sprintf("%s:%d", filename, line),
		Internal: true,
	}
}

func (e *Error) Error() string {
	return e.Message
}
