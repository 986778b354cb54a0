package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误分类
type Kind string

const (
	KindUnknown    Kind = ""
	KindTransport  Kind = "transport"   // 网络不可达、超时
	KindHTTPStatus Kind = "http_status" // 非 2xx 响应
	KindDecode     Kind = "decode"      // 响应体无法解析
	KindAPI        Kind = "api"         // 2xx 但 success=false
	KindValidation Kind = "validation"  // 客户端校验失败，未发出请求
)

// 错误码按分类分段
const (
	// 1xxx 传输层
	CodeTransport = 1000
	CodeTimeout   = 1001
	CodeCanceled  = 1002

	// 2xxx HTTP 状态
	CodeHTTPStatus     = 2000
	CodeUnauthorized   = 2401 // 未携带令牌的 401，例如登录失败
	CodeSessionExpired = 2440 // 携带令牌的 401
	CodeForbidden      = 2403
	CodeNotFound       = 2404
	CodeConflict       = 2409
	CodeUnprocessable  = 2422
	CodeServerError    = 2500

	// 3xxx 解码
	CodeDecode = 3000

	// 4xxx 业务
	CodeAPI = 4000

	// 5xxx 校验
	CodeValidation          = 5000
	CodeNotAuthenticated    = 5001
	CodeLocationUnavailable = 5002
	CodeAlertNotDeletable   = 5003
	CodeAlertCooldown       = 5004
	CodeHomeAndWork         = 5005
)

func kindOfCode(code int) Kind {
	switch {
	case code >= 1000 && code < 2000:
		return KindTransport
	case code >= 2000 && code < 3000:
		return KindHTTPStatus
	case code >= 3000 && code < 4000:
		return KindDecode
	case code >= 4000 && code < 5000:
		return KindAPI
	case code >= 5000 && code < 6000:
		return KindValidation
	}
	return KindUnknown
}

// Transport wraps a network failure
func Transport(err error) *Error {
	code := CodeTransport
	msg := "network request failed"
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code, msg = CodeTimeout, "request timed out"
	case stderrors.Is(err, context.Canceled):
		code, msg = CodeCanceled, "request canceled"
	}
	return &Error{Kind: KindTransport, Code: code, Message: msg, Err: err, Stack: captureStack()}
}

// Timeout reports a request that exceeded its deadline
func Timeout(err error) *Error {
	return &Error{Kind: KindTransport, Code: CodeTimeout, Message: "request timed out", Err: err, Stack: captureStack()}
}

// HTTPStatus reports a non-2xx response. message is the server supplied text, if any.
func HTTPStatus(status int, message string) *Error {
	code := CodeHTTPStatus
	switch status {
	case http.StatusUnauthorized:
		code = CodeUnauthorized
	case http.StatusForbidden:
		code = CodeForbidden
	case http.StatusNotFound:
		code = CodeNotFound
	case http.StatusConflict:
		code = CodeConflict
	case http.StatusUnprocessableEntity:
		code = CodeUnprocessable
	default:
		if status >= 500 {
			code = CodeServerError
		}
	}
	if message == "" {
		message = fmt.Sprintf("server responded with status %d", status)
	}
	return &Error{Kind: KindHTTPStatus, Code: code, Status: status, Message: message, Stack: captureStack()}
}

// SessionExpired reports a 401 on a request that carried a bearer token
func SessionExpired(message string) *Error {
	e := HTTPStatus(http.StatusUnauthorized, message)
	e.Code = CodeSessionExpired
	return e
}

// Decode wraps a malformed payload error
func Decode(err error) *Error {
	return &Error{Kind: KindDecode, Code: CodeDecode, Message: "invalid response from server", Err: err, Stack: captureStack()}
}

// API reports a 2xx response with success=false
func API(message string) *Error {
	if message == "" {
		message = "request was rejected"
	}
	return &Error{Kind: KindAPI, Code: CodeAPI, Message: message, Stack: captureStack()}
}

// Validation reports a client-side precondition failure
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: message, Stack: captureStack()}
}

// Validationf is Validation with a formatted message
func Validationf(code int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack()}
}

// KindOf returns the classification of err
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err belongs to kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return 0
}

// IsUnauthorized reports a 401 (session expired)
func IsUnauthorized(err error) bool {
	return IsKind(err, KindHTTPStatus) && StatusOf(err) == http.StatusUnauthorized
}

// IsNotFound reports a 404
func IsNotFound(err error) bool {
	return IsKind(err, KindHTTPStatus) && StatusOf(err) == http.StatusNotFound
}
