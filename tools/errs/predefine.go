package errs

import "net/http"

const (
	ServerInternalError = 500

	ParamsError  = 40000
	NotLoginErr  = 40100
	TokenInvalid = 40101
	TokenExpired = 40102
	NoAuthErr    = 40300
	NotFoundErr  = 40400
	ClosedErr    = 50300
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ParamsError, "ArgsError")
	ErrNotLogin       = NewCodeError(NotLoginErr, "NotLogin")
	ErrTokenInvalid   = NewCodeError(TokenInvalid, "TokenInvalid")
	ErrTokenExpired   = NewCodeError(TokenExpired, "TokenExpired")
	ErrNoPermission   = NewCodeError(NoAuthErr, "NoPermission")
	ErrRecordNotFound = NewCodeError(NotFoundErr, "RecordNotFound")
	ErrClosed         = NewCodeError(ClosedErr, "ServiceClosed")
)

// HTTPStatus 错误码 -> HTTP 状态（握手阶段使用）
func HTTPStatus(err error) int {
	ce, ok := AsCode(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch ce.Code {
	case ParamsError:
		return http.StatusBadRequest
	case NotLoginErr, TokenInvalid, TokenExpired:
		return http.StatusUnauthorized
	case NoAuthErr:
		return http.StatusForbidden
	case NotFoundErr:
		return http.StatusNotFound
	case ClosedErr:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
