package response

import "fmt"

// AppError 接口错误：Code/Message 返回给调用方，Err 只进日志
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ServerSide 是否为服务端错误（5xx 类业务码）
func (e *AppError) ServerSide() bool {
	return e.Code >= CodeInternal
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
