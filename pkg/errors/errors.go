package errors

import (
	stdErrors "errors"
	"fmt"
)

// 错误码
const (
	CodeSuccess         = 200
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeGone            = 410 // 邀请已过期
	CodeValidationError = 422
	CodeNeedsSetup      = 428 // 尚未加入任何组织
	CodeInternalError   = 500
	CodeDatabaseError   = 501
	CodeAuthError       = 502
	CodeUnavailable     = 503 // 暂时不可用，可重试
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码与消息比较，Wrap 之后依然可以用 errors.Is 匹配预定义错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New 创建新错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithCause 以预定义错误为模板附加底层原因
func WithCause(base *AppError, err error) *AppError {
	return Wrap(base.Code, base.Message, err)
}

// CodeOf 获取错误码，非 AppError 视为内部错误
func CodeOf(err error) int {
	if err == nil {
		return CodeSuccess
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternalError
}

// IsRetryable 是否为可重试的暂时性错误
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeUnavailable
}

// 预定义错误
var (
	ErrBadRequest      = New(CodeBadRequest, "请求参数错误")
	ErrUnauthorized    = New(CodeUnauthorized, "未授权")
	ErrForbidden       = New(CodeForbidden, "禁止访问")
	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrConflict        = New(CodeConflict, "资源冲突")
	ErrInternalError   = New(CodeInternalError, "内部服务器错误")
	ErrDatabaseError   = New(CodeDatabaseError, "数据库错误")
	ErrAuthError       = New(CodeAuthError, "认证失败")
	ErrValidationError = New(CodeValidationError, "数据验证失败")

	ErrInvalidParams        = New(CodeBadRequest, "请求参数错误")
	ErrInvalidCredentials   = New(CodeAuthError, "用户名或密码错误")
	ErrLDAPConnectionFailed = New(CodeAuthError, "LDAP连接失败")
	ErrUserNotFound         = New(CodeNotFound, "用户不存在")
	ErrUserDisabled         = New(CodeForbidden, "用户已禁用")
	ErrInvalidToken         = New(CodeUnauthorized, "无效的Token")
	ErrTokenExpired         = New(CodeUnauthorized, "Token已过期")
	ErrRecordNotFound       = New(CodeNotFound, "记录不存在")
	ErrRecordExists         = New(CodeConflict, "记录已存在")

	// 访问范围
	ErrAccessDenied     = New(CodeForbidden, "访问受限")
	ErrNeedsOrgSetup    = New(CodeNeedsSetup, "尚未加入任何组织，请先创建组织")
	ErrScopeUnavailable = New(CodeUnavailable, "组织成员关系暂时无法读取，请重试")
	ErrStaleReference   = New(CodeNotFound, "记录已被删除或移动，请刷新")
	ErrTransient        = New(CodeUnavailable, "服务暂时不可用，请重试")

	// 邀请
	ErrInviteNotFound      = New(CodeNotFound, "邀请不存在或已撤销")
	ErrInviteAlreadyUsed   = New(CodeConflict, "邀请已被接受")
	ErrInviteExpired       = New(CodeGone, "邀请已过期")
	ErrInviteEmailMismatch = New(CodeForbidden, "当前账号邮箱与邀请邮箱不一致")
	ErrInvitePendingExists = New(CodeConflict, "该邮箱已有待接受的邀请")
)
