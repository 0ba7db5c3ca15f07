package errors

import "errors"

// ErrLockHeld 同一用户已有求解请求在执行
var ErrLockHeld = errors.New("已有求解请求正在执行，请稍后再试")

// ErrUpstreamUnavailable 外部求解服务不可达或响应格式异常
var ErrUpstreamUnavailable = errors.New("求解服务不可用")
