package domain

import (
	"errors"
	"fmt"
)

// ConflictError 业务冲突：已有进行中的订单、主车辆并发写入等。
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// NotFoundError 资源不存在：技师/车辆/订单 ID 无法解析。
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	if e.ID != "" {
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// InvalidTransitionError 状态机非法流转（含对终态订单的任何变更）。
type InvalidTransitionError struct {
	From string
	To   string
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking status transition: %s -> %s", e.From, e.To)
}

// ConnectivityError 基础设施不可达：变更通道订阅 / 存储写入失败。
// 对已提交的状态变更而言，发布失败只会转化为订阅侧的 resync 信号。
type ConnectivityError struct {
	Op  string
	Err error
}

func (e ConnectivityError) Error() string {
	if e.Op == "" {
		return "connectivity error"
	}
	return fmt.Sprintf("connectivity error on %s: %v", e.Op, e.Err)
}

func (e ConnectivityError) Unwrap() error { return e.Err }

// ValidationError 入参校验失败（仅在传输层边界产生）。
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target InvalidTransitionError
	return errors.As(err, &target)
}

func IsConnectivity(err error) bool {
	var target ConnectivityError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}
