package auth

import "errors"

var (
	// ErrInvalidInput 注册/登录输入不完整或非法。
	ErrInvalidInput = errors.New("invalid input")
	// ErrUserExists 邮箱已被注册。
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials 邮箱或密码错误。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserDisabled 用户处于禁用状态。
	ErrUserDisabled = errors.New("user disabled")
	// ErrTokenInvalid 令牌无效或已过期。
	ErrTokenInvalid = errors.New("token invalid")
)
