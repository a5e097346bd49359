package resolve

import "errors"

var (
	// ErrTypeMismatch 表示过滤值与字段声明的类型不兼容。
	ErrTypeMismatch = errors.New("resolve: filter value type mismatch")
	// ErrScopeRequired 表示该类别的解析缺少 project 或 workspace 范围。
	ErrScopeRequired = errors.New("resolve: project or workspace scope required")
)
