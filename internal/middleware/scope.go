package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/zacharykka/prompt-lab/internal/domain"
)

const (
	// ScopeContextKey 在上下文中存储解析范围。
	ScopeContextKey = "resolve_scope"

	workspaceHeader = "X-Workspace-Id"
	projectHeader   = "X-Project-Id"
)

// ScopeInjector 从请求头或查询参数提取工作区/项目范围并注入上下文。
// 请求头优先于查询参数。
func ScopeInjector() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		scope := domain.Scope{
			WorkspaceID: ctx.GetHeader(workspaceHeader),
			ProjectID:   ctx.GetHeader(projectHeader),
		}
		if scope.WorkspaceID == "" {
			scope.WorkspaceID = ctx.Query("workspace_id")
		}
		if scope.ProjectID == "" {
			scope.ProjectID = ctx.Query("project_id")
		}

		ctx.Set(ScopeContextKey, scope)
		ctx.Next()
	}
}

// ScopeFrom 读取上下文中的解析范围，缺失时返回零值。
func ScopeFrom(ctx *gin.Context) domain.Scope {
	value, ok := ctx.Get(ScopeContextKey)
	if !ok {
		return domain.Scope{}
	}
	scope, ok := value.(domain.Scope)
	if !ok {
		return domain.Scope{}
	}
	return scope
}
