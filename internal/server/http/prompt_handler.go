package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zacharykka/prompt-lab/internal/catalog"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/internal/middleware"
	"github.com/zacharykka/prompt-lab/internal/resolve"
	promptsvc "github.com/zacharykka/prompt-lab/internal/service/prompt"
	"github.com/zacharykka/prompt-lab/pkg/httpx"
)

// PromptHandler 暴露 Prompt 模板、版本与渲染相关的 HTTP 接口。
type PromptHandler struct {
	service *promptsvc.Service
	logger  *zap.Logger
}

// NewPromptHandler 构造 PromptHandler。
func NewPromptHandler(service *promptsvc.Service, logger *zap.Logger) *PromptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptHandler{service: service, logger: logger}
}

type createPromptRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description *string                 `json:"description"`
	Context     string                  `json:"context"`
	Content     []domain.ContentBlock   `json:"content"`
	Variables   []domain.PromptVariable `json:"variables"`
}

// Create 创建 Prompt。
func (h *PromptHandler) Create(ctx *gin.Context) {
	var req createPromptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	created, err := h.service.CreatePrompt(ctx.Request.Context(), promptsvc.CreatePromptInput{
		Title:       req.Title,
		Description: req.Description,
		Context:     req.Context,
		Content:     req.Content,
		Variables:   req.Variables,
		CreatedBy:   ctx.GetString(middleware.UserContextKey),
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondCreated(ctx, created)
}

// List 分页返回 Prompt 列表。
func (h *PromptHandler) List(ctx *gin.Context) {
	limit := parseIntQuery(ctx, "limit", 20)
	offset := parseIntQuery(ctx, "offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	prompts, total, err := h.service.ListPrompts(ctx.Request.Context(), promptsvc.ListPromptsOptions{
		Limit:          limit,
		Offset:         offset,
		Search:         ctx.Query("search"),
		IncludeDeleted: ctx.Query("include_deleted") == "true",
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	httpx.RespondOK(ctx, gin.H{
		"items":  prompts,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get 返回单个 Prompt。
func (h *PromptHandler) Get(ctx *gin.Context) {
	prompt, err := h.service.GetPrompt(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, prompt)
}

type updatePromptRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// Update 局部更新 Prompt 元数据。
func (h *PromptHandler) Update(ctx *gin.Context) {
	var req updatePromptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	updated, err := h.service.UpdatePrompt(ctx.Request.Context(), promptsvc.UpdatePromptInput{
		PromptID:    ctx.Param("id"),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, updated)
}

type updateSlotRequest struct {
	Content   []domain.ContentBlock   `json:"content"`
	Context   string                  `json:"context"`
	Variables []domain.PromptVariable `json:"variables"`
}

// UpdateSlot 覆盖当前编辑槽位。
func (h *PromptHandler) UpdateSlot(ctx *gin.Context) {
	var req updateSlotRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	updated, err := h.service.UpdateActiveSlot(ctx.Request.Context(), ctx.Param("id"), domain.ActiveSlot{
		Content:   req.Content,
		Context:   req.Context,
		Variables: req.Variables,
	})
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, updated)
}

// Delete 软删除 Prompt。
func (h *PromptHandler) Delete(ctx *gin.Context) {
	if err := h.service.DeletePrompt(ctx.Request.Context(), ctx.Param("id")); err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"deleted": true})
}

// Restore 恢复被软删除的 Prompt。
func (h *PromptHandler) Restore(ctx *gin.Context) {
	restored, err := h.service.RestorePrompt(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, restored)
}

type snapshotRequest struct {
	Notes *string `json:"notes"`
}

// Snapshot 把当前编辑槽位固化为新版本。
func (h *PromptHandler) Snapshot(ctx *gin.Context) {
	// 快照请求体可选，仅在携带内容时解析。
	var req snapshotRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return
		}
	}

	version, err := h.service.Snapshot(ctx.Request.Context(), ctx.Param("id"), req.Notes)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondCreated(ctx, version)
}

// ListVersions 分页返回版本历史。
func (h *PromptHandler) ListVersions(ctx *gin.Context) {
	limit := parseIntQuery(ctx, "limit", 20)
	offset := parseIntQuery(ctx, "offset", 0)

	page, err := h.service.ListVersions(ctx.Request.Context(), ctx.Param("id"), limit, offset)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, page)
}

// GetVersion 返回单个版本快照。
func (h *PromptHandler) GetVersion(ctx *gin.Context) {
	version, err := h.service.GetVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, version)
}

type updateVersionRequest struct {
	Description *string `json:"description"`
	Notes       *string `json:"notes"`
}

// UpdateVersion 更新版本的描述与备注。
func (h *PromptHandler) UpdateVersion(ctx *gin.Context) {
	var req updateVersionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	version, err := h.service.UpdateVersionDescription(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"), req.Description, req.Notes)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, version)
}

// ActivateVersion 把指定版本设为活动版本。
func (h *PromptHandler) ActivateVersion(ctx *gin.Context) {
	if err := h.service.ActivateVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId")); err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"activated": true})
}

// RestoreVersion 用版本快照覆盖当前编辑槽位。
func (h *PromptHandler) RestoreVersion(ctx *gin.Context) {
	restored, err := h.service.RestoreVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, restored)
}

// DiffVersions 对比两个版本的正文与变量定义。
func (h *PromptHandler) DiffVersions(ctx *gin.Context) {
	base := ctx.Query("base")
	target := ctx.Query("target")
	if base == "" || target == "" {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "base 与 target 版本 ID 均为必填", nil)
		return
	}

	diff, err := h.service.DiffVersions(ctx.Request.Context(), ctx.Param("id"), base, target)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, diff)
}

type renderRequest struct {
	ProjectID   string `json:"project_id"`
	WorkspaceID string `json:"workspace_id"`
}

// Render 解析变量并渲染当前编辑槽位。
func (h *PromptHandler) Render(ctx *gin.Context) {
	scope, ok := h.renderScope(ctx)
	if !ok {
		return
	}

	result, err := h.service.RenderPrompt(ctx.Request.Context(), ctx.Param("id"), scope)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// RenderVersion 解析变量并渲染指定版本快照。
func (h *PromptHandler) RenderVersion(ctx *gin.Context) {
	scope, ok := h.renderScope(ctx)
	if !ok {
		return
	}

	result, err := h.service.RenderVersion(ctx.Request.Context(), ctx.Param("id"), ctx.Param("versionId"), scope)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, result)
}

// Preview 输出占位符形态的模板正文，不触发任何数据查询。
func (h *PromptHandler) Preview(ctx *gin.Context) {
	body, err := h.service.PreviewPrompt(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"body": body})
}

// renderScope 合并请求体与中间件注入的解析范围，请求体优先。
func (h *PromptHandler) renderScope(ctx *gin.Context) (domain.Scope, bool) {
	scope := middleware.ScopeFrom(ctx)
	scope.CurrentUserID = ctx.GetString(middleware.UserContextKey)

	if ctx.Request.ContentLength > 0 {
		var req renderRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			return domain.Scope{}, false
		}
		if req.ProjectID != "" {
			scope.ProjectID = req.ProjectID
		}
		if req.WorkspaceID != "" {
			scope.WorkspaceID = req.WorkspaceID
		}
	}
	return scope, true
}

// handleError 将服务层错误映射为统一响应。
func (h *PromptHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, promptsvc.ErrPromptNotFound),
		errors.Is(err, promptsvc.ErrVersionNotFound),
		errors.Is(err, domain.ErrNotFound):
		httpx.RespondError(ctx, http.StatusNotFound, "NOT_FOUND", "资源不存在", nil)
	case errors.Is(err, promptsvc.ErrTitleRequired),
		errors.Is(err, promptsvc.ErrNoFieldsToUpdate),
		errors.Is(err, promptsvc.ErrDuplicatePlaceholder),
		errors.Is(err, promptsvc.ErrInvalidBlock),
		errors.Is(err, promptsvc.ErrVariableNotFound),
		errors.Is(err, promptsvc.ErrPromptNotDeleted):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, catalog.ErrUnknownEntity),
		errors.Is(err, catalog.ErrUnknownFilterField),
		errors.Is(err, catalog.ErrUnsupportedOperator),
		errors.Is(err, catalog.ErrMissingRequiredField):
		httpx.RespondError(ctx, http.StatusUnprocessableEntity, "INVALID_VARIABLE_SOURCE", err.Error(), nil)
	case errors.Is(err, resolve.ErrScopeRequired):
		httpx.RespondError(ctx, http.StatusBadRequest, "SCOPE_REQUIRED", err.Error(), nil)
	default:
		h.logger.Error("prompt handler error", zap.Error(err))
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", "服务器内部错误", nil)
	}
}

func parseIntQuery(ctx *gin.Context, key string, fallback int) int {
	raw := ctx.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
