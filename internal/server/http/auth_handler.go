package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authsvc "github.com/zacharykka/prompt-lab/internal/service/auth"
	"github.com/zacharykka/prompt-lab/pkg/httpx"
)

// AuthHandler 暴露注册、登录与令牌刷新接口。
type AuthHandler struct {
	service *authsvc.Service
	logger  *zap.Logger
}

// NewAuthHandler 构造 AuthHandler。
func NewAuthHandler(service *authsvc.Service, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: service, logger: logger}
}

// RegisterRoutes 在指定分组下挂载认证路由。
func (h *AuthHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.POST("/refresh", h.Refresh)
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

// Register 注册新用户。
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Register(ctx.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondCreated(ctx, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 校验凭证并签发令牌。
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{
		"user":   user,
		"tokens": tokens,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 使用刷新令牌换取新令牌对。
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	var req refreshRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	tokens, err := h.service.Refresh(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	httpx.RespondOK(ctx, gin.H{"tokens": tokens})
}

func (h *AuthHandler) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, authsvc.ErrInvalidInput):
		httpx.RespondError(ctx, http.StatusBadRequest, "INVALID_REQUEST", "注册信息不完整或不合法", nil)
	case errors.Is(err, authsvc.ErrUserExists):
		httpx.RespondError(ctx, http.StatusConflict, "USER_EXISTS", "邮箱已被注册", nil)
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		httpx.RespondError(ctx, http.StatusUnauthorized, "INVALID_CREDENTIALS", "邮箱或密码错误", nil)
	case errors.Is(err, authsvc.ErrUserDisabled):
		httpx.RespondError(ctx, http.StatusForbidden, "USER_DISABLED", "用户已被禁用", nil)
	case errors.Is(err, authsvc.ErrTokenInvalid):
		httpx.RespondError(ctx, http.StatusUnauthorized, "TOKEN_INVALID", "令牌无效或已过期", nil)
	default:
		h.logger.Error("auth handler error", zap.Error(err))
		httpx.RespondError(ctx, http.StatusInternalServerError, "INTERNAL_ERROR", "服务器内部错误", nil)
	}
}
