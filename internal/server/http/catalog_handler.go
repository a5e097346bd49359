package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/prompt-lab/internal/catalog"
	"github.com/zacharykka/prompt-lab/internal/domain"
	"github.com/zacharykka/prompt-lab/pkg/httpx"
)

// CatalogHandler 暴露实体目录的只读接口，前端据此构建变量编辑器。
type CatalogHandler struct{}

// NewCatalogHandler 构造 CatalogHandler。
func NewCatalogHandler() *CatalogHandler {
	return &CatalogHandler{}
}

// List 返回全部实体类别定义。
func (h *CatalogHandler) List(ctx *gin.Context) {
	httpx.RespondOK(ctx, gin.H{"categories": catalog.Categories()})
}

// Get 返回单个实体类别定义。
func (h *CatalogHandler) Get(ctx *gin.Context) {
	category := domain.EntityCategory(strings.ToUpper(ctx.Param("category")))
	if !catalog.Known(category) {
		httpx.RespondError(ctx, http.StatusNotFound, "NOT_FOUND", "未知的实体类别", nil)
		return
	}
	httpx.RespondOK(ctx, catalog.Definition(category))
}
