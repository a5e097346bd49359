package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zacharykka/prompt-lab/pkg/httpx"
)

// LimitRequestBody 限制请求体大小。声明长度超限的请求直接返回 413，
// 未声明长度的流式请求体由 MaxBytesReader 在读取阶段兜底。
func LimitRequestBody(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if maxBytes > 0 {
			if ctx.Request.ContentLength > maxBytes {
				httpx.RespondError(ctx, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "请求体超出大小限制", nil)
				return
			}
			ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBytes)
		}
		ctx.Next()
	}
}
