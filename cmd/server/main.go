package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/zacharykka/prompt-lab/internal/app"
	"github.com/zacharykka/prompt-lab/internal/config"
	"github.com/zacharykka/prompt-lab/internal/infra"
	"github.com/zacharykka/prompt-lab/internal/middleware"
	"github.com/zacharykka/prompt-lab/internal/resolve"
	httpserver "github.com/zacharykka/prompt-lab/internal/server/http"
	authsvc "github.com/zacharykka/prompt-lab/internal/service/auth"
	promptsvc "github.com/zacharykka/prompt-lab/internal/service/prompt"
	"github.com/zacharykka/prompt-lab/pkg/logger"
)

func main() {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigDir, opts.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewNamed(cfg.Logging.Level, cfg.App.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, cleanup, err := infra.Initialize(ctx, cfg, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error("资源释放失败", zap.Error(err))
		}
	}()

	resolver := resolve.NewResolver(container.Workspace, log)
	promptService := promptsvc.NewService(container.Repos, resolver)
	authService := authsvc.NewService(container.Repos.Users, cfg.Auth, log)

	renderLimiter, err := buildRenderLimiter(container, log)
	if err != nil {
		log.Fatal("初始化限流器失败", zap.Error(err))
	}

	engine := httpserver.NewEngine(cfg, log, httpserver.RouterOptions{
		Middlewares: []gin.HandlerFunc{
			middleware.RequestLogger(log),
			middleware.LimitRequestBody(cfg.Server.MaxRequestBody),
			middleware.SecurityHeaders(cfg.Server.SecurityHeaders),
			cors.New(cors.Config{
				AllowOrigins:     cfg.Server.CORS.AllowOrigins,
				AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Authorization", "Content-Type", "X-Workspace-Id", "X-Project-Id"},
				AllowCredentials: cfg.Server.CORS.AllowCredentials,
				MaxAge:           12 * time.Hour,
			}),
		},
		HealthDeps: &httpserver.HealthDependencies{
			DB:    container.DB,
			Redis: container.Redis,
		},
		AuthHandler:    httpserver.NewAuthHandler(authService, log),
		PromptHandler:  httpserver.NewPromptHandler(promptService, log),
		CatalogHandler: httpserver.NewCatalogHandler(),
		RenderLimiter:  renderLimiter,
	})

	application := app.New(cfg, log, engine)

	if err := application.Run(ctx); err != nil {
		log.Fatal("服务运行异常", zap.Error(err))
	}
}

// buildRenderLimiter 渲染端点按用户限流，计数存放在 Redis。
func buildRenderLimiter(container *infra.Container, log *zap.Logger) (gin.HandlerFunc, error) {
	store, err := sredis.NewStoreWithOptions(container.Redis, limiter.StoreOptions{
		Prefix: "prompt-lab:ratelimit",
	})
	if err != nil {
		return nil, err
	}

	l := limiter.New(store, limiter.Rate{Period: time.Minute, Limit: 60})
	log.Info("render rate limiter ready", zap.Int64("limit_per_minute", 60))
	return middleware.RateLimit(l, middleware.KeyByUserOrIP()), nil
}

// options 控制命令行参数。
type options struct {
	ConfigDir string
	Env       string
}

func parseFlags() options {
	var opts options
	pflag.StringVar(&opts.ConfigDir, "config-dir", "./config", "配置文件目录")
	pflag.StringVar(&opts.Env, "env", "", "强制指定运行环境，覆盖 PROMPT_LAB_ENV")
	pflag.Parse()
	return opts
}
