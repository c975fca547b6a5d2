package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"soul-chat-go/internal/config"
	"soul-chat-go/internal/handler"
	"soul-chat-go/internal/middleware"
	"soul-chat-go/internal/repository"
	"soul-chat-go/internal/service"
	"soul-chat-go/pkg/database"
	"soul-chat-go/pkg/kafka"
	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/search"
)

func serveCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*cfgPath)
		},
	}
}

// newGuard 根据配置选择在途去重的实现。
func newGuard(cfg config.Config) (service.InflightGuard, error) {
	switch cfg.Chat.GuardBackend {
	case "", "memory":
		return service.NewMemoryInflightGuard(), nil
	case "redis":
		rdb, err := database.InitRedis(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return service.NewRedisInflightGuard(rdb, cfg.Chat.GuardTTL()), nil
	default:
		return nil, fmt.Errorf("unknown chat.guard_backend %q", cfg.Chat.GuardBackend)
	}
}

func runServer(cfgPath string) error {
	// 1. 初始化配置
	config.Init(cfgPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化 Repository
	conversationRepo := repository.NewMemoryConversationRepository()
	if cfg.Store.SeedWelcome {
		if _, err := repository.SeedWelcomeConversation(context.Background(), conversationRepo); err != nil {
			return fmt.Errorf("seed welcome conversation: %w", err)
		}
	}

	// 4. 初始化外部依赖
	guard, err := newGuard(cfg)
	if err != nil {
		return err
	}
	publisher := kafka.NewPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}()
	searchClient := search.NewClient(cfg.Search)
	if cfg.Search.APIKey == "" {
		log.Warnf("未配置搜索 API key, 需要联网搜索的消息将返回兜底回复")
	}

	// 5. 初始化 Service (依赖注入)
	synthesizer := service.NewSynthesizer(service.NewClassifier(), searchClient)
	chatService := service.NewChatService(conversationRepo, synthesizer, guard, publisher, cfg.Chat)
	conversationService := service.NewConversationService(conversationRepo, publisher)
	messageService := service.NewMessageService(conversationRepo, publisher)

	// 6. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestID(), middleware.RequestLogger(), middleware.Metrics(), gin.Recovery())

	// 7. 注册路由
	handler.RegisterRoutes(r, handler.Handlers{
		Chat:         handler.NewChatHandler(chatService),
		Conversation: handler.NewConversationHandler(conversationService),
		Message:      handler.NewMessageHandler(messageService),
		Search:       handler.NewSearchHandler(searchClient),
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP 服务监听失败: %w", err)
	case <-quit:
	}
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP 服务器关闭失败: %w", err)
	}
	log.Info("服务已优雅关闭")
	return nil
}
