package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"tradepost.com/apps/merchant/config"
	"tradepost.com/apps/merchant/internal/app"
	pkgcfg "tradepost.com/pkg/config"
	"tradepost.com/pkg/logger"
)

const serviceName = "merchant-service"

var configDir = flag.String("c", "apps/merchant/config", "directory holding merchant-service.yaml")

func main() {
	flag.Parse()

	// SIGINT/SIGTERM 取消 ctx，各组件跟着退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &config.Config{}
	if _, err := pkgcfg.LoadAndWatch(serviceName, cfg, *configDir); err != nil {
		panic(fmt.Sprintf("加载配置出错: %+v", err))
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}

	logger.InitWithFile(cfg.Name, cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()
	logger.Info(ctx, "服务开始启动")

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "init app", zap.Error(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "merchant service exited", zap.Error(err))
		return
	}
	logger.Info(ctx, "服务已退出")
}
