package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"tradepost.com/apps/merchant/config"
	"tradepost.com/apps/merchant/internal/core/service"
	"tradepost.com/apps/merchant/internal/infra/broker"
	"tradepost.com/apps/merchant/internal/infra/chatfeed"
	"tradepost.com/apps/merchant/internal/infra/notify"
	"tradepost.com/apps/merchant/internal/infra/persistence"
	"tradepost.com/apps/merchant/internal/infra/prompt"
	"tradepost.com/apps/merchant/internal/server"
	"tradepost.com/pkg/bootstrap"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/metrics"
	"tradepost.com/pkg/orm"
	"tradepost.com/pkg/ratelimit"
	"tradepost.com/pkg/safe"
	"tradepost.com/pkg/trace"
	"tradepost.com/pkg/xredis"
)

type App struct {
	cfg *config.Config

	db     *gorm.DB
	rdb    *redis.Client
	broker broker.Broker

	trades   *service.TradeService
	repo     *persistence.Repo
	prompter *prompt.Prompter
	hub      *chatfeed.Hub
	limiter  *ratelimit.Store

	shutdownTrace func(context.Context) error
}

// New 按配置建好所有依赖，任何一步失败都会释放已经建好的部分
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if cfg.Trace.Endpoint != "" {
		if a.shutdownTrace, err = trace.InitTrace(ctx, trace.Config{
			ServiceName: cfg.Name,
			Endpoint:    cfg.Trace.Endpoint,
			SampleRatio: cfg.Trace.SampleRatio,
		}); err != nil {
			return nil, fmt.Errorf("init trace: %w", err)
		}
	}
	if err = bootstrap.InitSentinel(cfg.Sentinel); err != nil {
		return nil, err
	}

	if a.db, err = orm.NewMySQL(&orm.Config{
		DSN:         cfg.Mysql.DSN,
		MaxIdle:     cfg.Mysql.MaxIdle,
		MaxOpen:     cfg.Mysql.MaxOpen,
		MaxLifetime: cfg.Mysql.MaxLifetime,
		LogLevel:    cfg.Mysql.LogLevel,
	}); err != nil {
		return nil, fmt.Errorf("init mysql: %w", err)
	}
	if cfg.Mysql.AutoMigrate {
		if err = persistence.Migrate(a.db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	if a.rdb, err = xredis.NewRedis(ctx, &xredis.Config{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}); err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	if a.broker, err = newBroker(cfg.Nats); err != nil {
		return nil, fmt.Errorf("init broker: %w", err)
	}

	breakers := ratelimit.NewBreakers(ratelimit.Rule{
		Timeout:                 cfg.Breaker.Timeout,
		TripConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}, nil)

	a.repo = persistence.New(a.db)
	a.prompter = prompt.New(a.rdb, cfg.Prompt.Timeout)
	a.trades = service.NewTradeService(a.repo, a.repo, a.prompter, notify.New(a.broker, breakers))
	a.hub = chatfeed.NewHub()
	if cfg.Limit.RPS > 0 {
		a.limiter = ratelimit.NewStore(rate.Limit(cfg.Limit.RPS), cfg.Limit.Burst, 10*time.Minute)
	}

	metrics.MustRegister()
	return a, nil
}

func newBroker(c config.NatsConfig) (broker.Broker, error) {
	if c.URL == "" {
		logger.Log.Warn("nats url empty, chat notifications stay in this process")
		return broker.NewMemBroker(), nil
	}
	name := c.Name
	if name == "" {
		name = "merchant-service"
	}
	b, err := broker.NewNatsBroker(c.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (a *App) Router() *gin.Engine {
	return server.NewRouter(server.Deps{
		ServiceName: a.cfg.Name,
		Trader:      a.trades,
		Prompts:     a.prompter,
		Inventory:   a.repo,
		Feed:        chatfeed.NewServer(a.hub),
		Limiter:     a.limiter,
		Sentinel:    a.cfg.Sentinel.Enabled,
		Metrics:     true,
	})
}

// Run 阻塞到 ctx 结束或任一组件出错
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.limiter != nil {
		a.limiter.StartJanitor(ctx, time.Minute)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		safe.GoCtx(ctx, "watch-pools", func(ctx context.Context) {
			metrics.WatchPools(ctx, sqlDB, a.rdb, 5*time.Second)
		})
	}

	g.Go(func() error {
		return a.hub.Run(ctx, a.broker, []string{notify.ChatTopic})
	})
	g.Go(func() error {
		srv := server.NewHTTPServer(a.cfg.HTTP.Addr, a.Router(), a.prompter.Timeout())
		return bootstrap.Serve(ctx, srv, "api")
	})
	if a.cfg.HTTP.AdminAddr != "" {
		g.Go(func() error {
			return bootstrap.ServeAdmin(ctx, a.cfg.HTTP.AdminAddr)
		})
	}

	logger.Info(ctx, "merchant service started", zap.String("addr", a.cfg.HTTP.Addr))
	return g.Wait()
}

// Close 按依赖反序释放
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.broker != nil {
		_ = a.broker.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.shutdownTrace != nil {
		if err := a.shutdownTrace(ctx); err != nil {
			logger.Warn(ctx, "trace shutdown", zap.Error(err))
		}
	}
}
