package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strings"
	"time"

	sentinels "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/circuitbreaker"
	sentinelcfg "github.com/alibaba/sentinel-golang/core/config"
	"github.com/alibaba/sentinel-golang/core/flow"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tradepost.com/pkg/logger"
)

// SentinelCfg 流控 / 熔断规则
type SentinelCfg struct {
	Enabled bool
	LogDir  string
	Flow    FlowSection
	Breaker BreakerConfig
}

type FlowSection struct {
	Enabled bool
	Rules   []FlowRule
}

type FlowRule struct {
	Resource         string
	Threshold        float64
	StatIntervalMs   uint32
	Strategy         string
	Control          string
	MaxQueueWaitMs   uint32
	WarmUpSec        uint32
	WarmUpColdFactor uint32
}

type BreakerConfig struct {
	Enabled bool
	Rules   []BreakerRule
}

type BreakerRule struct {
	Resource         string
	Strategy         string
	Threshold        float64
	StatIntervalMs   uint32
	MinRequestAmount uint64
	RetryTimeoutMs   uint64
}

// InitSentinel 初始化 sentinel 并加载规则，未启用时什么都不做
func InitSentinel(sc SentinelCfg) error {
	if !(sc.Enabled || sc.Flow.Enabled || sc.Breaker.Enabled) {
		return nil
	}
	conf := sentinelcfg.NewDefaultConfig()
	if sc.LogDir != "" {
		conf.Sentinel.Log.Dir = sc.LogDir
	}
	if err := sentinels.InitWithConfig(conf); err != nil {
		return fmt.Errorf("init sentinel: %w", err)
	}

	if rules := flowRules(sc.Flow); len(rules) > 0 {
		if _, err := flow.LoadRules(rules); err != nil {
			return fmt.Errorf("load flow rules: %w", err)
		}
	}
	if rules := breakerRules(sc.Breaker); len(rules) > 0 {
		if _, err := circuitbreaker.LoadRules(rules); err != nil {
			return fmt.Errorf("load circuit breaker rules: %w", err)
		}
	}
	return nil
}

func flowRules(fs FlowSection) []*flow.Rule {
	if !fs.Enabled {
		return nil
	}
	var out []*flow.Rule
	for _, rule := range fs.Rules {
		if rule.Resource == "" {
			continue
		}
		r := &flow.Rule{
			Resource:         rule.Resource,
			Threshold:        rule.Threshold,
			StatIntervalInMs: rule.StatIntervalMs,
		}
		switch strings.ToLower(rule.Strategy) {
		case "warmup":
			r.TokenCalculateStrategy = flow.WarmUp
			r.WarmUpPeriodSec = rule.WarmUpSec
			r.WarmUpColdFactor = rule.WarmUpColdFactor
		case "memory_adaptive":
			r.TokenCalculateStrategy = flow.MemoryAdaptive
		default:
			r.TokenCalculateStrategy = flow.Direct
		}

		switch strings.ToLower(rule.Control) {
		case "throttling":
			r.ControlBehavior = flow.Throttling
			r.MaxQueueingTimeMs = rule.MaxQueueWaitMs
		default:
			r.ControlBehavior = flow.Reject
		}
		out = append(out, r)
	}
	return out
}

func breakerRules(bc BreakerConfig) []*circuitbreaker.Rule {
	if !bc.Enabled {
		return nil
	}
	var out []*circuitbreaker.Rule
	for _, rule := range bc.Rules {
		if rule.Resource == "" {
			continue
		}
		r := &circuitbreaker.Rule{
			Resource:         rule.Resource,
			Threshold:        rule.Threshold,
			StatIntervalMs:   rule.StatIntervalMs,
			MinRequestAmount: rule.MinRequestAmount,
			RetryTimeoutMs:   uint32(rule.RetryTimeoutMs),
		}
		switch strings.ToLower(rule.Strategy) {
		case "error_count":
			r.Strategy = circuitbreaker.ErrorCount
		case "slow_request_ratio":
			r.Strategy = circuitbreaker.SlowRequestRatio
		default:
			r.Strategy = circuitbreaker.ErrorRatio
		}
		out = append(out, r)
	}
	return out
}

// AdminHandler /metrics + /debug/pprof
func AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// ServeAdmin 阻塞运行管理端口，ctx 结束时优雅关闭
func ServeAdmin(ctx context.Context, addr string) error {
	runtime.SetMutexProfileFraction(10)
	runtime.SetBlockProfileRate(10000)

	srv := &http.Server{
		Addr:              addr,
		Handler:           AdminHandler(),
		ReadHeaderTimeout: 3 * time.Second,
	}
	return Serve(ctx, srv, "admin")
}

// Serve 运行 srv 直到 ctx 结束，然后给 5 秒优雅退出
func Serve(ctx context.Context, srv *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	logger.Info(ctx, "http stopped", zap.String("server", name))
	return nil
}
