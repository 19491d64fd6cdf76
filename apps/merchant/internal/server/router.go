package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"tradepost.com/apps/merchant/internal/core/handler"
	"tradepost.com/apps/merchant/internal/infra/chatfeed"
	"tradepost.com/apps/merchant/internal/infra/prompt"
	"tradepost.com/pkg/middleware"
	"tradepost.com/pkg/ratelimit"
)

type Deps struct {
	ServiceName string
	Trader      handler.Trader
	Prompts     handler.PromptBoard
	Inventory   handler.Inventory
	Feed        *chatfeed.Server
	Limiter     *ratelimit.Store
	// Sentinel 为 true 时挂 sentinel 中间件，规则由 bootstrap.InitSentinel 加载
	Sentinel bool
	// Metrics 为 false 时不挂 ginprom，测试里避免重复注册
	Metrics bool
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	if d.Metrics {
		p := ginprom.NewPrometheus("tradepost")
		p.Use(r)
	}

	mws := []gin.HandlerFunc{
		otelgin.Middleware(d.ServiceName),
		middleware.ReqId(),
		cors.Default(),
		middleware.Recover(),
	}
	if d.Sentinel {
		mws = append(mws, middleware.Sentinel())
	}
	if d.Limiter != nil {
		mws = append(mws, middleware.RateLimit(d.Limiter, func(c *gin.Context) string {
			return c.GetHeader(handler.HeaderPlayerID)
		}))
	}
	r.Use(mws...)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	Merchant(api, handler.NewMerchant(d.Trader))
	Prompts(api, handler.NewPrompt(d.Prompts))
	Actors(api, handler.NewActor(d.Inventory))

	if d.Feed != nil {
		r.GET("/ws/chat", func(c *gin.Context) { d.Feed.ServeWS(c.Writer, c.Request) })
	}
	return r
}

func Merchant(api *gin.RouterGroup, h *handler.Merchant) {
	g := api.Group("/merchant")
	{
		g.POST("/purchase", h.Purchase)
		g.POST("/sell", h.Sell)
	}
}

func Prompts(api *gin.RouterGroup, h *handler.Prompt) {
	g := api.Group("/prompts")
	{
		g.GET("/:playerId", h.List)
		g.POST("/:promptId/answer", h.Answer)
	}
}

func Actors(api *gin.RouterGroup, h *handler.Actor) {
	g := api.Group("/actors")
	{
		g.GET("/:actorId", h.Get)
		g.GET("/:actorId/items", h.Items)
	}
}

// NewHTTPServer 交易请求会挂起等待数量弹窗，WriteTimeout 必须大于弹窗超时
func NewHTTPServer(addr string, h http.Handler, promptTimeout time.Duration) *http.Server {
	promptTimeout = prompt.EffectiveTimeout(promptTimeout)
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      promptTimeout + 30*time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
