package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TradeTotal 交易结果计数 outcome: success/insufficient/shortfall/cancelled/unlinked/failed
	TradeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepost",
			Name:      "merchant_trade_total",
			Help:      "Total number of merchant trades by direction and outcome.",
		},
		[]string{"direction", "outcome"},
	)

	PromptTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepost",
			Name:      "quantity_prompt_total",
			Help:      "Total number of quantity prompts by flavor and result.",
		},
		[]string{"flavor", "result"},
	)

	NotifyDropTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradepost",
			Name:      "notify_drop_total",
			Help:      "Notifications that could not be published.",
		},
		[]string{"level", "reason"},
	)
)

var registerOnce sync.Once

func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(TradeTotal, PromptTotal, NotifyDropTotal)
	})
}
