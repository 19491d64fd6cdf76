// Package prompt 基于 redis 的数量弹窗。
//
// 交易请求在服务端挂起一个 prompt，前端轮询 Pending 拿到弹窗内容，
// 用户确认或关闭后调用 Answer；挂起的一方用 BLPOP 等答案。
// 多实例部署时 prompt 和答案都在 redis 里，任何实例都能应答。
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/xerr"
)

const (
	keyPrefix = "merchant:prompt:"
	// 答案里的取消标记
	answerDismiss = "dismiss"
	// BLPOP 最小粒度是 1 秒
	waitSlice = time.Second
)

var (
	ErrDismissed = errors.New("prompt dismissed")
	ErrTimeout   = errors.New("prompt timed out")
)

// Pending 前端展示用的弹窗内容
type Pending struct {
	ID         string    `json:"id"`
	Flavor     string    `json:"flavor"` // purchase / sell
	PlayerID   string    `json:"playerId"`
	MerchantID string    `json:"merchantId"`
	ItemID     string    `json:"itemId"`
	Target     string    `json:"target,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Prompter struct {
	rdb     *redis.Client
	timeout time.Duration
}

var _ domain.QuantityPrompter = (*Prompter)(nil)

// DefaultTimeout 未配置弹窗超时时使用
const DefaultTimeout = 2 * time.Minute

// EffectiveTimeout <=0 时回落到 DefaultTimeout
func EffectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

// New timeout 为单个弹窗最长等待时间
func New(rdb *redis.Client, timeout time.Duration) *Prompter {
	return &Prompter{rdb: rdb, timeout: EffectiveTimeout(timeout)}
}

// Timeout 实际生效的等待时间，HTTP 写超时要以它为准
func (p *Prompter) Timeout() time.Duration { return p.timeout }

func promptKey(id string) string       { return keyPrefix + id }
func answerKey(id string) string       { return keyPrefix + id + ":answer" }
func playerKey(playerID string) string { return keyPrefix + "player:" + playerID }

func (p *Prompter) PromptPurchase(ctx context.Context, req domain.PromptRequest) (int, error) {
	return p.ask(ctx, "purchase", req)
}

func (p *Prompter) PromptSell(ctx context.Context, req domain.PromptRequest) (int, error) {
	return p.ask(ctx, "sell", req)
}

// ask 挂起一个 prompt 并阻塞等答案。取消、超时都以 error 返回
func (p *Prompter) ask(ctx context.Context, flavor string, req domain.PromptRequest) (int, error) {
	pending := Pending{
		ID:         uuid.NewString(),
		Flavor:     flavor,
		PlayerID:   req.PlayerID,
		MerchantID: req.MerchantID,
		ItemID:     req.ItemID,
		Target:     req.Target,
		CreatedAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(pending)
	if err != nil {
		return 0, xerr.Wrap(err, xerr.PromptError, "encode prompt")
	}

	// 多留一点时间给前端拉取后再提交
	ttl := p.timeout + 10*time.Second
	pipe := p.rdb.TxPipeline()
	pipe.Set(ctx, promptKey(pending.ID), body, ttl)
	pipe.ZAdd(ctx, playerKey(req.PlayerID), redis.Z{Score: float64(pending.CreatedAt.UnixMilli()), Member: pending.ID})
	pipe.Expire(ctx, playerKey(req.PlayerID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, xerr.Wrap(err, xerr.PromptError, "store prompt")
	}
	defer p.cleanup(context.WithoutCancel(ctx), pending)

	logger.Debug(ctx, "prompt opened",
		zap.String("prompt", pending.ID),
		zap.String("flavor", flavor),
		zap.String("player", req.PlayerID),
	)

	return p.wait(ctx, pending.ID)
}

// wait 分段 BLPOP，每段之间检查 ctx，保证请求取消后最多再等一段
func (p *Prompter) wait(ctx context.Context, id string) (int, error) {
	deadline := time.Now().Add(p.timeout)
	for {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("wait prompt %s: %w", id, err)
		}
		left := time.Until(deadline)
		if left <= 0 {
			return 0, ErrTimeout
		}
		res, err := p.rdb.BLPop(ctx, min(left, waitSlice), answerKey(id)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("wait prompt %s: %w", id, err)
		}
		// BLPOP 返回 [key, value]
		return parseAnswer(res[1])
	}
}

func parseAnswer(s string) (int, error) {
	if s == answerDismiss {
		return 0, ErrDismissed
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, xerr.Wrap(err, xerr.PromptError, fmt.Sprintf("bad prompt answer %q", s))
	}
	return n, nil
}

func (p *Prompter) cleanup(ctx context.Context, pending Pending) {
	pipe := p.rdb.TxPipeline()
	pipe.Del(ctx, promptKey(pending.ID), answerKey(pending.ID))
	pipe.ZRem(ctx, playerKey(pending.PlayerID), pending.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Warn(ctx, "prompt cleanup failed", zap.String("prompt", pending.ID), zap.Error(err))
	}
}

// Pending 玩家当前待处理的弹窗，按创建时间排序。过期的顺手清掉
func (p *Prompter) Pending(ctx context.Context, playerID string) ([]Pending, error) {
	ids, err := p.rdb.ZRange(ctx, playerKey(playerID), 0, -1).Result()
	if err != nil {
		return nil, xerr.Wrap(err, xerr.PromptError, "list prompts")
	}
	out := make([]Pending, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = promptKey(id)
	}
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, xerr.Wrap(err, xerr.PromptError, "load prompts")
	}

	var expired []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var pd Pending
		if err := json.Unmarshal([]byte(s), &pd); err != nil {
			logger.Warn(ctx, "skip malformed prompt", zap.String("prompt", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, pd)
	}
	if len(expired) > 0 {
		_ = p.rdb.ZRem(ctx, playerKey(playerID), expired...).Err()
	}
	return out, nil
}

// Answer 提交用户输入；count 取消时代表用户关闭了弹窗
func (p *Prompter) Answer(ctx context.Context, promptID string, count domain.ItemCount) error {
	n, err := p.rdb.Exists(ctx, promptKey(promptID)).Result()
	if err != nil {
		return xerr.Wrap(err, xerr.PromptError, "check prompt")
	}
	if n == 0 {
		return xerr.New(xerr.RecordNotFound, fmt.Sprintf("prompt %s not found or expired", promptID))
	}

	answer := answerDismiss
	if v, ok := count.Value(); ok {
		answer = strconv.Itoa(v)
	}

	pipe := p.rdb.TxPipeline()
	pipe.RPush(ctx, answerKey(promptID), answer)
	pipe.Expire(ctx, answerKey(promptID), p.timeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return xerr.Wrap(err, xerr.PromptError, "submit answer")
	}
	return nil
}
