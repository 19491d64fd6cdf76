package prompt

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/pkg/xerr"
)

func newTestPrompter(t *testing.T, timeout time.Duration) (*Prompter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, timeout), mr
}

var req = domain.PromptRequest{
	PlayerID:   "p1",
	MerchantID: "m1",
	ItemID:     "i1",
	Direction:  domain.ToPlayer,
	Target:     "merchant-sheet",
}

// waitPending 轮询直到玩家有一个待处理弹窗
func waitPending(t *testing.T, p *Prompter, playerID string) Pending {
	t.Helper()
	var got []Pending
	require.Eventually(t, func() bool {
		var err error
		got, err = p.Pending(context.Background(), playerID)
		return err == nil && len(got) == 1
	}, 2*time.Second, 10*time.Millisecond)
	return got[0]
}

type askResult struct {
	n   int
	err error
}

func TestPrompter_Answered(t *testing.T) {
	tests := []struct {
		name    string
		ask     func(p *Prompter) (int, error)
		flavor  string
		answer  domain.ItemCount
		wantN   int
		wantErr error
	}{
		{
			name:   "购买弹窗返回数量",
			ask:    func(p *Prompter) (int, error) { return p.PromptPurchase(context.Background(), req) },
			flavor: "purchase",
			answer: domain.Count(3),
			wantN:  3,
		},
		{
			name:   "出售弹窗返回数量",
			ask:    func(p *Prompter) (int, error) { return p.PromptSell(context.Background(), req) },
			flavor: "sell",
			answer: domain.Count(2),
			wantN:  2,
		},
		{
			name:    "用户关闭弹窗",
			ask:     func(p *Prompter) (int, error) { return p.PromptPurchase(context.Background(), req) },
			flavor:  "purchase",
			answer:  domain.CancelledCount,
			wantErr: ErrDismissed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(t, 5*time.Second)

			done := make(chan askResult, 1)
			go func() {
				n, err := tt.ask(p)
				done <- askResult{n, err}
			}()

			pd := waitPending(t, p, "p1")
			assert.Equal(t, tt.flavor, pd.Flavor)
			assert.Equal(t, "m1", pd.MerchantID)
			assert.Equal(t, "i1", pd.ItemID)
			assert.Equal(t, "merchant-sheet", pd.Target)

			require.NoError(t, p.Answer(context.Background(), pd.ID, tt.answer))

			select {
			case r := <-done:
				if tt.wantErr != nil {
					assert.ErrorIs(t, r.err, tt.wantErr)
					return
				}
				require.NoError(t, r.err)
				assert.Equal(t, tt.wantN, r.n)
			case <-time.After(3 * time.Second):
				t.Fatal("prompt never returned")
			}

			// 结束后不再出现在待处理列表里
			left, err := p.Pending(context.Background(), "p1")
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestPrompter_Timeout(t *testing.T) {
	p, _ := newTestPrompter(t, time.Second)

	start := time.Now()
	_, err := p.PromptPurchase(context.Background(), req)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestPrompter_TimeoutDefault(t *testing.T) {
	assert.Equal(t, DefaultTimeout, New(nil, 0).Timeout())
	assert.Equal(t, DefaultTimeout, New(nil, -time.Second).Timeout())
	assert.Equal(t, 30*time.Second, New(nil, 30*time.Second).Timeout())
}

func TestPrompter_ContextCancelled(t *testing.T) {
	p, _ := newTestPrompter(t, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.PromptSell(ctx, req)
		done <- err
	}()
	waitPending(t, p, "p1")
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("prompt ignored context cancel")
	}
}

func TestPrompter_AnswerUnknown(t *testing.T) {
	p, _ := newTestPrompter(t, time.Second)

	err := p.Answer(context.Background(), "no-such-prompt", domain.Count(1))
	require.Error(t, err)
	assert.Equal(t, xerr.RecordNotFound, xerr.CodeOf(err))
}

func TestPrompter_PendingDropsExpired(t *testing.T) {
	p, mr := newTestPrompter(t, time.Second)
	ctx := context.Background()

	// 索引里有 id，但 prompt 本体已经过期
	mr.ZAdd(playerKey("p1"), 1, "gone")
	mr.Set(promptKey("alive"), `{"id":"alive","flavor":"sell","playerId":"p1"}`)
	mr.ZAdd(playerKey("p1"), 2, "alive")

	got, err := p.Pending(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alive", got[0].ID)

	members, err := mr.ZMembers(playerKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alive"}, members)
}

func TestParseAnswer(t *testing.T) {
	n, err := parseAnswer("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseAnswer(answerDismiss)
	assert.ErrorIs(t, err, ErrDismissed)

	_, err = parseAnswer("lots")
	assert.Equal(t, xerr.PromptError, xerr.CodeOf(err))
}
