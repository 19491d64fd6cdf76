package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradepost.com/apps/merchant/internal/domain"
	"tradepost.com/apps/merchant/internal/infra/prompt"
	"tradepost.com/pkg/xerr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockTrader struct{ mock.Mock }

func (m *MockTrader) Purchase(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error) {
	args := m.Called(ctx, req, from)
	msg, _ := args.Get(0).(*domain.LogMessage)
	return msg, args.Error(1)
}

func (m *MockTrader) Sell(ctx context.Context, req domain.TradeRequest, from string) (*domain.LogMessage, error) {
	args := m.Called(ctx, req, from)
	msg, _ := args.Get(0).(*domain.LogMessage)
	return msg, args.Error(1)
}

type MockBoard struct{ mock.Mock }

func (m *MockBoard) Pending(ctx context.Context, playerID string) ([]prompt.Pending, error) {
	args := m.Called(ctx, playerID)
	list, _ := args.Get(0).([]prompt.Pending)
	return list, args.Error(1)
}

func (m *MockBoard) Answer(ctx context.Context, promptID string, count domain.ItemCount) error {
	return m.Called(ctx, promptID, count).Error(0)
}

type MockInventory struct{ mock.Mock }

func (m *MockInventory) GetActor(ctx context.Context, id string) (*domain.Actor, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*domain.Actor)
	return a, args.Error(1)
}

func (m *MockInventory) ListItems(ctx context.Context, ownerID string, page, limit int) ([]*domain.Item, int64, error) {
	args := m.Called(ctx, ownerID, page, limit)
	list, _ := args.Get(0).([]*domain.Item)
	return list, args.Get(1).(int64), args.Error(2)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func merchantRouter(tr Trader) *gin.Engine {
	r := gin.New()
	h := NewMerchant(tr)
	r.POST("/purchase", h.Purchase)
	r.POST("/sell", h.Sell)
	return r
}

var tradeBody = domain.TradeRequest{PlayerID: "p1", MerchantID: "m1", ItemID: "i1"}

func TestMerchant_Purchase(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		msg        *domain.LogMessage
		err        error
		callSvc    bool
		wantStatus int
		wantCode   int
		wantData   string
	}{
		{
			name:       "成功",
			body:       tradeBody,
			msg:        domain.Info("purchased Potion (3) from Bram"),
			callSvc:    true,
			wantStatus: http.StatusOK,
			wantCode:   http.StatusOK,
			wantData:   `{"log":{"type":"info","msg":"purchased Potion (3) from Bram"},"cancelled":false}`,
		},
		{
			name:       "弹窗取消",
			body:       tradeBody,
			callSvc:    true,
			wantStatus: http.StatusOK,
			wantCode:   http.StatusOK,
			wantData:   `{"log":null,"cancelled":true}`,
		},
		{
			name:       "缺字段",
			body:       map[string]string{"playerId": "p1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   xerr.RequestParamsError,
			wantData:   `null`,
		},
		{
			name:       "物品不存在",
			body:       tradeBody,
			err:        xerr.New(xerr.RecordNotFound, "item i1 not found"),
			callSvc:    true,
			wantStatus: http.StatusNotFound,
			wantCode:   xerr.RecordNotFound,
			wantData:   `null`,
		},
		{
			name:       "转移失败",
			body:       tradeBody,
			err:        errors.New("transfer item: db down"),
			callSvc:    true,
			wantStatus: http.StatusInternalServerError,
			wantCode:   xerr.ServerCommonError,
			wantData:   `null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTrader)
			if tt.callSvc {
				tr.On("Purchase", mock.Anything, tradeBody, "merchant-sheet").Return(tt.msg, tt.err)
			}

			w, env := do(t, merchantRouter(tr), http.MethodPost, "/purchase?from=merchant-sheet", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.JSONEq(t, tt.wantData, string(env.Data))
			tr.AssertExpectations(t)
		})
	}
}

func TestMerchant_Sell(t *testing.T) {
	tr := new(MockTrader)
	tr.On("Sell", mock.Anything, tradeBody, "").
		Return(domain.Error("attempted to sell Longsword for 10gp but Bram doesn't have enough currency"), nil)

	w, env := do(t, merchantRouter(tr), http.MethodPost, "/sell", tradeBody)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"log":{"type":"error","msg":"attempted to sell Longsword for 10gp but Bram doesn't have enough currency"},"cancelled":false}`,
		string(env.Data))
	tr.AssertNotCalled(t, "Purchase", mock.Anything, mock.Anything, mock.Anything)
}

func promptRouter(b PromptBoard) *gin.Engine {
	r := gin.New()
	h := NewPrompt(b)
	r.GET("/prompts/:playerId", h.List)
	r.POST("/prompts/:promptId/answer", h.Answer)
	return r
}

func TestPrompt_List(t *testing.T) {
	b := new(MockBoard)
	b.On("Pending", mock.Anything, "p1").Return([]prompt.Pending{{ID: "x", Flavor: "sell", PlayerID: "p1"}}, nil)

	w, env := do(t, promptRouter(b), http.MethodGet, "/prompts/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Prompts []prompt.Pending `json:"prompts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Prompts, 1)
	assert.Equal(t, "x", data.Prompts[0].ID)
	assert.Equal(t, "sell", data.Prompts[0].Flavor)
}

func TestPrompt_Answer(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		want       *domain.ItemCount
		err        error
		wantStatus int
	}{
		{name: "确认数量", body: map[string]interface{}{"count": 3}, want: ptr(domain.Count(3)), wantStatus: http.StatusOK},
		{name: "关闭弹窗", body: map[string]interface{}{"dismiss": true}, want: ptr(domain.CancelledCount), wantStatus: http.StatusOK},
		{name: "数量非法", body: map[string]interface{}{"count": 0}, wantStatus: http.StatusBadRequest},
		{
			name:       "弹窗已过期",
			body:       map[string]interface{}{"count": 1},
			want:       ptr(domain.Count(1)),
			err:        xerr.New(xerr.RecordNotFound, "prompt abc not found or expired"),
			wantStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := new(MockBoard)
			if tt.want != nil {
				b.On("Answer", mock.Anything, "abc", *tt.want).Return(tt.err)
			}
			w, _ := do(t, promptRouter(b), http.MethodPost, "/prompts/abc/answer", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			b.AssertExpectations(t)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestActor_GetAndItems(t *testing.T) {
	inv := new(MockInventory)
	inv.On("GetActor", mock.Anything, "p1").
		Return(&domain.Actor{ID: "p1", Name: "Aria", Kind: domain.ActorPlayer, TokenLinked: true, PP: 1, GP: 2, SP: 5}, nil)
	inv.On("GetActor", mock.Anything, "ghost").
		Return(nil, xerr.New(xerr.RecordNotFound, "actor ghost not found"))
	inv.On("ListItems", mock.Anything, "p1", 2, 100).
		Return([]*domain.Item{{ID: "i1", Name: "Potion", Type: "consumable", Quantity: 4, Price: decimal.RequireFromString("0.5")}}, int64(101), nil)

	r := gin.New()
	h := NewActor(inv)
	r.GET("/actors/:actorId", h.Get)
	r.GET("/actors/:actorId/items", h.Items)

	w, env := do(t, r, http.MethodGet, "/actors/p1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"id":"p1","name":"Aria","kind":"player","tokenLinked":true,"purse":{"pp":1,"gp":2,"ep":0,"sp":5,"cp":0},"total":"12gp 5sp"}`,
		string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/actors/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// limit 上限 100
	w, env = do(t, r, http.MethodGet, "/actors/p1/items?page=2&limit=500", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"items":[{"id":"i1","name":"Potion","type":"consumable","quantity":4,"price":"5sp"}],"total":101}`,
		string(env.Data))
	inv.AssertExpectations(t)
}
