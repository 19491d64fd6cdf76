package chatfeed

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"tradepost.com/pkg/logger"
	"tradepost.com/pkg/metrics"
)

// ClientMsg 客户端订阅指令
type ClientMsg struct {
	Type   string   `json:"type"`   // "sub" | "unsub"
	Topics []string `json:"topics"` // topic list
}

type Conn struct {
	ws     *websocket.Conn
	hub    *Hub
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
}

// Offer 非阻塞投递；聊天消息不能合并，队列满了只能丢
func (c *Conn) Offer(payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		metrics.NotifyDropTotal.WithLabelValues("feed", "slow_client").Inc()
		return false
	}
}

type Server struct {
	Hub      *Hub
	Upgrader websocket.Upgrader
	SendBuf  int

	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
	ReadLimit  int64
}

func NewServer(h *Hub) *Server {
	return &Server{
		Hub: h,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 跨域由 cors 中间件统一控制
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		SendBuf:    256,
		PongWait:   60 * time.Second,
		PingPeriod: 30 * time.Second,
		WriteWait:  5 * time.Second,
		ReadLimit:  1 << 10,
	}
}

func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(r.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Conn{ws: wsConn, hub: s.Hub, send: make(chan []byte, s.SendBuf), done: make(chan struct{})}
	// 连接生命周期和 http 请求无关
	ctx := context.WithoutCancel(r.Context())
	go s.writePump(ctx, c)
	go s.readPump(ctx, c)
}

func (s *Server) readPump(ctx context.Context, c *Conn) {
	defer func() {
		// send 不关闭，Publish 可能还拿着这个连接
		c.closed.Store(true)
		c.hub.RemoveConn(c)
		close(c.done)
	}()

	c.ws.SetReadLimit(s.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(s.PongWait))
	})

	for {
		_, b, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(ctx, "websocket read error", zap.Error(err))
			}
			return
		}
		var msg ClientMsg
		if json.Unmarshal(b, &msg) != nil {
			continue
		}
		switch msg.Type {
		case "sub":
			c.hub.Subscribe(c, msg.Topics)
		case "unsub":
			c.hub.Unsubscribe(c, msg.Topics)
		}
	}
}

func (s *Server) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(s.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(s.WriteWait))
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(s.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug(ctx, "websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.WriteWait)); err != nil {
				return
			}
		}
	}
}
