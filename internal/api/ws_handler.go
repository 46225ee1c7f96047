package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"resumebuilder/internal/auth"
	"resumebuilder/internal/worker"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

// NotificationSource 按用户订阅抽取结果通知。返回的 channel 在 ctx 结束或订阅失效时关闭。
type NotificationSource interface {
	Subscribe(ctx context.Context, userID uint) (<-chan string, error)
}

type redisNotifications struct {
	client *redis.Client
}

// NewRedisNotifications 订阅 worker 发布到 user_notify:<uid> 的消息。
func NewRedisNotifications(client *redis.Client) NotificationSource {
	return redisNotifications{client: client}
}

func (n redisNotifications) Subscribe(ctx context.Context, userID uint) (<-chan string, error) {
	pubsub := n.client.Subscribe(ctx, worker.NotifyChannel(userID))
	// 等待订阅确认，避免漏掉紧随其后的发布。
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// NotificationHandler 把后台抽取任务的结果推送给浏览器。
type NotificationHandler struct {
	source      NotificationSource
	authService *auth.AuthService
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewNotificationHandler(source NotificationSource, authService *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *NotificationHandler {
	return &NotificationHandler{
		source:      source,
		authService: authService,
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return originAllowed(r, allowedOrigins) },
		},
	}
}

// originAllowed 未配置白名单时只接受同源请求；没有 Origin 头的非浏览器客户端直接放行。
func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowed) > 0 {
		return slices.Contains(allowed, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

var errWSAuth = errors.New("websocket auth required")

// Connect 升级连接。第一条消息必须是 {"type":"auth","token":"..."}，
// 鉴权通过后只转发该用户的通知，客户端的其他消息被忽略。
func (h *NotificationHandler) Connect(c *gin.Context) {
	if h.source == nil {
		Error(c, http.StatusServiceUnavailable, "notifications are not configured")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	userID, err := h.authenticate(conn)
	if err != nil {
		log.Info("websocket auth rejected", slog.Any("error", err))
		closeWith(conn, websocket.ClosePolicyViolation, "unauthorized")
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(userID)))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	notifications, err := h.source.Subscribe(ctx, userID)
	if err != nil {
		log.Error("subscribe notifications failed", slog.Any("error", err))
		closeWith(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}

	// 读协程只用于发现客户端断开。
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	log.Info("websocket connected")
	h.forward(ctx, conn, notifications, log)
	log.Info("websocket closed")
}

func (h *NotificationHandler) authenticate(conn *websocket.Conn) (uint, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg wsAuthMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return 0, err
	}
	if msg.Type != "auth" || msg.Token == "" {
		return 0, errWSAuth
	}
	claims, err := h.authService.ValidateToken(msg.Token)
	if err != nil {
		return 0, err
	}
	return claims.UserID, nil
}

func (h *NotificationHandler) forward(ctx context.Context, conn *websocket.Conn, notifications <-chan string, log *slog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-notifications:
			if !ok {
				closeWith(conn, websocket.CloseGoingAway, "notifications ended")
				return
			}
			if !json.Valid([]byte(payload)) {
				log.Warn("drop malformed notification")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				log.Info("write notification failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(wsWriteTimeout))
}
