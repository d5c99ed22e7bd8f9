package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	"sitekeeper/internal/app/client/config"
)

const (
	EventJoinSite         = "join_site"
	EventAttendanceUpdate = "attendance_update"
)

// Message кадр канала событий
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Handler func(data json.RawMessage)

// Notifier держит одно подключение к каналу событий и переподключается
// бесконечно с задержкой от 1 до 5 секунд.
type Notifier struct {
	url    string
	token  func() string
	dialer *websocket.Dialer
	log    *slog.Logger

	initialInterval time.Duration
	maxInterval     time.Duration

	mu       sync.RWMutex
	handlers map[string]Handler
	siteID   string
	conn     *websocket.Conn

	writeMu sync.Mutex
}

func NewNotifier(cfg *config.Config, token func() string, log *slog.Logger) *Notifier {
	scheme := "ws://"
	if cfg.EnableTLS {
		scheme = "wss://"
	}
	return newNotifier(scheme+cfg.ServerAddress+"/ws", token, log)
}

func newNotifier(url string, token func() string, log *slog.Logger) *Notifier {
	return &Notifier{
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log:             log.With(slog.String("component", "notifier")),
		initialInterval: time.Second,
		maxInterval:     5 * time.Second,
		handlers:        make(map[string]Handler),
	}
}

// Subscribe задает обработчик события, прежний обработчик снимается
func (n *Notifier) Subscribe(event string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[event] = h
}

func (n *Notifier) Unsubscribe(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handlers, event)
}

// JoinSite запоминает объект и сразу подписывается, если канал открыт.
// После переподключения подписка повторяется автоматически.
func (n *Notifier) JoinSite(siteID string) error {
	n.mu.Lock()
	n.siteID = siteID
	conn := n.conn
	n.mu.Unlock()

	if conn == nil || siteID == "" {
		return nil
	}
	return n.send(conn, EventJoinSite, siteID)
}

func (n *Notifier) Connected() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.conn != nil
}

// Start держит подключение до отмены контекста
func (n *Notifier) Start(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.initialInterval
	b.MaxInterval = n.maxInterval
	b.MaxElapsedTime = 0

	op := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		conn, err := n.connect(ctx)
		if err != nil {
			return err
		}
		b.Reset()

		return n.serve(ctx, conn)
	}

	notify := func(err error, wait time.Duration) {
		n.log.Debug("realtime channel down, reconnecting", "error", err, "retry_in", wait)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	n.log.Info("Канал событий остановлен")
	return nil
}

func (n *Notifier) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if token := n.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := n.dialer.DialContext(ctx, n.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("канал событий: токен отклонен: %w", err)
		}
		return nil, fmt.Errorf("канал событий: %w", err)
	}

	n.mu.Lock()
	n.conn = conn
	siteID := n.siteID
	n.mu.Unlock()

	n.log.Info("realtime channel connected", "url", n.url)

	if siteID != "" {
		if err := n.send(conn, EventJoinSite, siteID); err != nil {
			n.drop(conn)
			return nil, err
		}
	}

	return conn, nil
}

// serve читает кадры до ошибки. Обработчики вызываются асинхронно.
func (n *Notifier) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer n.drop(conn)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("канал событий: %w", err)
		}

		n.mu.RLock()
		h := n.handlers[msg.Event]
		n.mu.RUnlock()

		if h != nil {
			go h(msg.Data)
		}
	}
}

func (n *Notifier) send(conn *websocket.Conn, event, siteID string) error {
	data, err := json.Marshal(siteID)
	if err != nil {
		return err
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(Message{Event: event, Data: data}); err != nil {
		return fmt.Errorf("отправка %s: %w", event, err)
	}
	return nil
}

func (n *Notifier) drop(conn *websocket.Conn) {
	n.mu.Lock()
	if n.conn == conn {
		n.conn = nil
	}
	n.mu.Unlock()
	conn.Close()
}
