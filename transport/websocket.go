package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"apiconform/config"
	"apiconform/internal/ratelimit"
	"apiconform/logger"
	"apiconform/models"
	"apiconform/signature"
)

var (
	ErrReceiveTimeout = errors.New("websocket receive timeout")
	ErrNotConnected   = errors.New("websocket not connected")
	ErrClosed         = errors.New("websocket connection closed")
)

const (
	respondHeartbeatMethod = "public/respond-heartbeat"
	defaultSignedSubID     = 23
	frameBuffer            = 256
)

type frame struct {
	data []byte
	at   time.Time
	err  error
}

// WSClient owns one duplex connection. Reads happen on a background
// goroutine that feeds frames to Receive, so a receive timeout never
// poisons the underlying connection.
type WSClient struct {
	url       string
	cfg       config.WebSocketConfig
	creds     signature.Credentials
	signer    *signature.Builder
	plain     *signature.Builder
	log       *logger.Entry
	writeMu   sync.Mutex
	mu        sync.Mutex
	conn      *websocket.Conn
	frames    chan frame
	done      chan struct{}
	readDone  chan struct{}
	timeout   time.Duration
}

// NewWSClient prepares a client for url. signer decides how authenticated
// envelopes are built; nil falls back to the mode named in cfg.Signing.
func NewWSClient(url string, cfg config.WebSocketConfig, signer *signature.Builder) *WSClient {
	if signer == nil {
		mode, err := signature.ParseMode(cfg.Signing)
		if err != nil {
			mode = signature.Unsigned
		}
		signer = signature.NewBuilder(mode)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WSClient{
		url:     url,
		cfg:     cfg,
		creds:   signature.Credentials{APIKey: cfg.APIKey, SecretKey: cfg.SecretKey},
		signer:  signer,
		plain:   signature.NewBuilder(signature.Unsigned),
		log:     logger.GetLogger().WithComponent("websocket_client").WithFields(logger.Fields{"url": url}),
		timeout: timeout,
	}
}

func (c *WSClient) URL() string { return c.url }

// Connected reports whether a connection is open.
func (c *WSClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials the endpoint. It is a no-op when already connected.
func (c *WSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.log.Debug("already connected, skipping connect")
		return nil
	}

	dialer := websocket.Dialer{
		Proxy:            websocket.DefaultDialer.Proxy,
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	c.log.Info("websocket connecting")
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.log.WithError(err).Error("websocket connect failed")
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.conn = conn
	c.frames = make(chan frame, frameBuffer)
	c.done = make(chan struct{})
	c.readDone = make(chan struct{})
	go c.readLoop(conn, c.frames, c.done, c.readDone)
	c.log.Info("websocket connected")
	return nil
}

func (c *WSClient) readLoop(conn *websocket.Conn, frames chan<- frame, done <-chan struct{}, readDone chan<- struct{}) {
	defer close(readDone)
	defer close(frames)
	for {
		_, data, err := conn.ReadMessage()
		f := frame{data: data, at: time.Now(), err: err}
		select {
		case frames <- f:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Close shuts the connection down. It is a no-op when not connected.
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	done := c.done
	readDone := c.readDone
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	c.log.Info("websocket closing")
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	close(done)
	err := conn.Close()
	<-readDone
	if err != nil {
		c.log.WithError(err).Warn("websocket close error")
	}
	return nil
}

// SetReceiveTimeout replaces the per-call receive timeout and returns the
// previous value.
func (c *WSClient) SetReceiveTimeout(d time.Duration) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.timeout
	c.timeout = d
	return prev
}

func (c *WSClient) ReceiveTimeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// SendJSON writes v as one text frame.
func (c *WSClient) SendJSON(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteJSON(v); err != nil {
		c.log.WithError(err).Error("websocket send failed")
		return fmt.Errorf("websocket send: %w", err)
	}
	c.log.WithField("payload", previewJSON(v)).Info("websocket send")
	return nil
}

// Receive blocks for one frame up to the current receive timeout.
func (c *WSClient) Receive(ctx context.Context) (models.Message, error) {
	c.mu.Lock()
	frames := c.frames
	connected := c.conn != nil
	timeout := c.timeout
	c.mu.Unlock()
	if !connected {
		return models.Message{}, ErrNotConnected
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var f frame
	var ok bool
	select {
	case f, ok = <-frames:
	case <-timer.C:
		return models.Message{}, fmt.Errorf("no frame within %s: %w", timeout, ErrReceiveTimeout)
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
	if !ok {
		return models.Message{}, ErrClosed
	}
	if f.err != nil {
		return models.Message{}, fmt.Errorf("websocket receive: %w", f.err)
	}

	msg, err := models.ParseMessage(f.data, f.at)
	if err != nil {
		c.log.WithField("payload", logger.Preview(f.data)).Warn("undecodable frame")
		return models.Message{}, err
	}
	logger.IncrementWSMessage(msg.Channel(), len(f.data))
	c.log.WithField("payload", logger.Preview(f.data)).Debug("websocket recv")

	if c.cfg.RespondHeartbeat && msg.IsHeartbeat() {
		if err := c.respondHeartbeat(msg); err != nil {
			return msg, err
		}
	}
	return msg, nil
}

// ReceiveJSON is Receive returning the decoded frame as plain Go values.
func (c *WSClient) ReceiveJSON(ctx context.Context) (map[string]any, error) {
	msg, err := c.Receive(ctx)
	if err != nil {
		return nil, err
	}
	obj, ok := msg.Root.Interface().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("frame is %s, not an object", msg.Root.Kind())
	}
	return obj, nil
}

func (c *WSClient) respondHeartbeat(hb models.Message) error {
	id, _ := hb.ID()
	return c.SendJSON(map[string]any{"id": id, "method": respondHeartbeatMethod})
}

// Authenticate sends one public/auth envelope and returns the reply.
func (c *WSClient) Authenticate(ctx context.Context, params map[string]any, requestID int64) (models.Message, error) {
	var opts []signature.BuildOption
	if requestID > 0 {
		opts = append(opts, signature.WithRequestID(requestID))
	}
	env := c.signer.Build(signature.MethodAuth, c.creds, params, opts...)
	c.log.WithFields(logger.Fields{"method": env.Method, "id": env.ID}).Info("websocket auth")
	return c.roundTrip(ctx, env)
}

// Subscribe sends a plain subscribe request and returns the acknowledgment.
func (c *WSClient) Subscribe(ctx context.Context, params map[string]any, requestID int64) (models.Message, error) {
	if params == nil {
		params = map[string]any{}
	}
	env := c.plain.Subscribe(params, signature.Credentials{}, requestID)
	return c.roundTrip(ctx, env)
}

// SubscribeSigned sends a subscribe request built by the client's signer.
// A zero requestID uses 23.
func (c *WSClient) SubscribeSigned(ctx context.Context, params map[string]any, requestID int64) (models.Message, error) {
	if requestID == 0 {
		requestID = defaultSignedSubID
	}
	env := c.signer.Subscribe(params, c.creds, requestID)
	return c.roundTrip(ctx, env)
}

// roundTrip sends env and returns the first reply that is not a
// heartbeat push.
func (c *WSClient) roundTrip(ctx context.Context, env signature.Envelope) (models.Message, error) {
	if err := c.SendJSON(env); err != nil {
		return models.Message{}, err
	}
	for {
		msg, err := c.Receive(ctx)
		if err != nil {
			return msg, err
		}
		if !msg.IsHeartbeat() {
			code, _ := msg.Code()
			text := ""
			if m, ok := msg.Get("message"); ok {
				text, _ = m.Text()
			}
			ratelimit.ReportFromReply(c.log, env.Method, 0, code, text)
			return msg, nil
		}
		logger.IncrementHeartbeat()
	}
}

func previewJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return logger.Preview(raw)
}
