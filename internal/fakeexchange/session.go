package fakeexchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"apiconform/bizstatus"
	"apiconform/logger"
	"apiconform/models"
	"apiconform/signature"
)

const (
	subscriptionSnapshot          = "SNAPSHOT"
	subscriptionSnapshotAndUpdate = "SNAPSHOT_AND_UPDATE"
	methodUnsubscribe             = "unsubscribe"
	methodRespondHeartbeat        = "public/respond-heartbeat"
)

var (
	validDepths         = map[int64]bool{10: true, 50: true}
	snapshotFrequencies = map[int64]bool{500: true}
	updateFrequencies   = map[int64]bool{10: true, 100: true}
)

type request struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	APIKey string         `json:"api_key,omitempty"`
	Params map[string]any `json:"params"`
	Nonce  int64          `json:"nonce,omitempty"`
	Sig    string         `json:"sig,omitempty"`
}

// bookSubscription is one validated book channel.
type bookSubscription struct {
	channel    string
	instrument string
	depth      int
	mode       string
	freqMs     int64
}

type session struct {
	server *Server
	conn   *websocket.Conn
	user   bool
	log    *logger.Entry

	writeMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	feeds   sync.WaitGroup

	mu         sync.Mutex
	feedCancel []context.CancelFunc
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) { s.serveSession(w, r, false) }
func (s *Server) handleUser(w http.ResponseWriter, r *http.Request)   { s.serveSession(w, r, true) }

func (s *Server) serveSession(w http.ResponseWriter, r *http.Request, user bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		server: s,
		conn:   conn,
		user:   user,
		log:    s.log.WithFields(logger.Fields{"remote": r.RemoteAddr, "endpoint": r.URL.Path}),
		ctx:    ctx,
		cancel: cancel,
	}
	go func() {
		select {
		case <-s.done:
		case <-ctx.Done():
		}
		_ = conn.Close()
	}()
	if s.opts.PingInterval > 0 {
		sess.feeds.Add(1)
		go sess.pingLoop(s.opts.PingInterval)
	}

	sess.log.Info("session opened")
	sess.readLoop()
	cancel()
	sess.feeds.Wait()
	sess.log.Info("session closed")
}

func (c *session) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *session) reply(req request, code int, result any) {
	resp := models.Response{ID: req.ID, Method: req.Method, Code: code, Result: result}
	if code != bizstatus.Success {
		resp.Message = bizstatus.CodeString(code)
	}
	if err := c.send(resp); err != nil {
		c.log.WithError(err).Debug("reply failed")
	}
}

func (c *session) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.reply(request{}, bizstatus.InvalidRequest, nil)
			continue
		}
		c.dispatch(req)
	}
}

func (c *session) dispatch(req request) {
	switch req.Method {
	case signature.MethodSubscribe:
		subs, err := c.server.parseBookSubscriptions(req.Params)
		if err != nil {
			c.log.WithFields(logger.Fields{"id": req.ID, "reason": err.Error()}).Info("subscribe rejected")
			c.reply(req, bizstatus.InvalidRequest, nil)
			return
		}
		c.reply(req, bizstatus.Success, nil)
		for _, sub := range subs {
			c.startFeed(sub)
		}
	case methodUnsubscribe:
		c.stopFeeds()
		c.reply(req, bizstatus.Success, nil)
	case signature.MethodAuth:
		c.reply(req, c.server.authenticate(req), nil)
	case methodRespondHeartbeat:
	default:
		c.reply(req, bizstatus.MethodNotFound, nil)
	}
}

// authenticate accepts unsigned envelopes unless the double holds
// credentials, in which case api_key and sig must match.
func (s *Server) authenticate(req request) int {
	if s.opts.APIKey == "" {
		return bizstatus.Success
	}
	if req.APIKey != s.opts.APIKey {
		return bizstatus.Unauthorized
	}
	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	want := signature.Sign(s.opts.SecretKey, req.Method, req.ID, req.APIKey, params, req.Nonce)
	if req.Sig != want {
		return bizstatus.Unauthorized
	}
	return bizstatus.Success
}

func integral(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func (s *Server) parseBookSubscriptions(params map[string]any) ([]bookSubscription, error) {
	rawChannels, ok := params["channels"].([]any)
	if !ok || len(rawChannels) == 0 {
		return nil, errors.New("channels missing or empty")
	}

	mode := subscriptionSnapshot
	if v, ok := params["book_subscription_type"]; ok {
		m, _ := v.(string)
		if m != subscriptionSnapshot && m != subscriptionSnapshotAndUpdate {
			return nil, fmt.Errorf("unknown subscription type %v", v)
		}
		mode = m
	}

	freq := int64(500)
	allowed := snapshotFrequencies
	if mode == subscriptionSnapshotAndUpdate {
		freq = 10
		allowed = updateFrequencies
	}
	if v, ok := params["book_update_frequency"]; ok {
		f, ok := integral(v)
		if !ok || !allowed[f] {
			return nil, fmt.Errorf("update frequency %v not allowed for %s", v, mode)
		}
		freq = f
	}

	subs := make([]bookSubscription, 0, len(rawChannels))
	for _, rc := range rawChannels {
		name, _ := rc.(string)
		parts := strings.Split(name, ".")
		if len(parts) != 3 || parts[0] != models.ChannelBook {
			return nil, fmt.Errorf("malformed channel %q", name)
		}
		if !s.instruments[parts[1]] {
			return nil, fmt.Errorf("unknown instrument %q", parts[1])
		}
		depth, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || !validDepths[depth] {
			return nil, fmt.Errorf("invalid depth %q", parts[2])
		}
		subs = append(subs, bookSubscription{
			channel:    name,
			instrument: parts[1],
			depth:      int(depth),
			mode:       mode,
			freqMs:     freq,
		})
	}
	return subs, nil
}

func (c *session) startFeed(sub bookSubscription) {
	ctx, cancel := context.WithCancel(c.ctx)
	c.mu.Lock()
	c.feedCancel = append(c.feedCancel, cancel)
	c.mu.Unlock()

	c.feeds.Add(1)
	go func() {
		defer c.feeds.Done()
		defer cancel()
		var err error
		if sub.mode == subscriptionSnapshotAndUpdate {
			err = c.runUpdateFeed(ctx, sub)
		} else {
			err = c.runSnapshotFeed(ctx, sub)
		}
		if err != nil && ctx.Err() == nil {
			c.log.WithError(err).WithFields(logger.Fields{"channel": sub.channel}).Debug("feed stopped")
		}
	}()
}

func (c *session) stopFeeds() {
	c.mu.Lock()
	cancels := c.feedCancel
	c.feedCancel = nil
	c.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (c *session) pingLoop(interval time.Duration) {
	defer c.feeds.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case now := <-ticker.C:
			hb := models.Response{ID: now.UnixMilli(), Method: models.HeartbeatMethod, Code: bizstatus.Success}
			if err := c.send(hb); err != nil {
				return
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func seedUpdateID(instrument string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(instrument))
	return int64(h.Sum32()%100000) + 1000
}

func levels(n int, ascending bool) []models.BookLevel {
	base := decimal.RequireFromString(basePriceText)
	tick := decimal.RequireFromString("0.5")
	out := make([]models.BookLevel, n)
	for i := 0; i < n; i++ {
		offset := tick.Mul(decimal.NewFromInt(int64(i)))
		px := base.Add(offset)
		if !ascending {
			px = base.Sub(tick).Sub(offset)
		}
		qty := decimal.RequireFromString("0.1689").Add(decimal.NewFromInt(int64(i)).Shift(-2))
		out[i] = models.BookLevel{px.String(), qty.String(), strconv.Itoa(i%3 + 1)}
	}
	return out
}

func (c *session) push(sub bookSubscription, channel string, data models.BookData) error {
	return c.send(models.BookPush{
		ID:     -1,
		Method: signature.MethodSubscribe,
		Code:   bizstatus.Success,
		Result: models.BookResult{
			InstrumentName: sub.instrument,
			Subscription:   sub.channel,
			Channel:        channel,
			Depth:          sub.depth,
			Data:           []models.BookData{data},
		},
	})
}

func (c *session) snapshot(sub bookSubscription, t, u int64) models.BookData {
	return models.BookData{
		Asks: levels(sub.depth, true),
		Bids: levels(sub.depth, false),
		T:    t,
		TT:   t,
		U:    u,
		CS:   int64(sub.depth),
	}
}

// runSnapshotFeed pushes a full snapshot every snapshot interval. The book
// never changes, so every snapshot carries the same u.
func (c *session) runSnapshotFeed(ctx context.Context, sub bookSubscription) error {
	opts := c.server.opts
	t := opts.Now().UnixMilli()
	u := seedUpdateID(sub.instrument)
	for {
		if err := c.push(sub, models.ChannelBook, c.snapshot(sub, t, u)); err != nil {
			return err
		}
		if err := sleep(ctx, opts.realDelay(opts.SnapshotIntervalMs)); err != nil {
			return err
		}
		t += opts.SnapshotIntervalMs
	}
}

// runUpdateFeed sends one snapshot, opts.Updates linked updates spaced by
// the subscription frequency, then empty updates every heartbeat interval.
func (c *session) runUpdateFeed(ctx context.Context, sub bookSubscription) error {
	opts := c.server.opts
	t := opts.Now().UnixMilli()
	u := seedUpdateID(sub.instrument)
	if err := c.push(sub, models.ChannelBook, c.snapshot(sub, t, u)); err != nil {
		return err
	}

	next := func(side models.BookSide, stepMs int64) error {
		if err := sleep(ctx, opts.realDelay(stepMs)); err != nil {
			return err
		}
		t += stepMs
		pu := u
		u++
		return c.push(sub, models.ChannelBookUpdate, models.BookData{
			Update: &side,
			T:      t,
			TT:     t,
			U:      u,
			PU:     &pu,
			CS:     int64(sub.depth),
		})
	}

	for i := 0; i < opts.Updates; i++ {
		change := models.BookSide{
			Asks: levels(1, true),
			Bids: []models.BookLevel{},
		}
		if err := next(change, sub.freqMs); err != nil {
			return err
		}
	}
	for {
		empty := models.BookSide{Asks: []models.BookLevel{}, Bids: []models.BookLevel{}}
		if err := next(empty, opts.HeartbeatIntervalMs); err != nil {
			return err
		}
	}
}
