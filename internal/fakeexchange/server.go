// Package fakeexchange serves a deterministic stand-in for the exchange's
// public REST and websocket market API. Push timestamps advance by the
// nominal feed intervals regardless of real scheduling jitter.
package fakeexchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"apiconform/bizstatus"
	"apiconform/logger"
	"apiconform/models"
)

const (
	pathPrefix    = "/v1"
	defaultPace   = 1.0
	defaultDepth  = 10
	basePriceText = "30082.5"
)

// Options configures the double. Zero values take the defaults of the
// production feed.
type Options struct {
	Instruments         []string
	SnapshotIntervalMs  int64
	HeartbeatIntervalMs int64
	// Updates is the number of data-bearing book.update frames sent after
	// the snapshot before the feed falls back to empty heartbeat updates.
	Updates int
	// PingInterval spaces public/heartbeat pushes; zero disables them.
	PingInterval time.Duration
	// Pace scales real delays; virtual timestamps are unaffected.
	Pace      float64
	APIKey    string
	SecretKey string
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if len(o.Instruments) == 0 {
		o.Instruments = []string{"BTCUSD-PERP", "ETHUSD-PERP"}
	}
	if o.SnapshotIntervalMs <= 0 {
		o.SnapshotIntervalMs = 500
	}
	if o.HeartbeatIntervalMs <= 0 {
		o.HeartbeatIntervalMs = 5000
	}
	if o.Updates <= 0 {
		o.Updates = 1
	}
	if o.Pace <= 0 {
		o.Pace = defaultPace
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func (o Options) realDelay(ms int64) time.Duration {
	return time.Duration(float64(ms) * o.Pace * float64(time.Millisecond))
}

// Server is the exchange double.
type Server struct {
	opts        Options
	instruments map[string]bool
	router      *mux.Router
	upgrader    websocket.Upgrader
	log         *logger.Entry

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	baseURL  string
	wsBase   string
	conns    sync.WaitGroup
	done     chan struct{}
}

func New(opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		opts:        opts,
		instruments: make(map[string]bool, len(opts.Instruments)),
		upgrader:    websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		log:         logger.GetLogger().WithComponent("fake_exchange"),
		done:        make(chan struct{}),
	}
	for _, name := range opts.Instruments {
		s.instruments[name] = true
	}

	r := mux.NewRouter()
	api := r.PathPrefix(pathPrefix).Subrouter()
	api.HandleFunc("/public/get-candlestick", s.handleCandlestick).Methods(http.MethodGet)
	api.HandleFunc("/market", s.handleMarket)
	api.HandleFunc("/user", s.handleUser)
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router = r
	return s
}

// Handler exposes the routes for use with httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr ("127.0.0.1:0" picks a free port) and serves in
// the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("fake exchange already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.listener = ln
	s.http = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	s.baseURL = "http://" + ln.Addr().String() + pathPrefix
	s.wsBase = "ws://" + ln.Addr().String() + pathPrefix

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("fake exchange stopped")
		}
	}()
	s.log.WithFields(logger.Fields{"addr": ln.Addr().String()}).Info("fake exchange listening")
	return nil
}

// Close stops the listener and every open websocket session.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	s.conns.Wait()
	return err
}

// RESTURL, MarketURL and UserURL are valid after Start.
func (s *Server) RESTURL() string   { return s.baseURL }
func (s *Server) MarketURL() string { return s.wsBase + "/market" }
func (s *Server) UserURL() string   { return s.wsBase + "/user" }

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, bizstatus.NotFound, http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError replies with code and the HTTP status the registry lists for
// it, unless status overrides it.
func writeError(w http.ResponseWriter, code int, status int) {
	if status == 0 {
		status = bizstatus.ExpectedHTTPStatus(code)
	}
	writeJSON(w, status, models.Response{Code: code, Message: bizstatus.CodeString(code)})
}
