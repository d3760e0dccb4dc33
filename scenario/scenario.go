// Package scenario holds the conformance scenarios for the book channel
// and the candlestick endpoint, plus the runner that executes them.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"apiconform/config"
	"apiconform/logger"
	"apiconform/models"
	"apiconform/transport"
	"apiconform/writer"
)

const (
	TagBook        = "book"
	TagCandlestick = "candlestick"
	TagAbnormal    = "abnormal"
)

// Scenario is one named check against the exchange.
type Scenario struct {
	ID   string
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Env) error
}

// HasTag reports whether tag is attached to the scenario.
func (s Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Env carries the shared dependencies scenarios run against.
type Env struct {
	RunID   string
	Config  config.Config
	REST    *transport.RestClient
	Capture *writer.CaptureWriter
	Now     func() time.Time

	log *logger.Entry
}

// NewEnv builds the REST client from cfg. capture may be nil.
func NewEnv(runID string, cfg config.Config, capture *writer.CaptureWriter) *Env {
	return &Env{
		RunID:   runID,
		Config:  cfg,
		REST:    transport.NewRestClient(cfg.REST),
		Capture: capture,
		Now:     time.Now,
		log:     logger.GetLogger().WithComponent("scenario"),
	}
}

func (e *Env) nowMs() int64 {
	if e.Now == nil {
		return time.Now().UnixMilli()
	}
	return e.Now().UnixMilli()
}

func (e *Env) entry() *logger.Entry {
	if e.log == nil {
		e.log = logger.GetLogger().WithComponent("scenario")
	}
	return e.log
}

func (e *Env) record(id string, msgs []models.Message) {
	e.Capture.Record(id, msgs)
}

// market opens a dedicated market connection for fn and closes it after.
func (e *Env) market(ctx context.Context, fn func(ws *transport.WSClient) error) error {
	ws := transport.NewWSClient(e.Config.WebSocket.MarketURL, e.Config.WebSocket, nil)
	if err := ws.Connect(ctx); err != nil {
		return fmt.Errorf("connect market websocket: %w", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			e.entry().WithError(err).Debug("close market websocket")
		}
	}()
	return fn(ws)
}

func millis(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

// checkAll joins every failed check so a report lists all of them.
func checkAll(errs ...error) error {
	return errors.Join(errs...)
}

// All returns every scenario for the configured instruments.
func All(instr config.InstrumentsConfig) []Scenario {
	out := BookScenarios(instr)
	return append(out, CandlestickScenarios(instr)...)
}

// Select keeps the scenarios whose id starts with, or whose tags contain,
// one of filters. An empty filter list keeps everything.
func Select(scenarios []Scenario, filters []string) []Scenario {
	var active []string
	for _, f := range filters {
		if f = strings.TrimSpace(f); f != "" {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return scenarios
	}
	var out []Scenario
	for _, s := range scenarios {
		for _, f := range active {
			if strings.HasPrefix(strings.ToUpper(s.ID), strings.ToUpper(f)) || s.HasTag(f) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
