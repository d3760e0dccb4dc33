package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apiconform/logger"
	"apiconform/models"
)

const DefaultPollTimeout = time.Second

// MessageStopper ends a collection based on the latest message alone.
type MessageStopper interface {
	StopOnMessage(msg models.Message) bool
}

// HistoryStopper ends a collection based on the latest message and every
// message kept so far, the latest included.
type HistoryStopper interface {
	StopOnHistory(msg models.Message, history []models.Message) bool
}

type MessageFunc func(models.Message) bool

func (f MessageFunc) StopOnMessage(msg models.Message) bool { return f(msg) }

type HistoryFunc func(models.Message, []models.Message) bool

func (f HistoryFunc) StopOnHistory(msg models.Message, history []models.Message) bool {
	return f(msg, history)
}

// Receiver is the part of WSClient the collector polls.
type Receiver interface {
	Connected() bool
	Receive(ctx context.Context) (models.Message, error)
	SetReceiveTimeout(d time.Duration) time.Duration
}

// Batch is the outcome of one collection.
type Batch struct {
	Messages   []models.Message
	Heartbeats int
	Stopped    bool
}

type CollectorOption func(*Collector)

// WithPollTimeout sets the per-receive timeout used while polling.
func WithPollTimeout(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.poll = d
		}
	}
}

// KeepHeartbeats returns heartbeat frames and shows them to stoppers.
func KeepHeartbeats() CollectorOption {
	return func(c *Collector) { c.keepHeartbeats = true }
}

// Collector gathers pushes from a receiver for a bounded time.
type Collector struct {
	src            Receiver
	poll           time.Duration
	keepHeartbeats bool
	log            *logger.Entry
}

func NewCollector(src Receiver, opts ...CollectorOption) *Collector {
	c := &Collector{
		src:  src,
		poll: DefaultPollTimeout,
		log:  logger.GetLogger().WithComponent("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Until collects until stop accepts a message or maxWait elapses.
func (c *Collector) Until(ctx context.Context, stop MessageStopper, maxWait time.Duration) (Batch, error) {
	var fn func(models.Message, []models.Message) bool
	if stop != nil {
		fn = func(m models.Message, _ []models.Message) bool { return stop.StopOnMessage(m) }
	}
	return c.collect(ctx, fn, maxWait)
}

// UntilHistory collects until stop accepts the history or maxWait elapses.
func (c *Collector) UntilHistory(ctx context.Context, stop HistoryStopper, maxWait time.Duration) (Batch, error) {
	var fn func(models.Message, []models.Message) bool
	if stop != nil {
		fn = stop.StopOnHistory
	}
	return c.collect(ctx, fn, maxWait)
}

// For collects everything that arrives within d.
func (c *Collector) For(ctx context.Context, d time.Duration) (Batch, error) {
	return c.collect(ctx, nil, d)
}

// collect polls with short receive timeouts so the overall deadline is
// rechecked between frames. A local timeout is not an error; the
// receiver's timeout is restored on every exit path.
func (c *Collector) collect(ctx context.Context, stop func(models.Message, []models.Message) bool, maxWait time.Duration) (Batch, error) {
	var batch Batch
	if c.src == nil || !c.src.Connected() {
		return batch, fmt.Errorf("collect: %w", ErrNotConnected)
	}

	c.log.WithFields(logger.Fields{
		"max_wait_ms":     maxWait.Milliseconds(),
		"poll_ms":         c.poll.Milliseconds(),
		"has_stopper":     stop != nil,
		"keep_heartbeats": c.keepHeartbeats,
	}).Info("collection started")

	prev := c.src.SetReceiveTimeout(c.poll)
	defer c.src.SetReceiveTimeout(prev)
	defer func() {
		c.log.WithFields(logger.Fields{
			"messages":   len(batch.Messages),
			"heartbeats": batch.Heartbeats,
			"stopped":    batch.Stopped,
		}).Info("collection finished")
	}()

	deadline := time.Now().Add(maxWait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return batch, nil
		}
		if remaining < c.poll {
			c.src.SetReceiveTimeout(remaining)
		}

		msg, err := c.src.Receive(ctx)
		if err != nil {
			if errors.Is(err, ErrReceiveTimeout) {
				continue
			}
			return batch, err
		}

		if msg.IsHeartbeat() {
			batch.Heartbeats++
			logger.IncrementHeartbeat()
			if !c.keepHeartbeats {
				continue
			}
		}

		batch.Messages = append(batch.Messages, msg)
		c.log.WithFields(logger.Fields{
			"index":   len(batch.Messages),
			"payload": logger.Preview(msg.Raw),
		}).Debug("collected message")

		if stop != nil && stop(msg, batch.Messages) {
			batch.Stopped = true
			return batch, nil
		}
	}
}
