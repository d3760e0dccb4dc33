package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type channelStat struct {
	messages int64
	bytes    int64
}

var (
	errorCount       int64
	warnCount        int64
	scenariosPassed  int64
	scenariosFailed  int64
	restRequests     int64
	wsMessages       int64
	heartbeatsSeen   int64
	captureRowsWrote int64
	channels         sync.Map // map[string]*channelStat
)

func recordWarn()  { atomic.AddInt64(&warnCount, 1) }
func recordError() { atomic.AddInt64(&errorCount, 1) }

func IncrementScenario(passed bool) {
	if passed {
		atomic.AddInt64(&scenariosPassed, 1)
		return
	}
	atomic.AddInt64(&scenariosFailed, 1)
}

func IncrementRestRequest() {
	atomic.AddInt64(&restRequests, 1)
}

// IncrementWSMessage counts one inbound frame under the given channel name.
func IncrementWSMessage(channel string, size int) {
	atomic.AddInt64(&wsMessages, 1)
	recordChannel(channel, size)
}

func IncrementHeartbeat() {
	atomic.AddInt64(&heartbeatsSeen, 1)
}

func IncrementCaptureRows(n int) {
	atomic.AddInt64(&captureRowsWrote, int64(n))
}

func recordChannel(name string, size int) {
	if name == "" {
		name = "unknown"
	}
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// Counters is a point-in-time copy of the run counters.
type Counters struct {
	ScenariosPassed int64
	ScenariosFailed int64
	RestRequests    int64
	WSMessages      int64
	Heartbeats      int64
	CaptureRows     int64
	Warnings        int64
	Errors          int64
}

func Snapshot() Counters {
	return Counters{
		ScenariosPassed: atomic.LoadInt64(&scenariosPassed),
		ScenariosFailed: atomic.LoadInt64(&scenariosFailed),
		RestRequests:    atomic.LoadInt64(&restRequests),
		WSMessages:      atomic.LoadInt64(&wsMessages),
		Heartbeats:      atomic.LoadInt64(&heartbeatsSeen),
		CaptureRows:     atomic.LoadInt64(&captureRowsWrote),
		Warnings:        atomic.LoadInt64(&warnCount),
		Errors:          atomic.LoadInt64(&errorCount),
	}
}

// StartReport logs the run report every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				LogReport(ctx, log)
			}
		}
	}()
}

// LogReport emits one run report entry and publishes the same counters to
// CloudWatch.
func LogReport(ctx context.Context, log *Log) {
	c := Snapshot()
	channelData := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		cs := v.(*channelStat)
		channelData[k.(string)] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})

	log.WithComponent("report").WithFields(Fields{
		"scenarios_passed": c.ScenariosPassed,
		"scenarios_failed": c.ScenariosFailed,
		"rest_requests":    c.RestRequests,
		"ws_messages":      c.WSMessages,
		"heartbeats":       c.Heartbeats,
		"capture_rows":     c.CaptureRows,
		"warnings":         c.Warnings,
		"errors":           c.Errors,
		"goroutines":       runtime.NumGoroutine(),
		"channels":         channelData,
	}).Info("run report")

	count := func(name string, v int64) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{MetricName: aws.String(name), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(v))}
	}
	data := []cwtypes.MetricDatum{
		count("ScenariosPassed", c.ScenariosPassed),
		count("ScenariosFailed", c.ScenariosFailed),
		count("RestRequests", c.RestRequests),
		count("WSMessages", c.WSMessages),
		count("Heartbeats", c.Heartbeats),
		count("CaptureRows", c.CaptureRows),
	}
	for name, stats := range channelData {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("ChannelMessages"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Channel"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["messages"])),
		})
	}
	publishMetrics(ctx, data)
}

func resetCounters() {
	for _, p := range []*int64{&errorCount, &warnCount, &scenariosPassed, &scenariosFailed,
		&restRequests, &wsMessages, &heartbeatsSeen, &captureRowsWrote} {
		atomic.StoreInt64(p, 0)
	}
	channels.Range(func(k, _ any) bool {
		channels.Delete(k)
		return true
	})
}
