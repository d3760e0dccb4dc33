package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestWithEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestConfigureFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log := Logger()
	if err := log.Configure("debug", "json", path, 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	log.WithComponent("collector").Debug("collected")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"collector"`) {
		t.Fatalf("entry not written: %s", data)
	}
}

func TestConfigureDir(t *testing.T) {
	dir := t.TempDir()
	log := Logger()
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	path, err := log.ConfigureDir(dir, 0, now)
	if err != nil {
		t.Fatalf("ConfigureDir: %v", err)
	}
	if filepath.Base(path) != "test_20240309.log" {
		t.Fatalf("unexpected file name: %s", path)
	}
}

func TestPreview(t *testing.T) {
	short := []byte(`{"method":"public/heartbeat"}`)
	if Preview(short) != string(short) {
		t.Fatalf("short payload changed")
	}
	long := bytes.Repeat([]byte("a"), PreviewLimit+50)
	got := Preview(long)
	if len(got) != PreviewLimit+3 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected preview length %d", len(got))
	}
}

func TestCountersAndReport(t *testing.T) {
	resetCounters()
	defer resetCounters()

	IncrementScenario(true)
	IncrementScenario(true)
	IncrementScenario(false)
	IncrementRestRequest()
	IncrementWSMessage("book", 10)
	IncrementWSMessage("book.update", 12)
	IncrementHeartbeat()

	c := Snapshot()
	if c.ScenariosPassed != 2 || c.ScenariosFailed != 1 {
		t.Fatalf("scenario counters: %+v", c)
	}
	if c.RestRequests != 1 || c.WSMessages != 2 || c.Heartbeats != 1 {
		t.Fatalf("transport counters: %+v", c)
	}

	var buf bytes.Buffer
	log := Logger()
	log.SetOutput(&buf)
	LogReport(context.Background(), log)
	if !strings.Contains(buf.String(), `"scenarios_failed":1`) {
		t.Fatalf("report missing counters: %s", buf.String())
	}
}
