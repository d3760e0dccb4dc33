package fakeexchange

import (
	"context"
	"net/http"
	"testing"
	"time"

	"apiconform/bizstatus"
	"apiconform/checker"
	"apiconform/config"
	"apiconform/models"
	"apiconform/signature"
	"apiconform/transport"
)

var fixedNow = time.Date(2026, 3, 10, 12, 34, 56, 0, time.UTC)

func startServer(t *testing.T, opts Options) *Server {
	t.Helper()
	s := New(opts)
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Close(ctx)
	})
	return s
}

var candlestickAPI = models.NewRestAPIBuilder("public/get-candlestick").MustBuild()

func TestCandlestick(t *testing.T) {
	s := startServer(t, Options{Now: func() time.Time { return fixedNow }})
	client := transport.NewRestClient(config.RESTConfig{BaseURL: s.RESTURL(), Timeout: 2 * time.Second})
	ctx := context.Background()
	now := fixedNow.UnixMilli()

	cases := []struct {
		name     string
		params   map[string]any
		status   int
		code     int64
		interval string
		step     checker.StepRule
		count    int
	}{
		{"default", map[string]any{"instrument_name": "BTCUSD-PERP"}, 200, 0, "1m", checker.ExactStep(minuteMs), 25},
		{"hourly", map[string]any{"instrument_name": "BTCUSD-PERP", "timeframe": "H4"}, 200, 0, "H4", checker.ExactStep(4 * hourMs), 25},
		{"monthly", map[string]any{"instrument_name": "BTCUSD-PERP", "timeframe": "1M"}, 200, 0, "1M", checker.StepBetween(28*dayMs, 31*dayMs), 25},
		{"count", map[string]any{"instrument_name": "ETHUSD-PERP", "count": 10}, 200, 0, "1m", checker.ExactStep(minuteMs), 10},
		{"missing instrument", nil, 400, 40003, "", checker.StepRule{}, 0},
		{"empty instrument", map[string]any{"instrument_name": ""}, 400, 40004, "", checker.StepRule{}, 0},
		{"unknown instrument", map[string]any{"instrument_name": "INVALID-SYMBOL"}, 400, 40004, "", checker.StepRule{}, 0},
		{"bad timeframe", map[string]any{"instrument_name": "BTCUSD-PERP", "timeframe": "INVALID"}, 400, 40003, "", checker.StepRule{}, 0},
		{"start after end", map[string]any{"instrument_name": "BTCUSD-PERP", "start_ts": now, "end_ts": now - dayMs}, 200, 0, "1m", checker.StepRule{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.Execute(ctx, candlestickAPI, tc.params, nil)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if resp.Status != tc.status {
				t.Fatalf("status %d, want %d", resp.Status, tc.status)
			}
			if tc.status != bizstatus.ExpectedHTTPStatus(int(tc.code)) {
				t.Fatalf("case table disagrees with registry for %d", tc.code)
			}
			if err := checker.BizCode(resp.JSON, tc.code, ""); err != nil {
				t.Fatal(err)
			}
			if tc.code != 0 {
				return
			}
			if tc.interval != "" {
				if err := checker.ShouldBe(resp.JSON, "$.result.interval", tc.interval); err != nil {
					t.Fatal(err)
				}
			}
			if err := checker.LengthShouldBe(resp.JSON, "$.result.data", tc.count); err != nil {
				t.Fatal(err)
			}
			if tc.count > 1 {
				if err := checker.TimeStep(resp.JSON, "$.result.data", "t", tc.step); err != nil {
					t.Fatal(err)
				}
				if err := checker.AllInRange(resp.JSON, "$.result.data[*].t", 0, now); err != nil {
					t.Fatal(err)
				}
			}
		})
	}
}

func TestCandleOpensRespectRange(t *testing.T) {
	opens := candleOpens(minuteMs, 10*minuteMs, 20*minuteMs+5, 100)
	if len(opens) != 11 || opens[0] != 10*minuteMs || opens[10] != 20*minuteMs {
		t.Fatalf("opens %v", opens)
	}
	months := candleOpens(0, 0, fixedNow.UnixMilli(), 3)
	if len(months) != 3 || months[2] != time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli() {
		t.Fatalf("months %v", months)
	}
}

func TestNotFound(t *testing.T) {
	s := startServer(t, Options{})
	resp, err := http.Get(s.RESTURL() + "/public/unknown")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func wsConfig() config.WebSocketConfig {
	return config.WebSocketConfig{Timeout: 2 * time.Second, HandshakeTimeout: 2 * time.Second, APIKey: "key", SecretKey: "secret"}
}

func dial(t *testing.T, url string, signer *signature.Builder) *transport.WSClient {
	t.Helper()
	c := transport.NewWSClient(url, wsConfig(), signer)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSubscribeValidation(t *testing.T) {
	s := startServer(t, Options{})
	c := dial(t, s.MarketURL(), nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		params map[string]any
		code   int64
	}{
		{"missing channels", map[string]any{}, 40003},
		{"empty channels", map[string]any{"channels": []string{}}, 40003},
		{"bad format", map[string]any{"channels": []string{"invalid.channel"}}, 40003},
		{"incomplete", map[string]any{"channels": []string{"book"}}, 40003},
		{"bad instrument", map[string]any{"channels": []string{"book.INVALID-INSTRUMENT.10"}}, 40003},
		{"bad depth", map[string]any{"channels": []string{"book.BTCUSD-PERP.999"}}, 40003},
		{"bad type", map[string]any{"channels": []string{"book.BTCUSD-PERP.10"}, "book_subscription_type": "INVALID_TYPE"}, 40003},
		{"bad frequency", map[string]any{"channels": []string{"book.BTCUSD-PERP.10"}, "book_update_frequency": 9999}, 40003},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ack, err := c.Subscribe(ctx, tc.params, int64(i+1))
			if err != nil {
				t.Fatalf("subscribe: %v", err)
			}
			if err := checker.BizCode(ack.Root, tc.code, "code"); err != nil {
				t.Fatal(err)
			}
			if id, _ := ack.ID(); id != int64(i+1) {
				t.Fatalf("ack id %d", id)
			}
		})
	}
}

func TestSnapshotFeed(t *testing.T) {
	s := startServer(t, Options{SnapshotIntervalMs: 40, PingInterval: 15 * time.Millisecond})
	c := dial(t, s.MarketURL(), nil)
	ctx := context.Background()

	ack, err := c.Subscribe(ctx, map[string]any{"channels": []string{"book.BTCUSD-PERP.50"}}, 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := checker.BizSuccess(ack.Root); err != nil {
		t.Fatal(err)
	}

	batch, err := transport.NewCollector(c, transport.WithPollTimeout(20*time.Millisecond)).For(ctx, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(batch.Messages) < 2 {
		t.Fatalf("got %d snapshots", len(batch.Messages))
	}
	if batch.Heartbeats == 0 {
		t.Fatal("expected interleaved heartbeats")
	}
	doc := models.Values(batch.Messages)
	for _, check := range []error{
		checker.ShouldBe(doc, "$[0].result.channel", "book"),
		checker.ShouldBe(doc, "$[0].result.depth", 50),
		checker.LengthShouldBe(doc, "$[0].result.data[0].asks", 50),
		checker.AllSame(doc, "$[*].result.data[0].u"),
		checker.AdjacentInterval(batch.Messages, 40, 0),
	} {
		if check != nil {
			t.Fatal(check)
		}
	}
}

func TestUpdateFeed(t *testing.T) {
	s := startServer(t, Options{HeartbeatIntervalMs: 60, Updates: 2})
	c := dial(t, s.MarketURL(), nil)
	ctx := context.Background()

	params := map[string]any{
		"channels":               []string{"book.BTCUSD-PERP.10"},
		"book_subscription_type": "SNAPSHOT_AND_UPDATE",
		"book_update_frequency":  10,
	}
	if _, err := c.Subscribe(ctx, params, 3); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	batch, err := transport.NewCollector(c, transport.WithPollTimeout(20*time.Millisecond)).UntilHistory(ctx,
		transport.HistoryFunc(func(_ models.Message, h []models.Message) bool { return len(h) >= 5 }), 2*time.Second)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	msgs := batch.Messages
	if len(msgs) != 5 {
		t.Fatalf("got %d messages", len(msgs))
	}
	doc := models.Values(msgs)
	if err := checker.ShouldBe(doc, "$[0].result.channel", "book"); err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Channel() != models.ChannelBookUpdate {
			t.Fatalf("message %d channel %q", i, msgs[i].Channel())
		}
	}
	if err := checker.Increasing(msgs, "", true); err != nil {
		t.Fatal(err)
	}
	if err := checker.PuMatchesPrevU(msgs, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := checker.Interval(msgs, 1, 2, 10, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := checker.Interval(msgs, 2, 3, 60, 0, ""); err != nil {
		t.Fatal(err)
	}
	if err := checker.ShouldBe(doc, "$[3].result.data[0].update.asks", []any{}); err != nil {
		t.Fatal(err)
	}
}

func TestAuthenticate(t *testing.T) {
	s := startServer(t, Options{APIKey: "key", SecretKey: "secret"})
	ctx := context.Background()

	signed := dial(t, s.UserURL(), signature.NewBuilder(signature.HMAC))
	reply, err := signed.Authenticate(ctx, nil, 1)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if err := checker.BizSuccess(reply.Root); err != nil {
		t.Fatal(err)
	}

	plain := dial(t, s.UserURL(), signature.NewBuilder(signature.Unsigned))
	reply, err = plain.Authenticate(ctx, nil, 2)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	if err := checker.BizCode(reply.Root, bizstatus.Unauthorized, ""); err != nil {
		t.Fatal(err)
	}
}
