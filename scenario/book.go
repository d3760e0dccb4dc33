package scenario

import (
	"context"
	"fmt"
	"time"

	"apiconform/checker"
	"apiconform/config"
	"apiconform/models"
	"apiconform/transport"
)

const (
	bookCollectMax    = 10 * time.Second
	typeSnapshotAndUp = "SNAPSHOT_AND_UPDATE"
)

func subscribeOK(ctx context.Context, ws *transport.WSClient, params map[string]any) error {
	ack, err := ws.Subscribe(ctx, params, 0)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return checker.BizSuccess(ack.Root)
}

func updateParams(channel string, freq int) map[string]any {
	return map[string]any{
		"channels":               []any{channel},
		"book_subscription_type": typeSnapshotAndUp,
		"book_update_frequency":  freq,
	}
}

// BookScenarios covers the book channel: snapshot cadence, update linkage,
// empty heartbeat updates and rejected subscriptions.
func BookScenarios(instr config.InstrumentsConfig) []Scenario {
	out := []Scenario{
		{
			ID:   "GB-001",
			Name: "book snapshot depth 10",
			Tags: []string{TagBook},
			Run: func(ctx context.Context, env *Env) error {
				return snapshotDepth10(ctx, env, instr)
			},
		},
		{
			ID:   "GB-002",
			Name: "book snapshot depth 50",
			Tags: []string{TagBook},
			Run: func(ctx context.Context, env *Env) error {
				return snapshotDepth50(ctx, env, instr)
			},
		},
		{
			ID:   "GB-003",
			Name: "book snapshot and update, 10ms",
			Tags: []string{TagBook},
			Run: func(ctx context.Context, env *Env) error {
				return snapshotAndUpdate(ctx, env, instr, "GB-003", 10, func(msg models.Message, history []models.Message) bool {
					return len(history) >= 3 || msg.Channel() == models.ChannelBookUpdate
				})
			},
		},
		{
			ID:   "GB-004",
			Name: "book snapshot and update, 100ms",
			Tags: []string{TagBook},
			Run: func(ctx context.Context, env *Env) error {
				return snapshotAndUpdate(ctx, env, instr, "GB-004", 100, func(_ models.Message, history []models.Message) bool {
					return len(history) >= 3
				})
			},
		},
		{
			ID:   "GB-005",
			Name: "book empty heartbeat update",
			Tags: []string{TagBook},
			Run: func(ctx context.Context, env *Env) error {
				return emptyHeartbeat(ctx, env, instr)
			},
		},
	}

	for _, c := range BookSubscribeAPI(instr).Cases(GroupAbnormal) {
		c := c
		id := c.ID("")
		out = append(out, Scenario{
			ID:   abnormalBookID(id),
			Name: "book subscribe rejected: " + id,
			Tags: []string{TagBook, TagAbnormal},
			Run: func(ctx context.Context, env *Env) error {
				return rejectedSubscribe(ctx, env, c)
			},
		})
	}
	return out
}

func abnormalBookID(caseID string) string {
	if len(caseID) >= 5 && caseID[:2] == "bs" {
		return "GB-" + caseID[2:5] + "/" + caseID
	}
	return "GB-ABN/" + caseID
}

func snapshotDepth10(ctx context.Context, env *Env, instr config.InstrumentsConfig) error {
	book := env.Config.Book
	return env.market(ctx, func(ws *transport.WSClient) error {
		if err := subscribeOK(ctx, ws, map[string]any{"channels": []any{bookChannel(instr.Primary, 10)}}); err != nil {
			return err
		}
		batch, err := transport.NewCollector(ws).For(ctx, 2*millis(book.SnapshotIntervalMs))
		env.record("GB-001", batch.Messages)
		if err != nil {
			return err
		}
		doc := models.Values(batch.Messages)
		return checkAll(
			checker.ShouldBe(doc, "$[0].result.channel", models.ChannelBook),
			checker.ShouldBe(doc, "$[0].result.depth", 10),
			checker.AllSame(doc, "$[*].result.data[0].u"),
			checker.AdjacentInterval(batch.Messages, book.SnapshotIntervalMs, book.ToleranceMs),
		)
	})
}

func snapshotDepth50(ctx context.Context, env *Env, instr config.InstrumentsConfig) error {
	return env.market(ctx, func(ws *transport.WSClient) error {
		if err := subscribeOK(ctx, ws, map[string]any{"channels": []any{bookChannel(instr.Primary, 50)}}); err != nil {
			return err
		}
		batch, err := transport.NewCollector(ws).For(ctx, time.Second)
		env.record("GB-002", batch.Messages)
		if err != nil {
			return err
		}
		doc := models.Values(batch.Messages)
		return checkAll(
			checker.HasAtLeastOne(doc, "$[*]"),
			checker.AllShouldBe(doc, "$[*].result.depth", 50),
		)
	})
}

func snapshotAndUpdate(ctx context.Context, env *Env, instr config.InstrumentsConfig, id string, freq int, stop transport.HistoryFunc) error {
	return env.market(ctx, func(ws *transport.WSClient) error {
		if err := subscribeOK(ctx, ws, updateParams(bookChannel(instr.Primary, 50), freq)); err != nil {
			return err
		}
		batch, err := transport.NewCollector(ws).UntilHistory(ctx, stop, bookCollectMax)
		env.record(id, batch.Messages)
		if err != nil {
			return err
		}
		doc := models.Values(batch.Messages)
		return checkAll(
			checker.LengthAtLeast(doc, "$", 2),
			checker.ShouldBe(doc, "$[0].result.channel", models.ChannelBook),
			checker.ShouldBe(doc, "$[1].result.channel", models.ChannelBookUpdate),
			checker.Increasing(batch.Messages, checker.DefaultUPath, false),
			checker.PuMatchesPrevU(batch.Messages, checker.DefaultUPath, checker.DefaultPUPath),
		)
	})
}

func emptyHeartbeat(ctx context.Context, env *Env, instr config.InstrumentsConfig) error {
	book := env.Config.Book
	return env.market(ctx, func(ws *transport.WSClient) error {
		if err := subscribeOK(ctx, ws, updateParams(bookChannel(instr.Primary, 50), 100)); err != nil {
			return err
		}
		col := transport.NewCollector(ws)
		pre, err := col.Until(ctx, transport.MessageFunc(func(msg models.Message) bool {
			return msg.Channel() == models.ChannelBookUpdate
		}), bookCollectMax)
		env.record("GB-005", pre.Messages)
		if err != nil {
			return err
		}
		if !pre.Stopped {
			return fmt.Errorf("no %s within %s", models.ChannelBookUpdate, bookCollectMax)
		}

		wait := time.Duration(float64(millis(book.HeartbeatIntervalMs)) * 1.1)
		post, err := col.For(ctx, wait)
		env.record("GB-005", post.Messages)
		if err != nil {
			return err
		}

		all := append(append([]models.Message{}, pre.Messages...), post.Messages...)
		postDoc := models.Values(post.Messages)
		return checkAll(
			checker.Interval(all, len(pre.Messages)-1, len(pre.Messages), book.HeartbeatIntervalMs, book.ToleranceMs, checker.DefaultTimePath),
			checker.ShouldBe(postDoc, "$[0].result.data[0].update.asks", []any{}),
			checker.ShouldBe(postDoc, "$[0].result.data[0].update.bids", []any{}),
			checker.Increasing(all, checker.DefaultUPath, false),
			checker.PuMatchesPrevU(all, checker.DefaultUPath, checker.DefaultPUPath),
		)
	})
}

func rejectedSubscribe(ctx context.Context, env *Env, c models.Case) error {
	want, ok := c.Int("expected_biz_code")
	if !ok {
		return fmt.Errorf("case %s has no expected_biz_code", c.ID(""))
	}
	return env.market(ctx, func(ws *transport.WSClient) error {
		ack, err := ws.Subscribe(ctx, c.Params(), 0)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		env.record(abnormalBookID(c.ID("")), []models.Message{ack})
		return checker.BizCode(ack.Root, want, "")
	})
}
