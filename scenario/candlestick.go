package scenario

import (
	"context"
	"fmt"

	"apiconform/checker"
	"apiconform/config"
	"apiconform/internal/jsonpath"
	"apiconform/logger"
	"apiconform/models"
)

const (
	candleDataPath = "$.result.data[*].t"
	recentWindowMs = 2 * msDay
	clockSkewMs    = 60 * 1000
)

// CandlestickScenarios covers public/get-candlestick: defaults, every
// timeframe, paging parameters and invalid input.
func CandlestickScenarios(instr config.InstrumentsConfig) []Scenario {
	api := CandlestickAPI(instr)
	tags := []string{TagCandlestick}

	out := []Scenario{{
		ID:   "GC-001",
		Name: "candlestick with required params",
		Tags: tags,
		Run: func(ctx context.Context, env *Env) error {
			doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, map[string]any{"instrument_name": instr.Primary}, nil)
			if err != nil {
				return err
			}
			now := env.nowMs()
			return checkAll(
				resultStructure(doc, api),
				checker.ShouldBe(doc, "$.result.interval", "1m"),
				checker.LengthAtMost(doc, "$.result.data", 25),
				checker.AllInRange(doc, candleDataPath, now-recentWindowMs, now+clockSkewMs),
			)
		},
	}}

	for _, row := range api.Cases(GroupTimeframe) {
		row := row
		tf := row.String("timeframe")
		out = append(out, Scenario{
			ID:   "GC-002/" + tf,
			Name: "candlestick timeframe " + tf,
			Tags: tags,
			Run: func(ctx context.Context, env *Env) error {
				return timeframeRow(ctx, env, api, instr, row)
			},
		})
	}

	out = append(out,
		Scenario{
			ID:   "GC-006",
			Name: "candlestick count limit",
			Tags: tags,
			Run: func(ctx context.Context, env *Env) error {
				doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, map[string]any{"instrument_name": instr.Primary, "count": 10}, nil)
				if err != nil {
					return err
				}
				return checker.LengthAtMost(doc, "$.result.data", 10)
			},
		},
		Scenario{
			ID:   "GC-007",
			Name: "candlestick time range",
			Tags: tags,
			Run: func(ctx context.Context, env *Env) error {
				end := env.nowMs()
				start := end - 3600*1000
				params := map[string]any{"instrument_name": instr.Primary, "start_ts": start, "end_ts": end}
				doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, params, nil)
				if err != nil {
					return err
				}
				return checker.AllInRange(doc, candleDataPath, start, end)
			},
		},
		Scenario{
			ID:   "GC-008",
			Name: "candlestick with all params",
			Tags: tags,
			Run: func(ctx context.Context, env *Env) error {
				end := env.nowMs()
				params := map[string]any{
					"instrument_name": instr.Primary,
					"timeframe":       "M15",
					"count":           20,
					"start_ts":        end - msDay,
					"end_ts":          end,
				}
				doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, params, nil)
				if err != nil {
					return err
				}
				return checkAll(
					checker.ShouldBe(doc, "$.result.interval", "M15"),
					checker.LengthAtMost(doc, "$.result.data", 20),
				)
			},
		},
		Scenario{
			ID:   "GC-009",
			Name: "candlestick secondary instrument",
			Tags: tags,
			Run: func(ctx context.Context, env *Env) error {
				doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, map[string]any{"instrument_name": instr.Secondary}, nil)
				if err != nil {
					return err
				}
				return checker.ShouldBe(doc, "$.result.instrument_name", instr.Secondary)
			},
		},
	)

	for _, c := range api.Cases(GroupAbnormalInstrument) {
		c := c
		id := c.ID("")
		out = append(out, Scenario{
			ID:   abnormalCandleID(id),
			Name: "candlestick rejected: " + id,
			Tags: []string{TagCandlestick, TagAbnormal},
			Run: func(ctx context.Context, env *Env) error {
				want, ok := c.Int("expected_biz_code")
				if !ok {
					return fmt.Errorf("case %s has no expected_biz_code", id)
				}
				_, err := env.REST.ExecuteAndVerify(ctx, api, want, c.Params(), nil)
				return err
			},
		})
	}

	out = append(out,
		Scenario{
			ID:   "GC-013",
			Name: "candlestick invalid timeframe",
			Tags: []string{TagCandlestick, TagAbnormal},
			Run: func(ctx context.Context, env *Env) error {
				params := map[string]any{"instrument_name": instr.Primary, "timeframe": "INVALID"}
				_, err := env.REST.ExecuteAndVerify(ctx, api, 40003, params, nil)
				return err
			},
		},
		Scenario{
			ID:   "GC-015",
			Name: "candlestick start after end",
			Tags: []string{TagCandlestick, TagAbnormal},
			Run: func(ctx context.Context, env *Env) error {
				now := env.nowMs()
				params := map[string]any{"instrument_name": instr.Primary, "start_ts": now, "end_ts": now - msDay}
				resp, err := env.REST.Execute(ctx, api, params, nil)
				if err != nil {
					return err
				}
				if resp.JSON == nil {
					return fmt.Errorf("empty response body, HTTP %d", resp.Status)
				}
				code, _ := checker.BodyCode(resp.JSON)
				if n, ok := code.Int64(); !ok || n != 0 {
					env.entry().WithFields(logger.Fields{"code": code.String()}).Info("inverted range rejected")
					return nil
				}
				return checker.LengthShouldBe(resp.JSON, "$.result.data", 0)
			},
		},
	)
	return out
}

func abnormalCandleID(caseID string) string {
	if len(caseID) >= 5 && caseID[:2] == "gc" {
		return "GC-" + caseID[2:5] + "/" + caseID
	}
	return "GC-ABN/" + caseID
}

func resultStructure(doc *jsonpath.Value, api models.RestAPI) error {
	actual, ok := jsonpath.Lookup(doc, "result")
	if !ok {
		return checker.NotNull(doc, "$.result")
	}
	expected, _ := jsonpath.Lookup(api.ResponseExample(), "result")
	return checker.StructureEqual(actual, expected, checker.StructureOptions{})
}

func timeframeRow(ctx context.Context, env *Env, api models.RestAPI, instr config.InstrumentsConfig, row models.Case) error {
	params := map[string]any{"instrument_name": instr.Primary, "timeframe": row.String("timeframe")}
	doc, err := env.REST.ExecuteAndVerify(ctx, api, 0, params, nil)
	if err != nil {
		return err
	}
	rule := checker.StepRule{}
	if lo, ok := row.Int("interval_ms_min"); ok {
		hi, _ := row.Int("interval_ms_max")
		rule = checker.StepBetween(lo, hi)
	} else if ms, ok := row.Int("interval_ms"); ok {
		rule = checker.ExactStep(ms)
	}
	return checkAll(
		checker.ShouldBe(doc, "$.result.interval", row.String("expected_interval")),
		checker.TimeStep(doc, "$.result.data", "t", rule),
	)
}
