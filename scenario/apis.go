package scenario

import (
	"fmt"

	"apiconform/config"
	"apiconform/internal/jsonpath"
	"apiconform/models"
)

const (
	GroupTimeframe          = "timeframe"
	GroupAbnormalInstrument = "abnormal_instrument"
	GroupAbnormal           = "abnormal"

	msMinute = int64(60 * 1000)
	msHour   = 60 * msMinute
	msDay    = 24 * msHour
)

func bookChannel(instrument string, depth int) string {
	return fmt.Sprintf("book.%s.%d", instrument, depth)
}

// CandlestickAPI describes public/get-candlestick with its case tables.
func CandlestickAPI(instr config.InstrumentsConfig) models.RestAPI {
	timeframes := []models.Case{
		{"timeframe": "M1", "expected_interval": "M1", "interval_ms": 1 * msMinute},
		{"timeframe": "M5", "expected_interval": "M5", "interval_ms": 5 * msMinute},
		{"timeframe": "M15", "expected_interval": "M15", "interval_ms": 15 * msMinute},
		{"timeframe": "M30", "expected_interval": "M30", "interval_ms": 30 * msMinute},
		{"timeframe": "H1", "expected_interval": "H1", "interval_ms": 1 * msHour},
		{"timeframe": "H2", "expected_interval": "H2", "interval_ms": 2 * msHour},
		{"timeframe": "H4", "expected_interval": "H4", "interval_ms": 4 * msHour},
		{"timeframe": "4h", "expected_interval": "4h", "interval_ms": 4 * msHour},
		{"timeframe": "H12", "expected_interval": "H12", "interval_ms": 12 * msHour},
		{"timeframe": "1D", "expected_interval": "1D", "interval_ms": msDay},
		{"timeframe": "D1", "expected_interval": "D1", "interval_ms": msDay},
		{"timeframe": "1d", "expected_interval": "1d", "interval_ms": msDay},
		{"timeframe": "7D", "expected_interval": "7D", "interval_ms": 7 * msDay},
		{"timeframe": "14D", "expected_interval": "14D", "interval_ms": 14 * msDay},
		{
			"timeframe":         "1M",
			"expected_interval": "1M",
			"interval_ms":       30 * msDay,
			"interval_ms_min":   28 * msDay,
			"interval_ms_max":   31 * msDay,
		},
	}
	abnormalInstruments := []models.Case{
		{"case_id": "gc010_missing", "params": nil, "expected_biz_code": 40003},
		{"case_id": "gc011_empty", "params": map[string]any{"instrument_name": ""}, "expected_biz_code": 40004},
		{"case_id": "gc012_invalid", "params": map[string]any{"instrument_name": instr.Invalid}, "expected_biz_code": 40004},
	}

	return models.NewRestAPIBuilder("public/get-candlestick").
		WithMethod("get").
		WithRequestExample(map[string]any{
			"instrument_name": instr.Primary,
			"timeframe":       "M1",
			"count":           25,
			"start_ts":        0,
			"end_ts":          0,
		}).
		WithResponseExample(map[string]any{
			"code": 0,
			"result": map[string]any{
				"interval":        "1m",
				"instrument_name": instr.Primary,
				"data": []any{
					map[string]any{"o": "0", "h": "0", "l": "0", "c": "0", "v": "0", "t": 0},
				},
			},
		}).
		WithCases(GroupTimeframe, timeframes).
		WithCases(GroupAbnormalInstrument, abnormalInstruments).
		MustBuild()
}

// BookSubscribeAPI describes the book channel subscription with its
// abnormal parameter table.
func BookSubscribeAPI(instr config.InstrumentsConfig) models.WsAPI {
	valid := bookChannel(instr.Primary, 10)
	abnormal := []models.Case{
		{"case_id": "bs009_missing_channels", "params": map[string]any{}, "expected_biz_code": 40003},
		{"case_id": "bs009_empty_channels", "params": map[string]any{"channels": []string{}}, "expected_biz_code": 40003},
		{"case_id": "bs010_invalid_channel_format", "params": map[string]any{"channels": []string{"invalid.channel"}}, "expected_biz_code": 40003},
		{"case_id": "bs010_channel_incomplete", "params": map[string]any{"channels": []string{"book"}}, "expected_biz_code": 40003},
		{"case_id": "bs010_invalid_instrument", "params": map[string]any{"channels": []string{"book.INVALID-INSTRUMENT.10"}}, "expected_biz_code": 40003},
		{"case_id": "bs010_invalid_depth", "params": map[string]any{"channels": []string{bookChannel(instr.Primary, 999)}}, "expected_biz_code": 40003},
		{"case_id": "bs010_invalid_subscription_type", "params": map[string]any{"channels": []string{valid}, "book_subscription_type": "INVALID_TYPE"}, "expected_biz_code": 40003},
		{"case_id": "bs010_invalid_update_frequency", "params": map[string]any{"channels": []string{valid}, "book_update_frequency": 9999}, "expected_biz_code": 40003},
	}

	level := []any{"30082.5", "0.1689", "1"}
	return models.NewWsAPIBuilder().
		WithMethod("subscribe").
		WithRequestExample(map[string]any{"channels": []any{valid}}).
		WithResponseExample(map[string]any{
			"code":   0,
			"method": "subscribe",
			"id":     -1,
			"result": map[string]any{
				"instrument_name": instr.Primary,
				"subscription":    valid,
				"channel":         "book",
				"depth":           10,
				"data": []any{map[string]any{
					"asks": []any{level},
					"bids": []any{[]any{"30077.5", "1.0527", "2"}},
					"u":    0,
					"tt":   0,
					"t":    0,
					"cs":   0,
				}},
			},
		}).
		WithCases(GroupAbnormal, abnormal).
		MustBuild()
}

// BookUpdateExample is the structure template of a book.update push.
func BookUpdateExample(instr config.InstrumentsConfig) *jsonpath.Value {
	return jsonpath.MustFromGo(map[string]any{
		"id":     -1,
		"method": "subscribe",
		"code":   0,
		"result": map[string]any{
			"instrument_name": instr.Primary,
			"subscription":    bookChannel(instr.Primary, 50),
			"channel":         "book.update",
			"depth":           50,
			"data": []any{map[string]any{
				"update": map[string]any{
					"asks": []any{[]any{"30082.5", "0.1689", "1"}},
					"bids": []any{[]any{"30077.5", "1.0527", "2"}},
				},
				"t": 0, "tt": 0, "u": 0, "pu": 0, "cs": 35,
			}},
		},
	})
}
