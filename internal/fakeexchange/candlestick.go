package fakeexchange

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"apiconform/bizstatus"
	"apiconform/logger"
	"apiconform/models"
)

const (
	defaultCandleCount = 25
	maxCandleCount     = 300
	defaultInterval    = "1m"
	minuteMs           = int64(60 * 1000)
	hourMs             = 60 * minuteMs
	dayMs              = 24 * hourMs
)

// timeframes maps accepted timeframe values to their candle width. Zero
// marks calendar months.
var timeframes = map[string]int64{
	"1m": minuteMs, "M1": minuteMs,
	"5m": 5 * minuteMs, "M5": 5 * minuteMs,
	"15m": 15 * minuteMs, "M15": 15 * minuteMs,
	"30m": 30 * minuteMs, "M30": 30 * minuteMs,
	"1h": hourMs, "H1": hourMs,
	"2h": 2 * hourMs, "H2": 2 * hourMs,
	"4h": 4 * hourMs, "H4": 4 * hourMs,
	"12h": 12 * hourMs, "H12": 12 * hourMs,
	"1D": dayMs, "D1": dayMs, "1d": dayMs,
	"7D": 7 * dayMs,
	"14D": 14 * dayMs,
	"1M": 0,
}

func (s *Server) handleCandlestick(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	log := s.log.WithFields(logger.Fields{"path": r.URL.Path, "query": r.URL.RawQuery})

	if !q.Has("instrument_name") {
		log.Debug("candlestick without instrument")
		writeError(w, bizstatus.InvalidRequest, 0)
		return
	}
	instrument := q.Get("instrument_name")
	if instrument == "" || !s.instruments[instrument] {
		writeError(w, bizstatus.MissingOrInvalidArgument, 0)
		return
	}

	interval := defaultInterval
	if tf := q.Get("timeframe"); tf != "" {
		interval = tf
	}
	width, ok := timeframes[interval]
	if !ok {
		writeError(w, bizstatus.InvalidRequest, 0)
		return
	}

	count := defaultCandleCount
	if c := q.Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n <= 0 {
			writeError(w, bizstatus.InvalidRequest, 0)
			return
		}
		if n > maxCandleCount {
			n = maxCandleCount
		}
		count = n
	}

	nowMs := s.opts.Now().UnixMilli()
	startTs, endTs := int64(0), nowMs
	if v, err := parseTs(q.Get("start_ts")); err != nil {
		writeError(w, bizstatus.InvalidRequest, 0)
		return
	} else if v > 0 {
		startTs = v
	}
	if v, err := parseTs(q.Get("end_ts")); err != nil {
		writeError(w, bizstatus.InvalidRequest, 0)
		return
	} else if v > 0 {
		endTs = v
	}

	data := []models.Candle{}
	if startTs <= endTs {
		data = buildCandles(instrument, width, startTs, endTs, count)
	}
	writeJSON(w, http.StatusOK, models.Response{
		Code: bizstatus.Success,
		Result: models.CandlestickResult{
			Interval:       interval,
			InstrumentName: instrument,
			Data:           data,
		},
	})
}

func parseTs(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// candleOpens returns up to count candle open times no later than endTs and
// no earlier than startTs, oldest first.
func candleOpens(width, startTs, endTs int64, count int) []int64 {
	var opens []int64
	if width > 0 {
		t := endTs - endTs%width
		for len(opens) < count && t >= startTs && t >= 0 {
			opens = append(opens, t)
			t -= width
		}
	} else {
		end := time.UnixMilli(endTs).UTC()
		m := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
		for len(opens) < count && m.UnixMilli() >= startTs {
			opens = append(opens, m.UnixMilli())
			m = m.AddDate(0, -1, 0)
		}
	}
	for i, j := 0, len(opens)-1; i < j; i, j = i+1, j-1 {
		opens[i], opens[j] = opens[j], opens[i]
	}
	return opens
}

func buildCandles(instrument string, width, startTs, endTs int64, count int) []models.Candle {
	base := decimal.RequireFromString(basePriceText)
	if instrument != "BTCUSD-PERP" {
		base = base.Div(decimal.NewFromInt(15)).Round(1)
	}
	step := decimal.RequireFromString("0.5")

	opens := candleOpens(width, startTs, endTs, count)
	out := make([]models.Candle, 0, len(opens))
	for i, t := range opens {
		open := base.Add(step.Mul(decimal.NewFromInt(int64(i % 7))))
		closePx := open.Add(step)
		out = append(out, models.Candle{
			Open:   open.String(),
			High:   closePx.Add(step).String(),
			Low:    open.Sub(step).String(),
			Close:  closePx.String(),
			Volume: decimal.NewFromFloat(0.1689).Mul(decimal.NewFromInt(int64(i + 1))).String(),
			T:      t,
		})
	}
	return out
}
