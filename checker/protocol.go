package checker

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"apiconform/internal/jsonpath"
	"apiconform/models"
)

const (
	DefaultTimePath = "result.data.0.t"
	DefaultUPath    = "result.data.0.u"
	DefaultPUPath   = "result.data.0.pu"
)

func number(v *jsonpath.Value, ok bool) (decimal.Decimal, bool) {
	if !ok {
		return decimal.Zero, false
	}
	return v.Decimal()
}

// AdjacentInterval checks the gap between the first two messages.
func AdjacentInterval(msgs []models.Message, expectedMs, toleranceMs int64) error {
	return Interval(msgs, 0, 1, expectedMs, toleranceMs, DefaultTimePath)
}

// Interval checks that the timestamps at timePath of msgs[from] and msgs[to]
// differ by expectedMs within toleranceMs.
func Interval(msgs []models.Message, from, to int, expectedMs, toleranceMs int64, timePath string) error {
	const check = "interval"
	if from < 0 || to < 0 {
		return fmt.Errorf("checker: negative message index %d/%d", from, to)
	}
	if toleranceMs < 0 {
		return fmt.Errorf("checker: negative tolerance %d", toleranceMs)
	}
	if timePath == "" {
		timePath = DefaultTimePath
	}
	need := from
	if to > need {
		need = to
	}
	need++
	if len(msgs) < need {
		return fail(check, timePath, "need at least %d messages, got %d", need, len(msgs))
	}
	t0, ok := number(msgs[from].Get(timePath))
	if !ok {
		return fail(check, timePath, "message %d has no timestamp", from)
	}
	t1, ok := number(msgs[to].Get(timePath))
	if !ok {
		return fail(check, timePath, "message %d has no timestamp", to)
	}
	diff := t1.Sub(t0)
	lo := decimal.NewFromInt(expectedMs - toleranceMs)
	hi := decimal.NewFromInt(expectedMs + toleranceMs)
	if diff.LessThan(lo) || diff.GreaterThan(hi) {
		return fail(check, timePath, "interval %sms between messages %d and %d outside %d±%dms",
			diff, from, to, expectedMs, toleranceMs)
	}
	return pass(check, timePath)
}

// StepRule bounds the gap between consecutive items.
type StepRule struct {
	exact    *int64
	min, max *int64
}

// ExactStep requires every gap to equal ms.
func ExactStep(ms int64) StepRule { return StepRule{exact: &ms} }

// StepBetween requires every gap to fall in [min, max].
func StepBetween(min, max int64) StepRule { return StepRule{min: &min, max: &max} }

func (r StepRule) valid() bool {
	return r.exact != nil || (r.min != nil && r.max != nil)
}

func (r StepRule) String() string {
	if r.exact != nil {
		return fmt.Sprintf("%dms", *r.exact)
	}
	if r.min != nil && r.max != nil {
		return fmt.Sprintf("[%d, %d]ms", *r.min, *r.max)
	}
	return "<none>"
}

func (r StepRule) allows(diff decimal.Decimal) bool {
	if r.exact != nil {
		return diff.Equal(decimal.NewFromInt(*r.exact))
	}
	return !diff.LessThan(decimal.NewFromInt(*r.min)) && !diff.GreaterThan(decimal.NewFromInt(*r.max))
}

// TimeStep sorts the items at path by timeField and checks each gap against
// rule. Path may select the items directly or a single array holding them.
func TimeStep(doc *jsonpath.Value, path, timeField string, rule StepRule) error {
	const check = "time_step"
	if !rule.valid() {
		return fmt.Errorf("checker: time step needs an exact step or a min/max band")
	}
	if timeField == "" {
		timeField = "t"
	}
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	items := ret
	if ret[0].Kind() != jsonpath.Object {
		if ret[0].Kind() != jsonpath.Array {
			return fail(check, path, "expected objects or an array of objects, got %s", ret[0].Kind())
		}
		items = ret[0].Items()
	}
	if len(items) < 2 {
		return pass(check, path)
	}

	type stamped struct {
		ts      decimal.Decimal
		present bool
	}
	rows := make([]stamped, len(items))
	for i, it := range items {
		if it.Kind() != jsonpath.Object {
			return fail(check, path, "item %d is %s, not an object", i, it.Kind())
		}
		ts, ok := number(it.Get(timeField))
		rows[i] = stamped{ts: ts, present: ok}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.LessThan(rows[j].ts) })

	for i := 1; i < len(rows); i++ {
		if !rows[i-1].present || !rows[i].present {
			return fail(check, path, "items %d/%d missing field %q", i-1, i, timeField)
		}
		diff := rows[i].ts.Sub(rows[i-1].ts)
		if !rule.allows(diff) {
			return fail(check, path, "step %sms between sorted items %d and %d, expected %s",
				diff, i-1, i, rule)
		}
	}
	return pass(check, path)
}

// Increasing checks that the value at path grows across msgs, strictly when
// strict is set.
func Increasing(msgs []models.Message, path string, strict bool) error {
	const check = "increasing"
	if path == "" {
		path = DefaultUPath
	}
	if len(msgs) < 2 {
		return pass(check, path)
	}
	prev, ok := number(msgs[0].Get(path))
	if !ok {
		return fail(check, path, "message 0 missing field")
	}
	for i := 1; i < len(msgs); i++ {
		cur, ok := number(msgs[i].Get(path))
		if !ok {
			return fail(check, path, "message %d missing field", i)
		}
		if cur.LessThan(prev) || (strict && cur.Equal(prev)) {
			return fail(check, path, "message %d value %s does not follow %s", i, cur, prev)
		}
		prev = cur
	}
	return pass(check, path)
}

// PuMatchesPrevU checks that every message links to its predecessor: the
// pu of message i+1 equals the u of message i.
func PuMatchesPrevU(msgs []models.Message, uPath, puPath string) error {
	const check = "pu_matches_prev_u"
	if uPath == "" {
		uPath = DefaultUPath
	}
	if puPath == "" {
		puPath = DefaultPUPath
	}
	for i := 0; i+1 < len(msgs); i++ {
		u, ok := number(msgs[i].Get(uPath))
		if !ok {
			return fail(check, uPath, "message %d missing u", i)
		}
		pu, ok := number(msgs[i+1].Get(puPath))
		if !ok {
			return fail(check, puPath, "message %d missing pu", i+1)
		}
		if !u.Equal(pu) {
			return fail(check, puPath, "message %d pu %s != message %d u %s", i+1, pu, i, u)
		}
	}
	return pass(check, puPath)
}
