package checker

import (
	"errors"
	"strings"
	"testing"

	"apiconform/internal/jsonpath"
)

const candleDoc = `{
  "code": 0,
  "result": {
    "interval": "1m",
    "instrument_name": "BTCUSD-PERP",
    "tags": ["perp", "btc"],
    "data": [
      {"o": "1", "h": "2", "l": "0.5", "c": "1.5", "v": "10", "t": 60000},
      {"o": "1", "h": "2", "l": "0.5", "c": "1.5", "v": "10", "t": 120000},
      {"o": "1", "h": "2", "l": "0.5", "c": "1.5", "v": "10", "t": 180000}
    ],
    "empty": null
  }
}`

func TestAssertions(t *testing.T) {
	doc := jsonpath.MustParse(candleDoc)
	cases := []struct {
		name    string
		run     func() error
		wantErr bool
	}{
		{"should be", func() error { return ShouldBe(doc, "$.result.interval", "1m") }, false},
		{"should be mismatch", func() error { return ShouldBe(doc, "$.result.interval", "5m") }, true},
		{"should be number", func() error { return ShouldBe(doc, "$.code", 0) }, false},
		{"should be uses first match", func() error { return ShouldBe(doc, "$.result.data[*].t", 60000) }, false},
		{"should not be", func() error { return ShouldNotBe(doc, "$.result.interval", "5m") }, false},
		{"should not be equal", func() error { return ShouldNotBe(doc, "$.code", 0) }, true},
		{"not null", func() error { return NotNull(doc, "$.result.instrument_name") }, false},
		{"not null on null", func() error { return NotNull(doc, "$.result.empty") }, true},
		{"should be in", func() error { return ShouldBeIn(doc, "$.result.interval", "1m", "5m") }, false},
		{"should be in miss", func() error { return ShouldBeIn(doc, "$.result.interval", "1h") }, true},
		{"contain substring", func() error { return ShouldContain(doc, "$.result.instrument_name", "BTC") }, false},
		{"contain element", func() error { return ShouldContain(doc, "$.result.tags", "perp") }, false},
		{"contain key", func() error { return ShouldContain(doc, "$.result", "interval") }, false},
		{"contain miss", func() error { return ShouldContain(doc, "$.result.tags", "eth") }, true},
		{"not contain", func() error { return ShouldNotContain(doc, "$.result.tags", "eth") }, false},
		{"not contain hit", func() error { return ShouldNotContain(doc, "$.result.tags", "btc") }, true},
		{"length", func() error { return LengthShouldBe(doc, "$.result.data", 3) }, false},
		{"length mismatch", func() error { return LengthShouldBe(doc, "$.result.data", 2) }, true},
		{"length at most", func() error { return LengthAtMost(doc, "$.result.data", 25) }, false},
		{"length at most exceeded", func() error { return LengthAtMost(doc, "$.result.data", 2) }, true},
		{"length at least", func() error { return LengthAtLeast(doc, "$.result.data", 3) }, false},
		{"length of number", func() error { return LengthAtLeast(doc, "$.code", 1) }, true},
		{"has at least one", func() error { return HasAtLeastOne(doc, "$.result.tags") }, false},
		{"in range", func() error { return InRange(doc, "$.result.data[0].t", 0, 60000) }, false},
		{"in range outside", func() error { return InRange(doc, "$.result.data[0].t", 60001, 70000) }, true},
		{"in range wrong type", func() error { return InRange(doc, "$.result.interval", 0, 1) }, true},
		{"all in range", func() error { return AllInRange(doc, "$.result.data[*].t", 60000, 180000) }, false},
		{"all in range one outside", func() error { return AllInRange(doc, "$.result.data[*].t", 60000, 179999) }, true},
		{"all should be", func() error { return AllShouldBe(doc, "$.result.data[*].o", "1") }, false},
		{"all should be mismatch", func() error { return AllShouldBe(doc, "$.result.data[*].t", 60000) }, true},
		{"all same", func() error { return AllSame(doc, "$.result.data[*].v") }, false},
		{"all same differs", func() error { return AllSame(doc, "$.result.data[*].t") }, true},
		{"all same single", func() error { return AllSame(doc, "$.result.interval") }, false},
		{"all contain", func() error { return AllShouldContain(doc, "$.result.data[*]", "t") }, false},
		{"all contain miss", func() error { return AllShouldContain(doc, "$.result.data[*]", "x") }, true},
		{"any in", func() error { return AnyIn(doc, "$.result.data[*].t", 1, 120000) }, false},
		{"any in none", func() error { return AnyIn(doc, "$.result.data[*].t", 1, 2) }, true},
		{"list should be", func() error { return ListShouldBe(doc, "$.result.data[*].t", []any{60000, 120000, 180000}) }, false},
		{"list should be order", func() error { return ListShouldBe(doc, "$.result.data[*].t", []any{120000, 60000, 180000}) }, true},
		{"list should be empty", func() error { return ListShouldBe(doc, "$.result.nothing", []any{}) }, false},
		{"http status", func() error { return HTTPStatus(200, 200) }, false},
		{"http status mismatch", func() error { return HTTPStatus(400, 200) }, true},
		{"biz code", func() error { return BizCode(doc, 0, "") }, false},
		{"biz code mismatch", func() error { return BizCode(doc, 40003, "code") }, true},
		{"biz code missing key", func() error { return BizCode(doc, 0, "biz_code") }, true},
		{"biz success", func() error { return BizSuccess(doc) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected failure")
				}
				if !IsFailure(err) {
					t.Fatalf("expected *Failure, got %T: %v", err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEmptyMatchFails(t *testing.T) {
	doc := jsonpath.MustParse(candleDoc)
	checks := map[string]func() error{
		"should_be":    func() error { return ShouldBe(doc, "$.missing", 1) },
		"not_null":     func() error { return NotNull(doc, "$.missing") },
		"all_in_range": func() error { return AllInRange(doc, "$.missing[*]", 0, 1) },
		"all_same":     func() error { return AllSame(doc, "$.missing[*]") },
	}
	for name, run := range checks {
		err := run()
		var f *Failure
		if !errors.As(err, &f) {
			t.Fatalf("%s: expected failure, got %v", name, err)
		}
		if f.Check != name || !strings.Contains(f.Message, "matched no value") {
			t.Errorf("%s: unexpected failure %q", name, f.Error())
		}
	}
}

func TestBadPathIsUsageError(t *testing.T) {
	doc := jsonpath.MustParse(candleDoc)
	err := ShouldBe(doc, "$.result[", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if IsFailure(err) {
		t.Fatalf("syntax error must not be reported as a check failure: %v", err)
	}
}

func TestBodyCodePrefersBizCode(t *testing.T) {
	v, key := BodyCode(jsonpath.MustParse(`{"code": 1, "biz_code": 40004}`))
	if key != "biz_code" || v.String() != "40004" {
		t.Fatalf("got %s=%s", key, v)
	}
	v, key = BodyCode(jsonpath.MustParse(`{"code": 0}`))
	if key != "code" || v.String() != "0" {
		t.Fatalf("got %s=%s", key, v)
	}
	v, _ = BodyCode(jsonpath.MustParse(`{}`))
	if v != nil {
		t.Fatalf("expected nil code, got %s", v)
	}
}
