package bizstatus

import "testing"

func TestExpectedHTTPStatus(t *testing.T) {
	cases := []struct {
		code int
		want int
	}{
		{Success, 200},
		{InvalidRequest, 400},
		{MissingOrInvalidArgument, 400},
		{Unauthorized, 401},
		{NotFound, 200},
		{RequestTimeout, 408},
		{TooManyRequests, 429},
		{SelfTradePrevention, 200},
		{NoPosition, 500},
		{ErrInternal, 400},
		{12345, DefaultHTTPStatus},
		{-1, DefaultHTTPStatus},
	}
	for _, c := range cases {
		if got := ExpectedHTTPStatus(c.code); got != c.want {
			t.Errorf("ExpectedHTTPStatus(%d) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestFirstOccurrenceWins(t *testing.T) {
	for _, r := range Table() {
		var first Record
		for _, cand := range table {
			if cand.Code == r.Code {
				first = cand
				break
			}
		}
		if got := ExpectedHTTPStatus(r.Code); got != first.HTTPStatus {
			t.Errorf("code %d: status %d, first row has %d", r.Code, got, first.HTTPStatus)
		}
		if got := CodeString(r.Code); got != first.ShortCode {
			t.Errorf("code %d: short code %s, first row has %s", r.Code, got, first.ShortCode)
		}
	}
}

func TestInfosKeepsDuplicates(t *testing.T) {
	infos := Infos(50001)
	if len(infos) != 2 {
		t.Fatalf("expected 2 rows for 50001, got %d", len(infos))
	}
	if infos[0].ShortCode != "DW_CREDIT_LINE_NOT_MAINTAINED" || infos[1].ShortCode != "ERR_INTERNAL" {
		t.Fatalf("unexpected order: %+v", infos)
	}
	if CodeString(50001) != "DW_CREDIT_LINE_NOT_MAINTAINED" {
		t.Fatalf("unexpected code string: %s", CodeString(50001))
	}

	infos[0].ShortCode = "MUTATED"
	if Infos(50001)[0].ShortCode == "MUTATED" {
		t.Fatal("Infos must return a copy")
	}
}

func TestUnknownCode(t *testing.T) {
	if got := Infos(99999); len(got) != 0 {
		t.Fatalf("expected no rows, got %v", got)
	}
	if got := CodeString(99999); got != UnknownCode {
		t.Fatalf("expected %s, got %s", UnknownCode, got)
	}
	if Known(99999) {
		t.Fatal("99999 should be unknown")
	}
	if !Known(InvalidRequest) {
		t.Fatal("40003 should be known")
	}
}

func TestTableSize(t *testing.T) {
	if n := len(Table()); n != 94 {
		t.Fatalf("table has %d rows", n)
	}
}
