package signature

import (
	"encoding/json"
	"testing"
	"time"
)

func fixedClock() time.Time { return time.UnixMilli(1700000000000) }

func TestUnsignedEnvelopeIsDeterministic(t *testing.T) {
	b := NewBuilder(Unsigned, WithClock(fixedClock))
	params := map[string]any{"channels": []any{"book.BTCUSD-PERP.10"}}
	creds := Credentials{APIKey: "k", SecretKey: "s"}

	first, err := json.Marshal(b.Build("subscribe", creds, params, WithRequestID(7), WithNonce(1)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, _ := json.Marshal(b.Build("subscribe", creds, params, WithRequestID(7), WithNonce(1)))
	if string(first) != string(second) {
		t.Fatalf("envelopes differ: %s vs %s", first, second)
	}
	want := `{"id":7,"method":"subscribe","params":{"channels":["book.BTCUSD-PERP.10"]}}`
	if string(first) != want {
		t.Fatalf("unexpected envelope:\n got %s\nwant %s", first, want)
	}
}

func TestNilParamsBecomeEmptyObject(t *testing.T) {
	b := NewBuilder(Unsigned)
	data, _ := json.Marshal(b.Build(MethodAuth, Credentials{}, nil, WithRequestID(1)))
	if string(data) != `{"id":1,"method":"public/auth","params":{}}` {
		t.Fatalf("unexpected envelope: %s", data)
	}
}

func TestGeneratedIDRange(t *testing.T) {
	b := NewBuilder(Unsigned, WithSeed(42))
	for i := 0; i < 500; i++ {
		env := b.Build("subscribe", Credentials{}, nil)
		if env.ID < 1 || env.ID > 10000 {
			t.Fatalf("id out of range: %d", env.ID)
		}
	}
}

func TestSubscribe(t *testing.T) {
	b := NewBuilder(Unsigned)
	env := b.Subscribe(map[string]any{"channels": []any{"book.ETHUSD-PERP.50"}}, Credentials{}, 23)
	if env.ID != 23 || env.Method != MethodSubscribe {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestHMACEnvelope(t *testing.T) {
	b := NewBuilder(HMAC, WithClock(fixedClock))
	creds := Credentials{APIKey: "key", SecretKey: "secret"}
	env := b.Build(MethodAuth, creds, nil, WithRequestID(11))
	if env.APIKey != "key" || env.Nonce != 1700000000000 {
		t.Fatalf("missing auth fields: %+v", env)
	}
	want := Sign("secret", MethodAuth, 11, "key", map[string]any{}, 1700000000000)
	if env.Sig != want || len(env.Sig) != 64 {
		t.Fatalf("unexpected sig %q", env.Sig)
	}
	other := b.Build(MethodAuth, Credentials{APIKey: "key", SecretKey: "other"}, nil, WithRequestID(11))
	if other.Sig == env.Sig {
		t.Fatal("signature should depend on the secret")
	}
}

func TestParamString(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"empty", map[string]any{}, ""},
		{"sorted keys", map[string]any{"b": 2, "a": "x"}, "axb2"},
		{"null", map[string]any{"a": nil}, "anull"},
		{"bool", map[string]any{"flag": true}, "flagtrue"},
		{"list of strings", map[string]any{"channels": []any{"book.A.10", "book.B.10"}}, "channelsbook.A.10book.B.10"},
		{"list of objects", map[string]any{"orders": []any{map[string]any{"side": "BUY", "qty": 1}}}, "ordersqty1sideBUY"},
		{"typed string slice", map[string]any{"channels": []string{"x", "y"}}, "channelsxy"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ParamString(c.params); got != c.want {
				t.Fatalf("ParamString = %q, want %q", got, c.want)
			}
		})
	}
}

func TestParamStringStopsAtMaxLevel(t *testing.T) {
	deep := map[string]any{"a": []any{map[string]any{"b": []any{map[string]any{"c": []any{map[string]any{"d": 1}}}}}}}
	got := ParamString(deep)
	if got != `abc{"d":1}` {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		err  bool
	}{
		{"", Unsigned, false},
		{"unsigned", Unsigned, false},
		{"HMAC", HMAC, false},
		{"rsa", Unsigned, true},
	}
	for _, c := range cases {
		got, err := ParseMode(c.in)
		if (err != nil) != c.err || got != c.want {
			t.Errorf("ParseMode(%q) = %v, %v", c.in, got, err)
		}
	}
}
