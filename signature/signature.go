// Package signature assembles request envelopes for the websocket API.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"apiconform/logger"
)

// MaxLevel bounds how deep ParamString descends into nested params.
const MaxLevel = 3

const (
	MethodSubscribe = "subscribe"
	MethodAuth      = "public/auth"
)

type Mode int

const (
	// Unsigned envelopes carry only id, method and params.
	Unsigned Mode = iota
	// HMAC envelopes add api_key, nonce and sig.
	HMAC
)

// ParseMode maps the websocket.signing setting to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unsigned":
		return Unsigned, nil
	case "hmac":
		return HMAC, nil
	}
	return Unsigned, fmt.Errorf("unknown signing mode %q", s)
}

type Credentials struct {
	APIKey    string
	SecretKey string
}

// Envelope is one outbound websocket request.
type Envelope struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	APIKey string         `json:"api_key,omitempty"`
	Params map[string]any `json:"params"`
	Nonce  int64          `json:"nonce,omitempty"`
	Sig    string         `json:"sig,omitempty"`
}

// Builder produces envelopes. The zero value is not usable; use NewBuilder.
type Builder struct {
	mode Mode
	now  func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
	log *logger.Entry
}

type Option func(*Builder)

// WithClock replaces the nonce clock.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithSeed makes generated request ids reproducible.
func WithSeed(seed int64) Option {
	return func(b *Builder) { b.rnd = rand.New(rand.NewSource(seed)) }
}

func NewBuilder(mode Mode, opts ...Option) *Builder {
	b := &Builder{
		mode: mode,
		now:  time.Now,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
		log:  logger.GetLogger().WithComponent("ws_signature"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Mode() Mode { return b.mode }

type buildOptions struct {
	id    *int64
	nonce *int64
}

type BuildOption func(*buildOptions)

func WithRequestID(id int64) BuildOption {
	return func(o *buildOptions) { o.id = &id }
}

func WithNonce(nonce int64) BuildOption {
	return func(o *buildOptions) { o.nonce = &nonce }
}

// Build assembles an envelope for method. A missing request id is drawn
// from [1, 10000] and a missing nonce is the current time in milliseconds.
func (b *Builder) Build(method string, creds Credentials, params map[string]any, opts ...BuildOption) Envelope {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := b.nextID(o.id)
	nonce := b.now().UnixMilli()
	if o.nonce != nil {
		nonce = *o.nonce
	}
	if params == nil {
		params = map[string]any{}
	}

	env := Envelope{ID: id, Method: method, Params: params}
	if b.mode == HMAC {
		env.APIKey = creds.APIKey
		env.Nonce = nonce
		env.Sig = Sign(creds.SecretKey, method, id, creds.APIKey, params, nonce)
	}

	b.log.WithFields(logger.Fields{"method": method, "id": id, "signed": b.mode == HMAC}).Debug("built request envelope")
	return env
}

// Subscribe builds a subscribe envelope with the given request id.
func (b *Builder) Subscribe(params map[string]any, creds Credentials, requestID int64) Envelope {
	return b.Build(MethodSubscribe, creds, params, WithRequestID(requestID))
}

func (b *Builder) nextID(explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rnd.Int63n(10000) + 1
}

// Sign returns the hex HMAC-SHA256 of method, id, api key, ParamString(params)
// and nonce, keyed by secret.
func Sign(secret, method string, id int64, apiKey string, params map[string]any, nonce int64) string {
	payload := method + strconv.FormatInt(id, 10) + apiKey + ParamString(params) + strconv.FormatInt(nonce, 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// ParamString serialises params for signing: keys in sorted order, each
// followed by its value. Lists contribute each element in turn and nested
// objects recurse until MaxLevel.
func ParamString(params map[string]any) string {
	return paramString(params, 0)
}

func paramString(obj any, level int) string {
	m, ok := obj.(map[string]any)
	if !ok || level >= MaxLevel {
		return scalarString(obj)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		switch v := m[k].(type) {
		case nil:
			sb.WriteString("null")
		case []any:
			for _, item := range v {
				sb.WriteString(paramString(item, level+1))
			}
		case []string:
			for _, item := range v {
				sb.WriteString(item)
			}
		case map[string]any:
			sb.WriteString(paramString(v, level+1))
		default:
			sb.WriteString(scalarString(v))
		}
	}
	return sb.String()
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
