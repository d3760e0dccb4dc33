package models

import (
	"fmt"
	"strings"

	"apiconform/internal/jsonpath"
)

// Case is one row of a parameterised case table.
type Case map[string]any

// ID returns the case_id field, or the value of fallback when absent.
func (c Case) ID(fallback string) string {
	if s, ok := c["case_id"].(string); ok && s != "" {
		return s
	}
	if s, ok := c[fallback].(string); ok {
		return s
	}
	return ""
}

func (c Case) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Case) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Int returns an integer field. Any Go integer type is accepted.
func (c Case) Int(key string) (int64, bool) {
	switch v := c[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	}
	return 0, false
}

// Params returns the params field. A nil result means the case sends no
// params at all, which differs from an empty map.
func (c Case) Params() map[string]any {
	p, _ := c["params"].(map[string]any)
	return p
}

type caseTable map[string][]Case

func (t caseTable) get(group string) []Case {
	rows := t[group]
	out := make([]Case, len(rows))
	copy(out, rows)
	return out
}

func (t caseTable) groups() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	return out
}

// RestAPI describes one REST endpoint. Values are immutable once built.
type RestAPI struct {
	uri             string
	method          string
	requestExample  *jsonpath.Value
	responseExample *jsonpath.Value
	cases           caseTable
}

func (a RestAPI) URI() string                      { return a.uri }
func (a RestAPI) Method() string                   { return a.method }
func (a RestAPI) RequestExample() *jsonpath.Value  { return a.requestExample }
func (a RestAPI) ResponseExample() *jsonpath.Value { return a.responseExample }

// Cases returns a copy of the named case group, empty when absent.
func (a RestAPI) Cases(group string) []Case { return a.cases.get(group) }
func (a RestAPI) Groups() []string           { return a.cases.groups() }

// WsAPI describes one websocket request method.
type WsAPI struct {
	method          string
	requestExample  *jsonpath.Value
	responseExample *jsonpath.Value
	cases           caseTable
}

func (a WsAPI) Method() string                   { return a.method }
func (a WsAPI) RequestExample() *jsonpath.Value  { return a.requestExample }
func (a WsAPI) ResponseExample() *jsonpath.Value { return a.responseExample }
func (a WsAPI) Cases(group string) []Case        { return a.cases.get(group) }
func (a WsAPI) Groups() []string                 { return a.cases.groups() }

var restMethods = map[string]struct{}{"get": {}, "post": {}, "put": {}, "patch": {}, "delete": {}}

type RestAPIBuilder struct {
	api RestAPI
	err error
}

func NewRestAPIBuilder(uri string) *RestAPIBuilder {
	return &RestAPIBuilder{api: RestAPI{uri: uri, method: "get", cases: caseTable{}}}
}

func (b *RestAPIBuilder) WithMethod(method string) *RestAPIBuilder {
	b.api.method = strings.ToLower(method)
	return b
}

func (b *RestAPIBuilder) WithRequestExample(example any) *RestAPIBuilder {
	b.api.requestExample = b.convert(example)
	return b
}

func (b *RestAPIBuilder) WithResponseExample(example any) *RestAPIBuilder {
	b.api.responseExample = b.convert(example)
	return b
}

// WithCases attaches a case group. Calling it twice for a group replaces it.
func (b *RestAPIBuilder) WithCases(group string, cases []Case) *RestAPIBuilder {
	b.api.cases[group] = append([]Case(nil), cases...)
	return b
}

func (b *RestAPIBuilder) convert(example any) *jsonpath.Value {
	v, err := jsonpath.FromGo(example)
	if err != nil && b.err == nil {
		b.err = err
	}
	return v
}

func (b *RestAPIBuilder) Build() (RestAPI, error) {
	if b.err != nil {
		return RestAPI{}, b.err
	}
	if strings.TrimSpace(b.api.uri) == "" {
		return RestAPI{}, fmt.Errorf("rest api uri is required")
	}
	if _, ok := restMethods[b.api.method]; !ok {
		return RestAPI{}, fmt.Errorf("unsupported http method %q", b.api.method)
	}
	api := b.api
	api.cases = caseTable{}
	for k, v := range b.api.cases {
		api.cases[k] = v
	}
	return api, nil
}

// MustBuild is Build for package-level definitions.
func (b *RestAPIBuilder) MustBuild() RestAPI {
	api, err := b.Build()
	if err != nil {
		panic(err)
	}
	return api
}

type WsAPIBuilder struct {
	api WsAPI
	err error
}

func NewWsAPIBuilder() *WsAPIBuilder {
	return &WsAPIBuilder{api: WsAPI{method: "subscribe", cases: caseTable{}}}
}

func (b *WsAPIBuilder) WithMethod(method string) *WsAPIBuilder {
	b.api.method = method
	return b
}

func (b *WsAPIBuilder) WithRequestExample(example any) *WsAPIBuilder {
	b.api.requestExample = b.convert(example)
	return b
}

func (b *WsAPIBuilder) WithResponseExample(example any) *WsAPIBuilder {
	b.api.responseExample = b.convert(example)
	return b
}

func (b *WsAPIBuilder) WithCases(group string, cases []Case) *WsAPIBuilder {
	b.api.cases[group] = append([]Case(nil), cases...)
	return b
}

func (b *WsAPIBuilder) convert(example any) *jsonpath.Value {
	v, err := jsonpath.FromGo(example)
	if err != nil && b.err == nil {
		b.err = err
	}
	return v
}

func (b *WsAPIBuilder) Build() (WsAPI, error) {
	if b.err != nil {
		return WsAPI{}, b.err
	}
	if strings.TrimSpace(b.api.method) == "" {
		return WsAPI{}, fmt.Errorf("websocket api method is required")
	}
	api := b.api
	api.cases = caseTable{}
	for k, v := range b.api.cases {
		api.cases[k] = v
	}
	return api, nil
}

func (b *WsAPIBuilder) MustBuild() WsAPI {
	api, err := b.Build()
	if err != nil {
		panic(err)
	}
	return api
}
