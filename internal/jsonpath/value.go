package jsonpath

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a decoded JSON node. Objects keep their keys in document order
// and numbers keep both their decimal value and their original literal.
type Value struct {
	kind  Kind
	b     bool
	num   decimal.Decimal
	text  string
	items []*Value
	keys  []string
	props map[string]*Value
}

// NullValue returns a JSON null.
func NullValue() *Value { return &Value{kind: Null} }

// BoolValue wraps a boolean.
func BoolValue(b bool) *Value { return &Value{kind: Bool, b: b} }

// StringValue wraps a string.
func StringValue(s string) *Value { return &Value{kind: String, text: s} }

// IntValue wraps an integer.
func IntValue(n int64) *Value {
	return &Value{kind: Number, num: decimal.NewFromInt(n), text: strconv.FormatInt(n, 10)}
}

// DecimalValue wraps a decimal number.
func DecimalValue(d decimal.Decimal) *Value {
	return &Value{kind: Number, num: d, text: d.String()}
}

// ArrayValue builds an array node from the given items.
func ArrayValue(items ...*Value) *Value {
	if items == nil {
		items = []*Value{}
	}
	return &Value{kind: Array, items: items}
}

// NewObject returns an empty object node. Use Set to populate it.
func NewObject() *Value {
	return &Value{kind: Object, props: make(map[string]*Value)}
}

// Set adds or replaces a key. A replaced key keeps its original position.
func (v *Value) Set(key string, val *Value) *Value {
	if v.kind != Object {
		panic("jsonpath: Set on non-object value")
	}
	if val == nil {
		val = NullValue()
	}
	if _, ok := v.props[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.props[key] = val
	return v
}

func numberFromLiteral(lit string) (*Value, error) {
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return nil, fmt.Errorf("jsonpath: invalid number %q: %w", lit, err)
	}
	return &Value{kind: Number, num: d, text: lit}, nil
}

// Parse decodes a JSON document into a Value tree.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("jsonpath: unexpected data after top-level value")
	}
	return v, nil
}

func decode(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("jsonpath: object key is %T, not string", kt)
				}
				val, err := decode(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := ArrayValue()
			for dec.More() {
				val, err := decode(dec)
				if err != nil {
					return nil, err
				}
				arr.items = append(arr.items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("jsonpath: unexpected delimiter %q", t)
	case json.Number:
		return numberFromLiteral(t.String())
	case string:
		return StringValue(t), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	}
	return nil, fmt.Errorf("jsonpath: unexpected token %T", tok)
}

// FromGo converts a Go value into a Value. Maps are keyed in sorted order.
// Types without a direct mapping go through encoding/json.
func FromGo(x any) (*Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case *Value:
		if t == nil {
			return NullValue(), nil
		}
		return t, nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int32:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint32:
		return IntValue(int64(t)), nil
	case float64:
		return DecimalValue(decimal.NewFromFloat(t)), nil
	case float32:
		return DecimalValue(decimal.NewFromFloat32(t)), nil
	case decimal.Decimal:
		return DecimalValue(t), nil
	case json.Number:
		return numberFromLiteral(t.String())
	case []any:
		arr := ArrayValue()
		for _, item := range t {
			v, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			arr.items = append(arr.items, v)
		}
		return arr, nil
	case []*Value:
		return ArrayValue(t...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := FromGo(t[k])
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	}
	data, err := json.Marshal(x)
	if err != nil {
		return nil, fmt.Errorf("jsonpath: convert %T: %w", x, err)
	}
	return Parse(data)
}

// MustFromGo is FromGo for literals known to be convertible.
func MustFromGo(x any) *Value {
	v, err := FromGo(x)
	if err != nil {
		panic(err)
	}
	return v
}

// MustParse is Parse for literals known to be valid JSON.
func MustParse(doc string) *Value {
	v, err := Parse([]byte(doc))
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

func (v *Value) IsNull() bool { return v.Kind() == Null }

func (v *Value) Bool() (bool, bool) {
	if v.Kind() != Bool {
		return false, false
	}
	return v.b, true
}

// Decimal returns the numeric value of a Number node.
func (v *Value) Decimal() (decimal.Decimal, bool) {
	if v.Kind() != Number {
		return decimal.Zero, false
	}
	return v.num, true
}

// Int64 returns the integer part of a Number node.
func (v *Value) Int64() (int64, bool) {
	if v.Kind() != Number {
		return 0, false
	}
	return v.num.IntPart(), true
}

// Text returns the contents of a String node.
func (v *Value) Text() (string, bool) {
	if v.Kind() != String {
		return "", false
	}
	return v.text, true
}

// Len is the element count of arrays and objects and the rune count of strings.
func (v *Value) Len() (int, bool) {
	switch v.Kind() {
	case Array:
		return len(v.items), true
	case Object:
		return len(v.keys), true
	case String:
		return utf8.RuneCountInString(v.text), true
	}
	return 0, false
}

func (v *Value) Items() []*Value {
	if v.Kind() != Array {
		return nil
	}
	return v.items
}

// Index returns the i-th array item. Negative indexes count from the end.
func (v *Value) Index(i int) (*Value, bool) {
	if v.Kind() != Array {
		return nil, false
	}
	if i < 0 {
		i += len(v.items)
	}
	if i < 0 || i >= len(v.items) {
		return nil, false
	}
	return v.items[i], true
}

// Keys returns object keys in document order.
func (v *Value) Keys() []string {
	if v.Kind() != Object {
		return nil
	}
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != Object {
		return nil, false
	}
	val, ok := v.props[key]
	return val, ok
}

// Interface converts the node back into plain Go values. Numbers become
// json.Number so no precision is lost.
func (v *Value) Interface() any {
	switch v.Kind() {
	case Bool:
		return v.b
	case Number:
		return json.Number(v.text)
	case String:
		return v.text
	case Array:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.props[k].Interface()
		}
		return out
	}
	return nil
}

func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		buf.WriteString(v.text)
	case String:
		b, err := json.Marshal(v.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := v.props[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// String renders the node as compact JSON.
func (v *Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<invalid: %v>", err)
	}
	return string(b)
}
