package checker

import (
	"fmt"

	"apiconform/internal/jsonpath"
)

func toValue(x any) (*jsonpath.Value, error) {
	v, err := jsonpath.FromGo(x)
	if err != nil {
		return nil, fmt.Errorf("checker: expected value: %w", err)
	}
	return v, nil
}

func toValues(xs []any) ([]*jsonpath.Value, error) {
	out := make([]*jsonpath.Value, len(xs))
	for i, x := range xs {
		v, err := toValue(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// matches runs path against doc and requires at least one match.
func matches(check string, doc *jsonpath.Value, path string) ([]*jsonpath.Value, error) {
	ret, err := jsonpath.Query(doc, path)
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, fail(check, path, "path matched no value")
	}
	return ret, nil
}

func first(check string, doc *jsonpath.Value, path string) (*jsonpath.Value, error) {
	ret, err := matches(check, doc, path)
	if err != nil {
		return nil, err
	}
	return ret[0], nil
}

func inSet(v *jsonpath.Value, set []*jsonpath.Value) bool {
	for _, s := range set {
		if jsonpath.Equal(v, s) {
			return true
		}
	}
	return false
}

// ShouldBe checks that the first match of path equals expected.
func ShouldBe(doc *jsonpath.Value, path string, expected any) error {
	const check = "should_be"
	want, err := toValue(expected)
	if err != nil {
		return err
	}
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	if !jsonpath.Equal(actual, want) {
		return fail(check, path, "expected %s, got %s", want, actual)
	}
	return pass(check, path)
}

func ShouldNotBe(doc *jsonpath.Value, path string, unexpected any) error {
	const check = "should_not_be"
	other, err := toValue(unexpected)
	if err != nil {
		return err
	}
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	if jsonpath.Equal(actual, other) {
		return fail(check, path, "expected a value other than %s", other)
	}
	return pass(check, path)
}

func NotNull(doc *jsonpath.Value, path string) error {
	const check = "not_null"
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	if actual.IsNull() {
		return fail(check, path, "expected non-null value")
	}
	return pass(check, path)
}

// ShouldBeIn checks that the first match equals one of values.
func ShouldBeIn(doc *jsonpath.Value, path string, values ...any) error {
	const check = "should_be_in"
	set, err := toValues(values)
	if err != nil {
		return err
	}
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	if !inSet(actual, set) {
		return fail(check, path, "%s is not one of %s", actual, jsonpath.ArrayValue(set...))
	}
	return pass(check, path)
}

// ShouldContain checks substring, array element or object key membership
// in the first match.
func ShouldContain(doc *jsonpath.Value, path string, elem any) error {
	return containment("should_contain", doc, path, elem, true)
}

func ShouldNotContain(doc *jsonpath.Value, path string, elem any) error {
	return containment("should_not_contain", doc, path, elem, false)
}

func containment(check string, doc *jsonpath.Value, path string, elem any, want bool) error {
	e, err := toValue(elem)
	if err != nil {
		return err
	}
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	found, err := jsonpath.Contains(actual, e)
	if err != nil {
		return fail(check, path, "%v", err)
	}
	if found != want {
		if want {
			return fail(check, path, "expected %s in %s", e, actual)
		}
		return fail(check, path, "expected %s not in %s", e, actual)
	}
	return pass(check, path)
}

func length(check string, doc *jsonpath.Value, path string) (int, error) {
	actual, err := first(check, doc, path)
	if err != nil {
		return 0, err
	}
	n, ok := actual.Len()
	if !ok {
		return 0, fail(check, path, "%s value has no length", actual.Kind())
	}
	return n, nil
}

func LengthShouldBe(doc *jsonpath.Value, path string, want int) error {
	const check = "length_should_be"
	n, err := length(check, doc, path)
	if err != nil {
		return err
	}
	if n != want {
		return fail(check, path, "expected length %d, got %d", want, n)
	}
	return pass(check, path)
}

func LengthAtMost(doc *jsonpath.Value, path string, max int) error {
	const check = "length_at_most"
	n, err := length(check, doc, path)
	if err != nil {
		return err
	}
	if n > max {
		return fail(check, path, "expected length <= %d, got %d", max, n)
	}
	return pass(check, path)
}

func LengthAtLeast(doc *jsonpath.Value, path string, min int) error {
	const check = "length_at_least"
	n, err := length(check, doc, path)
	if err != nil {
		return err
	}
	if n < min {
		return fail(check, path, "expected length >= %d, got %d", min, n)
	}
	return pass(check, path)
}

// HasAtLeastOne checks that the first match has at least one element.
func HasAtLeastOne(doc *jsonpath.Value, path string) error {
	return LengthAtLeast(doc, path, 1)
}

func between(v, lo, hi *jsonpath.Value) (bool, error) {
	c, err := jsonpath.Compare(lo, v)
	if err != nil {
		return false, err
	}
	if c > 0 {
		return false, nil
	}
	c, err = jsonpath.Compare(v, hi)
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

// InRange checks min <= first match <= max.
func InRange(doc *jsonpath.Value, path string, min, max any) error {
	const check = "in_range"
	lo, err := toValue(min)
	if err != nil {
		return err
	}
	hi, err := toValue(max)
	if err != nil {
		return err
	}
	actual, err := first(check, doc, path)
	if err != nil {
		return err
	}
	ok, err := between(actual, lo, hi)
	if err != nil {
		return fail(check, path, "%v", err)
	}
	if !ok {
		return fail(check, path, "%s not in [%s, %s]", actual, lo, hi)
	}
	return pass(check, path)
}

// AllInRange checks min <= v <= max for every match.
func AllInRange(doc *jsonpath.Value, path string, min, max any) error {
	const check = "all_in_range"
	lo, err := toValue(min)
	if err != nil {
		return err
	}
	hi, err := toValue(max)
	if err != nil {
		return err
	}
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	for i, v := range ret {
		ok, err := between(v, lo, hi)
		if err != nil {
			return fail(check, path, "item %d: %v", i, err)
		}
		if !ok {
			return fail(check, path, "item %d value %s not in [%s, %s]", i, v, lo, hi)
		}
	}
	return pass(check, path)
}

// AllShouldBe checks every match equals expected.
func AllShouldBe(doc *jsonpath.Value, path string, expected any) error {
	const check = "all_should_be"
	want, err := toValue(expected)
	if err != nil {
		return err
	}
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	for i, v := range ret {
		if !jsonpath.Equal(v, want) {
			return fail(check, path, "item %d: expected %s, got %s", i, want, v)
		}
	}
	return pass(check, path)
}

// AllSame checks every match equals the first one.
func AllSame(doc *jsonpath.Value, path string) error {
	const check = "all_same"
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	for i := 1; i < len(ret); i++ {
		if !jsonpath.Equal(ret[i], ret[0]) {
			return fail(check, path, "item %d value %s differs from item 0 value %s", i, ret[i], ret[0])
		}
	}
	return pass(check, path)
}

// AllShouldContain checks that every match contains elem.
func AllShouldContain(doc *jsonpath.Value, path string, elem any) error {
	const check = "all_should_contain"
	e, err := toValue(elem)
	if err != nil {
		return err
	}
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	for i, v := range ret {
		found, err := jsonpath.Contains(v, e)
		if err != nil {
			return fail(check, path, "item %d: %v", i, err)
		}
		if !found {
			return fail(check, path, "item %d value %s does not contain %s", i, v, e)
		}
	}
	return pass(check, path)
}

// AnyIn checks that at least one match equals one of values.
func AnyIn(doc *jsonpath.Value, path string, values ...any) error {
	const check = "any_in"
	set, err := toValues(values)
	if err != nil {
		return err
	}
	ret, err := matches(check, doc, path)
	if err != nil {
		return err
	}
	for _, v := range ret {
		if inSet(v, set) {
			return pass(check, path)
		}
	}
	return fail(check, path, "none of %s is in %s", jsonpath.ArrayValue(ret...), jsonpath.ArrayValue(set...))
}

// ListShouldBe compares the full list of matches with expected.
func ListShouldBe(doc *jsonpath.Value, path string, expected []any) error {
	const check = "list_should_be"
	want, err := toValues(expected)
	if err != nil {
		return err
	}
	ret, err := jsonpath.Query(doc, path)
	if err != nil {
		return err
	}
	got := jsonpath.ArrayValue(ret...)
	exp := jsonpath.ArrayValue(want...)
	if !jsonpath.Equal(got, exp) {
		return fail(check, path, "expected %s, got %s", exp, got)
	}
	return pass(check, path)
}

// HTTPStatus compares a response status code.
func HTTPStatus(actual, expected int) error {
	const check = "http_status"
	if actual != expected {
		return fail(check, "", "expected HTTP %d, got %d", expected, actual)
	}
	return pass(check, "")
}

// BizCode checks the business code stored under key, "code" when empty.
func BizCode(body *jsonpath.Value, expected int64, key string) error {
	const check = "biz_code"
	if key == "" {
		key = "code"
	}
	v, ok := body.Get(key)
	if !ok {
		return fail(check, key, "expected %d, field missing", expected)
	}
	want := jsonpath.IntValue(expected)
	if !jsonpath.Equal(v, want) {
		return fail(check, key, "expected %d, got %s", expected, v)
	}
	return pass(check, key)
}

// BizSuccess checks code == 0.
func BizSuccess(body *jsonpath.Value) error {
	return BizCode(body, 0, "code")
}

// BodyCode returns biz_code when present, otherwise code.
func BodyCode(body *jsonpath.Value) (*jsonpath.Value, string) {
	if v, ok := body.Get("biz_code"); ok {
		return v, "biz_code"
	}
	v, _ := body.Get("code")
	return v, "code"
}
