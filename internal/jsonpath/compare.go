package jsonpath

import (
	"fmt"
	"strings"
)

// Equal reports structural equality. Numbers compare by value so 10 and
// 10.0 are equal; object key order is ignored.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.num.Equal(b.num)
	case String:
		return a.text == b.text
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for _, k := range a.keys {
			bv, ok := b.props[k]
			if !ok || !Equal(a.props[k], bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numbers or two strings. It returns -1, 0 or 1.
func Compare(a, b *Value) (int, error) {
	switch {
	case a.Kind() == Number && b.Kind() == Number:
		return a.num.Cmp(b.num), nil
	case a.Kind() == String && b.Kind() == String:
		return strings.Compare(a.text, b.text), nil
	}
	return 0, fmt.Errorf("cannot order %s against %s", a.Kind(), b.Kind())
}

// Contains reports whether elem is inside container: a substring of a
// string, an element of an array or a key of an object.
func Contains(container, elem *Value) (bool, error) {
	switch container.Kind() {
	case String:
		s, ok := elem.Text()
		if !ok {
			return false, fmt.Errorf("cannot search string for %s", elem.Kind())
		}
		return strings.Contains(container.text, s), nil
	case Array:
		for _, item := range container.items {
			if Equal(item, elem) {
				return true, nil
			}
		}
		return false, nil
	case Object:
		s, ok := elem.Text()
		if !ok {
			return false, fmt.Errorf("object keys are strings, got %s", elem.Kind())
		}
		_, found := container.props[s]
		return found, nil
	}
	return false, fmt.Errorf("%s is not a container", container.Kind())
}
