package checker

import (
	"fmt"
	"sort"

	"apiconform/internal/jsonpath"
)

// StructureOptions tunes StructureEqual. The zero value allows extra keys
// and compares the first element of arrays.
type StructureOptions struct {
	StrictKeys    bool
	SkipListItems bool
}

// StructureDiff lists every structural difference between actual and
// expected, rooted at path.
func StructureDiff(actual, expected *jsonpath.Value, path string, opts StructureOptions) []string {
	if path == "" {
		path = "$"
	}
	var diffs []string
	structureDiff(actual, expected, path, opts, &diffs)
	return diffs
}

func structureDiff(actual, expected *jsonpath.Value, path string, opts StructureOptions, diffs *[]string) {
	if actual.Kind() != expected.Kind() {
		*diffs = append(*diffs, fmt.Sprintf("%s: type differs, expected %s, actual %s", path, expected.Kind(), actual.Kind()))
		return
	}
	switch expected.Kind() {
	case jsonpath.Object:
		var missing, extra []string
		for _, k := range expected.Keys() {
			if _, ok := actual.Get(k); !ok {
				missing = append(missing, k)
			}
		}
		if opts.StrictKeys {
			for _, k := range actual.Keys() {
				if _, ok := expected.Get(k); !ok {
					extra = append(extra, k)
				}
			}
		}
		sort.Strings(missing)
		sort.Strings(extra)
		if len(missing) > 0 {
			*diffs = append(*diffs, fmt.Sprintf("%s: missing keys %v", path, missing))
		}
		if len(extra) > 0 {
			*diffs = append(*diffs, fmt.Sprintf("%s: unexpected keys %v", path, extra))
		}
		for _, k := range expected.Keys() {
			av, ok := actual.Get(k)
			if !ok {
				continue
			}
			ev, _ := expected.Get(k)
			structureDiff(av, ev, path+"."+k, opts, diffs)
		}
	case jsonpath.Array:
		if opts.SkipListItems {
			return
		}
		ev, eok := expected.Index(0)
		av, aok := actual.Index(0)
		switch {
		case eok && !aok:
			*diffs = append(*diffs, fmt.Sprintf("%s: expected a non-empty list, actual is empty", path))
		case eok && aok:
			structureDiff(av, ev, path+"[0]", opts, diffs)
		}
	}
}

// StructureEqual fails with every collected difference when actual does not
// have the shape of expected.
func StructureEqual(actual, expected *jsonpath.Value, opts StructureOptions) error {
	const check = "structure_equal"
	diffs := StructureDiff(actual, expected, "$", opts)
	if len(diffs) > 0 {
		f := &Failure{Check: check, Path: "$", Message: fmt.Sprintf("%d structural difference(s)", len(diffs)), Details: diffs}
		log.WithField("diffs", diffs).Debug("structure mismatch")
		return f
	}
	return pass(check, "$")
}

// ContainsKeys checks that the object at path carries every key.
func ContainsKeys(doc *jsonpath.Value, path string, keys ...string) error {
	const check = "contains_keys"
	if path == "" {
		path = "$"
	}
	obj, err := first(check, doc, path)
	if err != nil {
		return err
	}
	if obj.Kind() != jsonpath.Object {
		return fail(check, path, "expected object, got %s", obj.Kind())
	}
	var missing []string
	for _, k := range keys {
		if _, ok := obj.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fail(check, path, "missing keys %v", missing)
	}
	return pass(check, path)
}

// StructureKeys returns the keys of example[resultKey] and of the first
// item of example[resultKey][dataKey].
func StructureKeys(example *jsonpath.Value, resultKey, dataKey string) ([]string, []string) {
	result, ok := example.Get(resultKey)
	if !ok || result.Kind() != jsonpath.Object {
		return nil, nil
	}
	var dataKeys []string
	if data, ok := result.Get(dataKey); ok {
		if item, ok := data.Index(0); ok && item.Kind() == jsonpath.Object {
			dataKeys = item.Keys()
		}
	}
	return result.Keys(), dataKeys
}
