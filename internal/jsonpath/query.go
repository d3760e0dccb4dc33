package jsonpath

import (
	"fmt"
	"strconv"
	"strings"
)

type selectorKind int

const (
	selectName selectorKind = iota
	selectIndex
	selectWildcard
)

type step struct {
	kind      selectorKind
	name      string
	index     int
	recursive bool
}

// Path is a compiled query expression.
type Path struct {
	expr  string
	steps []step
}

func (p *Path) String() string { return p.expr }

// Compile parses a query expression. Supported forms: $ root, .name,
// ['name'], [n] (negative counts from the end), .[n], [*], .* and
// ..name for recursive descent. A leading $ is optional.
func Compile(expr string) (*Path, error) {
	src := strings.TrimSpace(expr)
	if src == "" {
		return nil, fmt.Errorf("jsonpath: empty expression")
	}
	rest := src
	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
	} else if !strings.HasPrefix(rest, ".") && !strings.HasPrefix(rest, "[") {
		rest = "." + rest
	}

	p := &Path{expr: src}
	for len(rest) > 0 {
		recursive := false
		switch {
		case strings.HasPrefix(rest, ".."):
			recursive = true
			rest = rest[2:]
		case rest[0] == '.':
			rest = rest[1:]
		case rest[0] == '[':
		default:
			return nil, fmt.Errorf("jsonpath: unexpected %q in %q", rest[0], src)
		}
		if rest == "" {
			return nil, fmt.Errorf("jsonpath: expression %q ends with a separator", src)
		}

		var st step
		var err error
		if rest[0] == '[' {
			st, rest, err = parseBracket(rest, src)
		} else {
			st, rest, err = parseName(rest, src)
		}
		if err != nil {
			return nil, err
		}
		st.recursive = recursive
		p.steps = append(p.steps, st)
	}
	return p, nil
}

func parseName(rest, src string) (step, string, error) {
	end := strings.IndexAny(rest, ".[")
	if end < 0 {
		end = len(rest)
	}
	name := rest[:end]
	if name == "" {
		return step{}, "", fmt.Errorf("jsonpath: empty member name in %q", src)
	}
	if name == "*" {
		return step{kind: selectWildcard}, rest[end:], nil
	}
	return step{kind: selectName, name: name}, rest[end:], nil
}

func parseBracket(rest, src string) (step, string, error) {
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return step{}, "", fmt.Errorf("jsonpath: unclosed bracket in %q", src)
	}
	inner := strings.TrimSpace(rest[1:end])
	rest = rest[end+1:]
	switch {
	case inner == "*":
		return step{kind: selectWildcard}, rest, nil
	case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
		return step{kind: selectName, name: inner[1 : len(inner)-1]}, rest, nil
	}
	n, err := strconv.Atoi(inner)
	if err != nil {
		return step{}, "", fmt.Errorf("jsonpath: bad index %q in %q", inner, src)
	}
	return step{kind: selectIndex, index: n}, rest, nil
}

// Query evaluates expr against root and returns every match in document
// order. An expression that matches nothing yields an empty slice.
func Query(root *Value, expr string) ([]*Value, error) {
	p, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return p.Eval(root), nil
}

// Eval applies the compiled path to root.
func (p *Path) Eval(root *Value) []*Value {
	current := []*Value{root}
	for _, st := range p.steps {
		var next []*Value
		for _, node := range current {
			if st.recursive {
				walk(node, func(n *Value) {
					next = st.apply(n, next)
				})
				continue
			}
			next = st.apply(node, next)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	if current == nil {
		return []*Value{}
	}
	return current
}

func (s step) apply(node *Value, out []*Value) []*Value {
	switch s.kind {
	case selectName:
		if v, ok := node.Get(s.name); ok {
			out = append(out, v)
		}
	case selectIndex:
		if v, ok := node.Index(s.index); ok {
			out = append(out, v)
		}
	case selectWildcard:
		switch node.Kind() {
		case Array:
			out = append(out, node.items...)
		case Object:
			for _, k := range node.keys {
				out = append(out, node.props[k])
			}
		}
	}
	return out
}

func walk(node *Value, fn func(*Value)) {
	fn(node)
	switch node.Kind() {
	case Array:
		for _, item := range node.items {
			walk(item, fn)
		}
	case Object:
		for _, k := range node.keys {
			walk(node.props[k], fn)
		}
	}
}

// Lookup resolves a dotted field path such as "result.data.0.u". Numeric
// segments index arrays; on anything else they miss.
func Lookup(root *Value, dotted string) (*Value, bool) {
	node := root
	for _, seg := range strings.Split(dotted, ".") {
		if node == nil || node.IsNull() {
			return nil, false
		}
		if isDigits(seg) {
			i, err := strconv.Atoi(seg)
			if err != nil {
				return nil, false
			}
			v, ok := node.Index(i)
			if !ok {
				return nil, false
			}
			node = v
			continue
		}
		v, ok := node.Get(seg)
		if !ok {
			return nil, false
		}
		node = v
	}
	if node == nil || node.IsNull() {
		return nil, false
	}
	return node, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
