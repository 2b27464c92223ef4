package astfile

import (
	"fmt"
	"slices"
	"strconv"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"lumen/internal/source"
)

type nodeKind uint8

const (
	nodeNull nodeKind = iota
	nodeScalar
	nodeSeq
	nodeMap
)

type scalarKind uint8

const (
	scalarString scalarKind = iota
	scalarInt
	scalarFloat
	scalarBool
)

// node is the encoding-independent document tree. Map keys keep document
// order for YAML; msgpack maps arrive unordered and are sorted by key.
type node struct {
	kind   nodeKind
	scalar scalarKind
	text   string
	items  []*node
	keys   []string
	vals   []*node
	span   source.Span
}

func (n *node) get(key string) (*node, bool) {
	if n == nil || n.kind != nodeMap {
		return nil, false
	}
	for i, k := range n.keys {
		if k == key {
			return n.vals[i], true
		}
	}
	return nil, false
}

// first returns the first of keys present in the map, in keys order.
func (n *node) first(keys ...string) (string, *node, bool) {
	for _, k := range keys {
		if v, ok := n.get(k); ok {
			return k, v, true
		}
	}
	return "", nil, false
}

func (n *node) isNull() bool {
	return n == nil || n.kind == nodeNull
}

func (n *node) str() (string, bool) {
	if n == nil || n.kind != nodeScalar {
		return "", false
	}
	return n.text, true
}

func (n *node) boolean() bool {
	if n == nil || n.kind != nodeScalar {
		return false
	}
	b, err := strconv.ParseBool(n.text)
	return err == nil && b
}

func (n *node) describe() string {
	switch {
	case n == nil || n.kind == nodeNull:
		return "null"
	case n.kind == nodeScalar:
		return strconv.Quote(n.text)
	case n.kind == nodeSeq:
		return "list"
	case len(n.keys) > 0:
		return "map {" + n.keys[0] + ": ...}"
	}
	return "empty map"
}

// fromYAML converts a yaml.v3 tree. Positions are mapped back to byte
// offsets of file, which holds the document text.
func fromYAML(y *yaml.Node, file *source.File) (*node, error) {
	for y != nil && (y.Kind == yaml.DocumentNode || y.Kind == yaml.AliasNode) {
		if y.Kind == yaml.AliasNode {
			y = y.Alias
			continue
		}
		if len(y.Content) == 0 {
			return &node{kind: nodeNull}, nil
		}
		y = y.Content[0]
	}
	if y == nil {
		return &node{kind: nodeNull}, nil
	}
	n := &node{span: yamlSpan(y, file)}
	switch y.Kind {
	case yaml.ScalarNode:
		n.kind = nodeScalar
		n.text = y.Value
		switch y.ShortTag() {
		case "!!null":
			n.kind = nodeNull
		case "!!int":
			n.scalar = scalarInt
		case "!!float":
			n.scalar = scalarFloat
		case "!!bool":
			n.scalar = scalarBool
		}
	case yaml.SequenceNode:
		n.kind = nodeSeq
		for _, c := range y.Content {
			child, err := fromYAML(c, file)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
			n.span = n.span.Cover(child.span)
		}
	case yaml.MappingNode:
		n.kind = nodeMap
		for i := 0; i+1 < len(y.Content); i += 2 {
			k, v := y.Content[i], y.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: map keys must be scalars", k.Line)
			}
			child, err := fromYAML(v, file)
			if err != nil {
				return nil, err
			}
			n.keys = append(n.keys, k.Value)
			n.vals = append(n.vals, child)
			n.span = n.span.Cover(child.span)
		}
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node", y.Line)
	}
	return n, nil
}

func yamlSpan(y *yaml.Node, file *source.File) source.Span {
	if file == nil || y.Line <= 0 {
		return source.Span{}
	}
	line, err := safecast.Conv[uint32](y.Line)
	if err != nil {
		return source.Span{File: file.ID}
	}
	col, err := safecast.Conv[uint32](y.Column)
	if err != nil {
		return source.Span{File: file.ID}
	}
	start := file.Offset(line, col)
	end := start
	if y.Kind == yaml.ScalarNode {
		width, err := safecast.Conv[uint32](len(y.Value))
		if err == nil {
			end = file.Offset(line, col+width)
		}
	}
	return source.Span{File: file.ID, Start: start, End: end}
}

// fromValue converts a generically decoded msgpack value. There are no
// positions; every span names file with an empty range.
func fromValue(v any, file source.FileID) (*node, error) {
	n := &node{kind: nodeScalar, span: source.Span{File: file}}
	switch x := v.(type) {
	case nil:
		n.kind = nodeNull
	case string:
		n.text = x
	case []byte:
		n.text = string(x)
	case bool:
		n.scalar = scalarBool
		n.text = strconv.FormatBool(x)
	case int8, int16, int32, int64, int:
		n.scalar = scalarInt
		n.text = fmt.Sprint(x)
	case uint8, uint16, uint32, uint64, uint:
		n.scalar = scalarInt
		n.text = fmt.Sprint(x)
	case float32:
		n.scalar = scalarFloat
		n.text = strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		n.scalar = scalarFloat
		n.text = strconv.FormatFloat(x, 'g', -1, 64)
	case []any:
		n.kind = nodeSeq
		for _, e := range x {
			child, err := fromValue(e, file)
			if err != nil {
				return nil, err
			}
			n.items = append(n.items, child)
		}
	case map[string]any:
		n.kind = nodeMap
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			child, err := fromValue(x[k], file)
			if err != nil {
				return nil, err
			}
			n.keys = append(n.keys, k)
			n.vals = append(n.vals, child)
		}
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = val
		}
		return fromValue(m, file)
	default:
		return nil, fmt.Errorf("unsupported value of type %T", v)
	}
	return n, nil
}
