package io

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/matzehuels/nocsched/pkg/errors"
)

// gmlValue is a GML value: a scalar (number or string) or a nested list.
type gmlValue struct {
	Scalar string
	Quoted bool
	List   gmlList
	IsList bool
}

type gmlPair struct {
	Key   string
	Value gmlValue
}

// gmlList is an ordered list of key/value pairs; keys may repeat.
type gmlList []gmlPair

// All returns the values of every pair with key.
func (l gmlList) All(key string) []gmlValue {
	var out []gmlValue
	for _, p := range l {
		if p.Key == key {
			out = append(out, p.Value)
		}
	}
	return out
}

// Get returns the first value with key.
func (l gmlList) Get(key string) (gmlValue, bool) {
	for _, p := range l {
		if p.Key == key {
			return p.Value, true
		}
	}
	return gmlValue{}, false
}

// String returns the scalar under key.
func (l gmlList) String(key string) (string, bool) {
	v, ok := l.Get(key)
	if !ok || v.IsList {
		return "", false
	}
	return v.Scalar, true
}

// Int returns the integer under key. Floats with a zero fraction are accepted
// since some writers emit "10.0".
func (l gmlList) Int(key string) (int, bool, error) {
	s, ok := l.String(key)
	if !ok {
		return 0, false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, true, errors.New(errors.ErrCodeInvalidInput, "%s: %q is not an integer", key, s)
	}
	return int(f), true, nil
}

// parseGML reads a GML document. If the document has a single "graph" list
// its content is returned, otherwise the top level.
func parseGML(r io.Reader) (gmlList, error) {
	lx := &gmlLexer{r: bufio.NewReader(r), line: 1}
	root, err := parseGMLList(lx, false)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse gml")
	}
	if g, ok := root.Get("graph"); ok && g.IsList {
		return g.List, nil
	}
	return root, nil
}

func parseGMLList(lx *gmlLexer, nested bool) (gmlList, error) {
	var out gmlList
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch {
		case tok.kind == tokEOF:
			if nested {
				return nil, fmt.Errorf("line %d: unterminated list", lx.line)
			}
			return out, nil
		case tok.kind == tokClose:
			if !nested {
				return nil, fmt.Errorf("line %d: unexpected ']'", lx.line)
			}
			return out, nil
		case tok.kind != tokKey:
			return nil, fmt.Errorf("line %d: expected key, got %q", lx.line, tok.text)
		}

		val, err := lx.next()
		if err != nil {
			return nil, err
		}
		pair := gmlPair{Key: tok.text}
		switch val.kind {
		case tokOpen:
			list, err := parseGMLList(lx, true)
			if err != nil {
				return nil, err
			}
			pair.Value = gmlValue{List: list, IsList: true}
		case tokNumber:
			pair.Value = gmlValue{Scalar: val.text}
		case tokString:
			pair.Value = gmlValue{Scalar: val.text, Quoted: true}
		default:
			return nil, fmt.Errorf("line %d: key %s has no value", lx.line, tok.text)
		}
		out = append(out, pair)
	}
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokKey
	tokNumber
	tokString
	tokOpen
	tokClose
)

type gmlToken struct {
	kind tokKind
	text string
}

type gmlLexer struct {
	r    *bufio.Reader
	line int
}

func (lx *gmlLexer) next() (gmlToken, error) {
	for {
		c, _, err := lx.r.ReadRune()
		if err == io.EOF {
			return gmlToken{kind: tokEOF}, nil
		}
		if err != nil {
			return gmlToken{}, err
		}
		switch {
		case c == '\n':
			lx.line++
		case unicode.IsSpace(c):
		case c == '#':
			if _, err := lx.r.ReadString('\n'); err != nil && err != io.EOF {
				return gmlToken{}, err
			}
			lx.line++
		case c == '[':
			return gmlToken{kind: tokOpen, text: "["}, nil
		case c == ']':
			return gmlToken{kind: tokClose, text: "]"}, nil
		case c == '"':
			return lx.quoted()
		case c == '-' || c == '+' || c == '.' || unicode.IsDigit(c):
			return gmlToken{kind: tokNumber, text: lx.run(c, isNumberRune)}, nil
		case unicode.IsLetter(c) || c == '_':
			return gmlToken{kind: tokKey, text: lx.run(c, isKeyRune)}, nil
		default:
			return gmlToken{}, fmt.Errorf("line %d: unexpected character %q", lx.line, c)
		}
	}
}

func (lx *gmlLexer) quoted() (gmlToken, error) {
	var sb strings.Builder
	for {
		c, _, err := lx.r.ReadRune()
		if err == io.EOF {
			return gmlToken{}, fmt.Errorf("line %d: unterminated string", lx.line)
		}
		if err != nil {
			return gmlToken{}, err
		}
		if c == '"' {
			return gmlToken{kind: tokString, text: unescapeGML(sb.String())}, nil
		}
		if c == '\n' {
			lx.line++
		}
		sb.WriteRune(c)
	}
}

func (lx *gmlLexer) run(first rune, ok func(rune) bool) string {
	var sb strings.Builder
	sb.WriteRune(first)
	for {
		c, _, err := lx.r.ReadRune()
		if err != nil {
			return sb.String()
		}
		if !ok(c) {
			_ = lx.r.UnreadRune()
			return sb.String()
		}
		sb.WriteRune(c)
	}
}

func isNumberRune(c rune) bool {
	return unicode.IsDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+'
}

func isKeyRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

var gmlUnescaper = strings.NewReplacer("&quot;", `"`, "&amp;", "&", "&lt;", "<", "&gt;", ">")
var gmlEscaper = strings.NewReplacer("&", "&amp;", `"`, "&quot;")

func unescapeGML(s string) string { return gmlUnescaper.Replace(s) }

// gmlWriter emits indented GML.
type gmlWriter struct {
	w     *bufio.Writer
	depth int
}

func newGMLWriter(w io.Writer) *gmlWriter {
	return &gmlWriter{w: bufio.NewWriter(w)}
}

func (g *gmlWriter) open(key string) {
	fmt.Fprintf(g.w, "%s%s [\n", g.indent(), key)
	g.depth++
}

func (g *gmlWriter) close() {
	g.depth--
	fmt.Fprintf(g.w, "%s]\n", g.indent())
}

func (g *gmlWriter) int(key string, v int) {
	fmt.Fprintf(g.w, "%s%s %d\n", g.indent(), key, v)
}

func (g *gmlWriter) str(key, v string) {
	fmt.Fprintf(g.w, "%s%s \"%s\"\n", g.indent(), key, gmlEscaper.Replace(v))
}

func (g *gmlWriter) indent() string { return strings.Repeat("  ", g.depth) }

func (g *gmlWriter) flush() error { return g.w.Flush() }

// gmlNodes maps GML node ids to node names (label when present, else id)
// and returns the names in declaration order.
func gmlNodes(g gmlList, kind string) (map[string]string, []string, []gmlList, error) {
	ids := make(map[string]string)
	var names []string
	var lists []gmlList
	for i, v := range g.All("node") {
		if !v.IsList {
			return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "%s %d: node is not a list", kind, i)
		}
		id, ok := v.List.String("id")
		if !ok {
			return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "%s %d: node has no id", kind, i)
		}
		name := id
		if label, ok := v.List.String("label"); ok && label != "" {
			name = label
		}
		if _, dup := ids[id]; dup {
			return nil, nil, nil, errors.New(errors.ErrCodeInvalidInput, "duplicate %s id %s", kind, id)
		}
		ids[id] = name
		names = append(names, name)
		lists = append(lists, v.List)
	}
	return ids, names, lists, nil
}

// gmlEdgeEnds resolves the source and target of an edge through ids.
func gmlEdgeEnds(e gmlList, ids map[string]string) (string, string, error) {
	src, ok := e.String("source")
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "edge has no source")
	}
	dst, ok := e.String("target")
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "edge has no target")
	}
	s, ok := ids[src]
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "edge source %s is not a node id", src)
	}
	t, ok := ids[dst]
	if !ok {
		return "", "", errors.New(errors.ErrCodeInvalidInput, "edge target %s is not a node id", dst)
	}
	return s, t, nil
}
