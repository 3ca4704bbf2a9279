package dfg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxRecordBytes bounds a single dump line. Flattened expression trees for
// wide muxes routinely exceed bufio's default token size.
const maxRecordBytes = 4 * 1024 * 1024

// ParseError describes a malformed dump record. Fatal for the file it came
// from; a batch driver decides whether to continue with other files.
type ParseError struct {
	Line int    // 1-based line number
	Text string // Offending line
	Msg  string
}

func (e *ParseError) Error() string {
	text := e.Text
	if len(text) > 80 {
		text = text[:77] + "..."
	}
	if text == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, text)
}

// ParseFile parses the dump at path.
func ParseFile(path string) (*Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()
	d, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return d, nil
}

// ParseString parses a dump held in memory.
func ParseString(s string) (*Design, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a dump and builds the Design. Records are line-oriented:
// section headers ("Term:", "Bind:", ...), instance tuples, Term
// declarations, and Bind expressions. Content of sections the model does not
// cover (Directive, Branch) is consumed and dropped. Any other unrecognized
// record is a ParseError.
func Parse(r io.Reader) (*Design, error) {
	d := &Design{Signals: make(map[string]*Signal)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordBytes)

	section := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// Section headers are bare words ending in a colon.
		if strings.HasSuffix(line, ":") && !strings.HasPrefix(line, "(") && !strings.ContainsAny(line, " \t") {
			section = strings.TrimSuffix(line, ":")
			continue
		}

		if err := checkBalanced(line); err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Msg: err.Error()}
		}

		switch {
		case strings.HasPrefix(line, "(Term "):
			if err := d.parseTermLine(line); err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: err.Error()}
			}
		case strings.HasPrefix(line, "(Bind "):
			if err := d.parseBindLine(line); err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: err.Error()}
			}
		case section == "Instance":
			if err := d.parseInstanceLine(line); err != nil {
				return nil, &ParseError{Line: lineNo, Text: line, Msg: err.Error()}
			}
		case section == "Directive" || section == "Branch":
			// Recognized sections without a modeled record shape.
		default:
			return nil, &ParseError{Line: lineNo, Text: line, Msg: "unrecognized record"}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}

	d.resolveExternal()
	return d, nil
}

// checkBalanced verifies parenthesis nesting over a whole record before any
// tag dispatch happens.
func checkBalanced(line string) error {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	return nil
}

// parseInstanceLine handles "(modname, 'instname')" tuples.
func (d *Design) parseInstanceLine(line string) error {
	if !strings.HasPrefix(line, "(") || !strings.HasSuffix(line, ")") {
		return fmt.Errorf("malformed instance record")
	}
	inner := line[1 : len(line)-1]
	comma := strings.IndexByte(inner, ',')
	if comma < 0 {
		return fmt.Errorf("malformed instance record")
	}
	module := strings.TrimSpace(inner[:comma])
	name := strings.Trim(strings.TrimSpace(inner[comma+1:]), "'\"")
	if module == "" || name == "" {
		return fmt.Errorf("malformed instance record")
	}
	d.Instances = append(d.Instances, Instance{Module: module, Name: name})
	if d.Name == "" {
		d.Name = module
	}
	return nil
}

// parseTermLine handles a signal declaration:
//
//	(Term name:top.count type:['Reg'] msb:(IntConst 31) lsb:(IntConst 0))
//
// The msb/lsb fields are optional.
func (d *Design) parseTermLine(line string) error {
	inner := line[1 : len(line)-1] // checked balanced, starts "(Term "
	body := strings.TrimPrefix(inner, "Term ")

	name, ok := fieldToken(body, "name:")
	if !ok || name == "" {
		return fmt.Errorf("term record missing name")
	}

	typesRaw, ok := bracketField(body, "type:")
	if !ok {
		return fmt.Errorf("term record missing type list")
	}
	var kinds []SignalKind
	for _, t := range strings.Split(typesRaw, ",") {
		t = strings.Trim(strings.TrimSpace(t), "'\"")
		if t != "" {
			kinds = append(kinds, SignalKind(t))
		}
	}

	msb, err := intConstField(body, "msb:")
	if err != nil {
		return err
	}
	lsb, err := intConstField(body, "lsb:")
	if err != nil {
		return err
	}

	sig, exists := d.Signals[name]
	if !exists {
		sig = &Signal{Name: name}
		d.Signals[name] = sig
	}
	sig.Kinds = kinds
	sig.MSB = msb
	sig.LSB = lsb
	return nil
}

// parseBindLine handles a signal definition:
//
//	(Bind dest:top.count tree:(Operator Plus Next:(Terminal top.count),(IntConst 1)))
//
// Fields between dest and tree (partial-assignment msb/lsb and the like) are
// accepted and skipped; the expression runs to the bind's closing paren.
func (d *Design) parseBindLine(line string) error {
	inner := line[1 : len(line)-1]
	body := strings.TrimPrefix(inner, "Bind ")

	dest, ok := fieldToken(body, "dest:")
	if !ok || dest == "" {
		return fmt.Errorf("bind record missing dest")
	}

	at := indexAtDepth(body, "tree:", 0)
	if at < 0 {
		return fmt.Errorf("bind record missing tree")
	}
	exprText := strings.TrimSpace(body[at+len("tree:"):])
	if exprText == "" {
		return fmt.Errorf("bind record missing tree")
	}

	root, err := parseExpr(exprText)
	if err != nil {
		return err
	}

	sig, exists := d.Signals[dest]
	if !exists {
		sig = &Signal{Name: dest}
		d.Signals[dest] = sig
	}
	sig.Root = root
	return nil
}

// parseExpr parses one parenthesized expression node, recursing for nested
// values. s must be exactly one node: "(" Tag body ")".
func parseExpr(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '(' {
		return nil, fmt.Errorf("malformed expression node %q", clip(s))
	}
	end := matchParen(s, 0)
	if end < 0 {
		return nil, fmt.Errorf("unbalanced parentheses in expression %q", clip(s))
	}
	if end != len(s)-1 {
		return nil, fmt.Errorf("trailing text after expression node %q", clip(s))
	}

	inner := strings.TrimSpace(s[1:end])
	tag := inner
	body := ""
	if sp := strings.IndexByte(inner, ' '); sp >= 0 {
		tag = inner[:sp]
		body = strings.TrimSpace(inner[sp+1:])
	}

	switch tag {
	case "Terminal":
		if body == "" || strings.ContainsAny(body, "()") {
			return nil, fmt.Errorf("malformed terminal %q", clip(inner))
		}
		return &Terminal{Name: body}, nil

	case "IntConst":
		if body == "" {
			return nil, fmt.Errorf("malformed constant %q", clip(inner))
		}
		return &IntConst{Value: body}, nil

	case "Operator":
		sp := strings.IndexByte(body, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("operator node missing operands %q", clip(inner))
		}
		op := body[:sp]
		rest := strings.TrimSpace(body[sp+1:])
		operands, err := parseOperandList(rest)
		if err != nil {
			return nil, err
		}
		return &Operator{Op: op, Operands: operands}, nil

	case "Concat":
		parts, err := parseOperandList(body)
		if err != nil {
			return nil, err
		}
		return &Concat{Parts: parts}, nil

	case "Branch":
		cond, ok, err := keyedExpr(body, "Cond:")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("branch node missing Cond %q", clip(inner))
		}
		tru, ok, err := keyedExpr(body, "True:")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("branch node missing True %q", clip(inner))
		}
		fls, _, err := keyedExpr(body, "False:")
		if err != nil {
			return nil, err
		}
		return &Branch{Cond: cond, True: tru, False: fls}, nil

	case "Partselect":
		return parsePartselect(body, inner)

	default:
		return nil, fmt.Errorf("unknown expression tag %q", tag)
	}
}

// parseOperandList parses "Next:(e1),(e2),..." splitting only on commas at
// parenthesis depth zero.
func parseOperandList(s string) ([]Expr, error) {
	if !strings.HasPrefix(s, "Next:") {
		return nil, fmt.Errorf("operand list missing Next marker %q", clip(s))
	}
	listText := strings.TrimSpace(s[len("Next:"):])
	pieces := splitTopLevel(listText, ',')
	if len(pieces) == 0 {
		return nil, fmt.Errorf("empty operand list")
	}
	operands := make([]Expr, 0, len(pieces))
	for _, p := range pieces {
		e, err := parseExpr(p)
		if err != nil {
			return nil, err
		}
		operands = append(operands, e)
	}
	return operands, nil
}

// parsePartselect accepts both the keyed form "Var:(...) MSB:(...) LSB:(...)"
// and the bare positional form "(...) (...) (...)".
func parsePartselect(body, inner string) (Expr, error) {
	if strings.HasPrefix(body, "Var:") {
		base, ok, err := keyedExpr(body, "Var:")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("partselect missing Var %q", clip(inner))
		}
		msb, ok, err := keyedExpr(body, "MSB:")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("partselect missing MSB %q", clip(inner))
		}
		lsb, ok, err := keyedExpr(body, "LSB:")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("partselect missing LSB %q", clip(inner))
		}
		return &Partselect{Base: base, MSB: msb, LSB: lsb}, nil
	}

	groups := topLevelGroups(body)
	if len(groups) != 3 {
		return nil, fmt.Errorf("partselect needs base, msb and lsb %q", clip(inner))
	}
	base, err := parseExpr(groups[0])
	if err != nil {
		return nil, err
	}
	msb, err := parseExpr(groups[1])
	if err != nil {
		return nil, err
	}
	lsb, err := parseExpr(groups[2])
	if err != nil {
		return nil, err
	}
	return &Partselect{Base: base, MSB: msb, LSB: lsb}, nil
}

// keyedExpr locates key at depth zero in s and parses the parenthesized
// value that follows it.
func keyedExpr(s, key string) (Expr, bool, error) {
	at := indexAtDepth(s, key, 0)
	if at < 0 {
		return nil, false, nil
	}
	rest := strings.TrimSpace(s[at+len(key):])
	if rest == "" || rest[0] != '(' {
		return nil, false, fmt.Errorf("field %s is not a nested expression %q", key, clip(s))
	}
	end := matchParen(rest, 0)
	if end < 0 {
		return nil, false, fmt.Errorf("unbalanced parentheses after %s %q", key, clip(s))
	}
	e, err := parseExpr(rest[:end+1])
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// indexAtDepth returns the index of the first occurrence of sub found at
// parenthesis depth want, or -1. Matches begin at a token boundary so a key
// never matches inside an identifier.
func indexAtDepth(s, sub string, want int) int {
	depth := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		switch s[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != want || s[i:i+len(sub)] != sub {
			continue
		}
		if i > 0 && s[i-1] != ' ' && s[i-1] != '\t' {
			continue
		}
		return i
	}
	return -1
}

// splitTopLevel splits s on sep occurrences at parenthesis depth zero,
// trimming each piece. Empty pieces are dropped.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// topLevelGroups collects each complete "(...)" group found at depth zero.
func topLevelGroups(s string) []string {
	var groups []string
	for i := 0; i < len(s); i++ {
		if s[i] != '(' {
			continue
		}
		end := matchParen(s, i)
		if end < 0 {
			return nil
		}
		groups = append(groups, s[i:end+1])
		i = end
	}
	return groups
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1 when the nesting never closes.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func clip(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

// fieldToken extracts the whitespace-delimited value following key at depth
// zero: "name:top.count type:[...]" with key "name:" yields "top.count".
func fieldToken(s, key string) (string, bool) {
	at := indexAtDepth(s, key, 0)
	if at < 0 {
		return "", false
	}
	rest := s[at+len(key):]
	if sp := strings.IndexAny(rest, " \t"); sp >= 0 {
		rest = rest[:sp]
	}
	return rest, true
}

// bracketField extracts the "[...]" body following key: type:['Input','Reg']
// yields "'Input','Reg'".
func bracketField(s, key string) (string, bool) {
	at := indexAtDepth(s, key, 0)
	if at < 0 {
		return "", false
	}
	rest := s[at+len(key):]
	if !strings.HasPrefix(rest, "[") {
		return "", false
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return "", false
	}
	return rest[1:end], true
}

// intConstField extracts the literal from an optional "key:(IntConst V)"
// field. Missing field is not an error; a present field of another shape is.
func intConstField(s, key string) (string, error) {
	at := indexAtDepth(s, key, 0)
	if at < 0 {
		return "", nil
	}
	rest := strings.TrimSpace(s[at+len(key):])
	if !strings.HasPrefix(rest, "(IntConst ") {
		return "", fmt.Errorf("field %s is not an IntConst", key)
	}
	end := matchParen(rest, 0)
	if end < 0 {
		return "", fmt.Errorf("unbalanced parentheses after %s", key)
	}
	return strings.TrimSpace(rest[len("(IntConst "):end]), nil
}
