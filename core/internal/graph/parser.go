package graph

import "fmt"

// parser consumes tokens from a lexer one at a time, with a single token of
// lookahead, in the teacher's recursive-descent idiom.
type parser struct {
	lex *lexer
	cur token
}

// Parse parses a single GraphQL executable document (one operation, optional
// fragment definitions) per spec.md's "standard executable documents" scope.
func Parse(src string) (*Document, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	doc := &Document{Operation: OpQuery, Fragments: map[string]*FragmentDef{}}

	for p.cur.typ != tEOF {
		if p.cur.typ == tName && p.cur.val == "fragment" {
			frag, err := p.parseFragment()
			if err != nil {
				return nil, err
			}
			doc.Fragments[frag.Name] = frag
			continue
		}

		if p.cur.typ == tName && (p.cur.val == "query" || p.cur.val == "mutation" || p.cur.val == "subscription") {
			switch p.cur.val {
			case "mutation":
				doc.Operation = OpMutation
			case "subscription":
				doc.Operation = OpSubscription
			default:
				doc.Operation = OpQuery
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.typ == tName {
				doc.Name = p.cur.val
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if p.isPunct("(") {
				vars, err := p.parseVariableDefs()
				if err != nil {
					return nil, err
				}
				doc.Variables = vars
			}
		}

		if !p.isPunct("{") {
			return nil, fmt.Errorf("graph: expected selection set")
		}
		sels, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		doc.Selections = sels
	}

	return doc, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) isPunct(s string) bool {
	return p.cur.typ == tPunct && p.cur.val == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return fmt.Errorf("graph: expected %q, got %q", s, p.cur.val)
	}
	return p.advance()
}

func (p *parser) parseVariableDefs() ([]VariableDef, error) {
	var defs []VariableDef
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.isPunct(")") {
		if p.cur.typ != tVar {
			return nil, fmt.Errorf("graph: expected variable definition")
		}
		def := VariableDef{Name: p.cur.val}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		typ, nonNull, err := p.parseTypeRef()
		if err != nil {
			return nil, err
		}
		def.Type = typ
		def.NonNull = nonNull

		if p.isPunct("=") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			val, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			def.HasDefault = true
			def.Default = val
		}
		defs = append(defs, def)
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return defs, nil
}

func (p *parser) parseTypeRef() (string, bool, error) {
	name := ""
	if p.isPunct("[") {
		if err := p.advance(); err != nil {
			return "", false, err
		}
		inner, _, err := p.parseTypeRef()
		if err != nil {
			return "", false, err
		}
		if err := p.expectPunct("]"); err != nil {
			return "", false, err
		}
		name = "[" + inner + "]"
	} else {
		if p.cur.typ != tName {
			return "", false, fmt.Errorf("graph: expected type name")
		}
		name = p.cur.val
		if err := p.advance(); err != nil {
			return "", false, err
		}
	}
	nonNull := false
	if p.isPunct("!") {
		nonNull = true
		if err := p.advance(); err != nil {
			return "", false, err
		}
	}
	return name, nonNull, nil
}

func (p *parser) parseFragment() (*FragmentDef, error) {
	if err := p.advance(); err != nil { // consume 'fragment'
		return nil, err
	}
	if p.cur.typ != tName {
		return nil, fmt.Errorf("graph: expected fragment name")
	}
	frag := &FragmentDef{Name: p.cur.val}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.typ != tName || p.cur.val != "on" {
		return nil, fmt.Errorf("graph: expected 'on' in fragment definition")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.typ != tName {
		return nil, fmt.Errorf("graph: expected type condition")
	}
	frag.OnType = p.cur.val
	if err := p.advance(); err != nil {
		return nil, err
	}
	sels, err := p.parseSelectionSet()
	if err != nil {
		return nil, err
	}
	frag.Selections = sels
	return frag, nil
}

func (p *parser) parseSelectionSet() ([]*Field, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var fields []*Field
	for !p.isPunct("}") {
		if p.isSpread() {
			spread, err := p.parseSpread()
			if err != nil {
				return nil, err
			}
			fields = append(fields, spread...)
			continue
		}
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, p.expectPunct("}")
}

func (p *parser) isSpread() bool {
	return p.cur.typ == tPunct && p.cur.val == "..."
}

func (p *parser) parseSpread() ([]*Field, error) {
	if err := p.advance(); err != nil { // consume "..."
		return nil, err
	}
	if p.cur.typ == tName && p.cur.val == "on" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.typ != tName {
			return nil, fmt.Errorf("graph: expected type condition after 'on'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseSelectionSet()
	}
	if p.cur.typ != tName {
		return nil, fmt.Errorf("graph: expected fragment name after ...")
	}
	name := p.cur.val
	if err := p.advance(); err != nil {
		return nil, err
	}
	// Fragment spreads are resolved by the planner (it has the Document's
	// Fragments map); we surface a synthetic field carrying the name so the
	// planner can splice its selections in without checking the type
	// condition.
	return []*Field{{Name: "...", Alias: name}}, nil
}

func (p *parser) parseField() (*Field, error) {
	if p.cur.typ != tName {
		return nil, fmt.Errorf("graph: expected field name, got %q", p.cur.val)
	}
	first := p.cur.val
	if err := p.advance(); err != nil {
		return nil, err
	}

	f := &Field{Name: first}
	if p.isPunct(":") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.typ != tName {
			return nil, fmt.Errorf("graph: expected field name after alias")
		}
		f.Alias = first
		f.Name = p.cur.val
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.isPunct("(") {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		f.Args = args
	}

	for p.cur.typ == tPunct && p.cur.val == "@" {
		d, err := p.parseDirective()
		if err != nil {
			return nil, err
		}
		f.Directives = append(f.Directives, d)
	}

	if p.isPunct("{") {
		sels, err := p.parseSelectionSet()
		if err != nil {
			return nil, err
		}
		f.Selections = sels
	}
	return f, nil
}

func (p *parser) parseDirective() (Directive, error) {
	if err := p.advance(); err != nil { // consume '@'
		return Directive{}, err
	}
	if p.cur.typ != tName {
		return Directive{}, fmt.Errorf("graph: expected directive name")
	}
	d := Directive{Name: p.cur.val, Args: map[string]*Node{}}
	if err := p.advance(); err != nil {
		return Directive{}, err
	}
	if p.isPunct("(") {
		args, err := p.parseArguments()
		if err != nil {
			return Directive{}, err
		}
		for _, a := range args {
			d.Args[a.Name] = a.Val
		}
	}
	return d, nil
}

func (p *parser) parseArguments() ([]Argument, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Argument
	for !p.isPunct(")") {
		if p.cur.typ != tName {
			return nil, fmt.Errorf("graph: expected argument name")
		}
		name := p.cur.val
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, Argument{Name: name, Val: val})
	}
	return args, p.expectPunct(")")
}

func (p *parser) parseValue() (*Node, error) {
	switch p.cur.typ {
	case tVar:
		n := &Node{Type: NodeVar, Val: p.cur.val}
		return n, p.advance()
	case tString:
		n := &Node{Type: NodeStr, Val: p.cur.val}
		return n, p.advance()
	case tInt, tFloat:
		n := &Node{Type: NodeNum, Val: p.cur.val}
		return n, p.advance()
	case tBoolTrue:
		n := &Node{Type: NodeBool, Val: "true"}
		return n, p.advance()
	case tBoolFalse:
		n := &Node{Type: NodeBool, Val: "false"}
		return n, p.advance()
	case tNull:
		n := &Node{Type: NodeNull}
		return n, p.advance()
	case tName:
		// bare enum-like value, treat as string
		n := &Node{Type: NodeStr, Val: p.cur.val}
		return n, p.advance()
	case tPunct:
		switch p.cur.val {
		case "[":
			return p.parseList()
		case "{":
			return p.parseObject()
		}
	}
	return nil, fmt.Errorf("graph: unexpected value token %q", p.cur.val)
}

func (p *parser) parseList() (*Node, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	n := &Node{Type: NodeList}
	for !p.isPunct("]") {
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, v)
	}
	return n, p.expectPunct("]")
}

func (p *parser) parseObject() (*Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	n := &Node{Type: NodeObj}
	for !p.isPunct("}") {
		if p.cur.typ != tName {
			return nil, fmt.Errorf("graph: expected object field name")
		}
		name := p.cur.val
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		v.Name = name
		n.Children = append(n.Children, v)
	}
	return n, p.expectPunct("}")
}
