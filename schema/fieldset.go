package schema

import "fmt"

// FieldSet is a parsed federation field-set selection, as used by
// `@key(fields: ...)`, `@requires(fields: ...)`, and `@provides(fields:
// ...)`. A flat key like "id" parses to one selection with no children;
// a nested requires clause like `user(userId:$userId){country}` parses to
// one selection with an argument and a child selection.
type FieldSet []*FieldSetSelection

// FieldSetSelection is one name (with optional arguments and a nested
// selection) inside a FieldSet.
type FieldSetSelection struct {
	Name     string
	Args     []FieldSetArg
	Children FieldSet
}

// FieldSetArg is one argument of a FieldSetSelection. Value is the raw
// textual literal; a leading '$' denotes a reference to an argument of
// the field that carried the owning directive (see planner/synthetic.go).
type FieldSetArg struct {
	Name  string
	Value string
}

// Names returns the top-level selection names, the only shape the `@key`
// shadow-injection logic needs.
func (fs FieldSet) Names() []string {
	names := make([]string, 0, len(fs))
	for _, s := range fs {
		names = append(names, s.Name)
	}
	return names
}

// ParseFieldSet parses the field-set mini-language:
//
//	fieldset  := selection ( selection )*
//	selection := name [ '(' args ')' ] [ '{' fieldset '}' ]
//	args      := arg ( ',' arg )*
//	arg       := name ':' value
//	value     := '$' name | '"' ... '"' | bareword
//
// The teacher's own parsers (parseEntityKeys, parseField) only ever split
// the fields string on whitespace, because every fixture in the retrieved
// corpus uses flat key names. `@requires` chains need the nested form, so
// the grammar is generalized here to the full mini-language.
func ParseFieldSet(src string) (FieldSet, error) {
	p := &fieldSetParser{src: src}
	p.skipSpace()
	var out FieldSet
	for !p.atEnd() {
		sel, err := p.parseSelection()
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
		p.skipSpace()
	}
	return out, nil
}

type fieldSetParser struct {
	src string
	pos int
}

func (p *fieldSetParser) atEnd() bool { return p.pos >= len(p.src) }

func (p *fieldSetParser) peek() byte {
	if p.atEnd() {
		return 0
	}
	return p.src[p.pos]
}

func (p *fieldSetParser) skipSpace() {
	for !p.atEnd() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r', ',':
			p.pos++
		default:
			return
		}
	}
}

func isNameByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *fieldSetParser) parseName() string {
	start := p.pos
	for !p.atEnd() && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *fieldSetParser) parseSelection() (*FieldSetSelection, error) {
	name := p.parseName()
	if name == "" {
		return nil, fmt.Errorf("schema: invalid field set %q at offset %d", p.src, p.pos)
	}
	sel := &FieldSetSelection{Name: name}
	p.skipSpace()

	if p.peek() == '(' {
		p.pos++
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		sel.Args = args
		p.skipSpace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("schema: expected ')' in field set %q", p.src)
		}
		p.pos++
		p.skipSpace()
	}

	if p.peek() == '{' {
		p.pos++
		p.skipSpace()
		var children FieldSet
		for !p.atEnd() && p.peek() != '}' {
			child, err := p.parseSelection()
			if err != nil {
				return nil, err
			}
			children = append(children, child)
			p.skipSpace()
		}
		if p.peek() != '}' {
			return nil, fmt.Errorf("schema: unterminated selection set in field set %q", p.src)
		}
		p.pos++
		sel.Children = children
	}

	return sel, nil
}

func (p *fieldSetParser) parseArgs() ([]FieldSetArg, error) {
	var args []FieldSetArg
	p.skipSpace()
	for !p.atEnd() && p.peek() != ')' {
		name := p.parseName()
		if name == "" {
			return nil, fmt.Errorf("schema: invalid argument in field set %q", p.src)
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, fmt.Errorf("schema: expected ':' after argument %q in %q", name, p.src)
		}
		p.pos++
		p.skipSpace()
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, FieldSetArg{Name: name, Value: value})
		p.skipSpace()
	}
	return args, nil
}

func (p *fieldSetParser) parseValue() (string, error) {
	if p.peek() == '$' {
		start := p.pos
		p.pos++
		p.parseName()
		return p.src[start:p.pos], nil
	}
	if p.peek() == '"' {
		start := p.pos
		p.pos++
		for !p.atEnd() && p.peek() != '"' {
			p.pos++
		}
		if p.atEnd() {
			return "", fmt.Errorf("schema: unterminated string value in %q", p.src)
		}
		p.pos++
		return p.src[start:p.pos], nil
	}
	start := p.pos
	for !p.atEnd() {
		switch p.peek() {
		case ',', ')', '}', ' ', '\t', '\n':
			return p.src[start:p.pos], nil
		}
		p.pos++
	}
	return p.src[start:p.pos], nil
}
