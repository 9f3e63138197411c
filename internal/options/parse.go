package options

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/fedscan/fedscan/internal/value"
)

// Parse reads a comma-separated option list as it appears inside
// `OPTIONS ( ... )`. Both separators are accepted and produce identical maps:
//
//	region = 'us-east-1', infer_rows => 10
//
// Values may be single-quoted strings, numbers, booleans, NULL, bracketed
// string lists, or bare words (treated as strings).
func Parse(input string) (Map, error) {
	p := &parser{input: input}
	m := Map{}
	p.skipSpace()
	if p.done() {
		return m, nil
	}
	for {
		key, err := p.readKey()
		if err != nil {
			return nil, err
		}
		if err := p.readSeparator(); err != nil {
			return nil, err
		}
		v, err := p.readValue()
		if err != nil {
			return nil, err
		}
		if _, exists := m[normalizeKey(key)]; exists {
			return nil, fmt.Errorf("%w: duplicate option %q", ErrInvalidOption, key)
		}
		m.Set(key, v)
		p.skipSpace()
		if p.done() {
			return m, nil
		}
		if !p.consume(',') {
			return nil, fmt.Errorf("%w: expected ',' at position %d", ErrInvalidOption, p.pos)
		}
		p.skipSpace()
	}
}

type parser struct {
	input string
	pos   int
}

func (p *parser) done() bool { return p.pos >= len(p.input) }

func (p *parser) skipSpace() {
	for !p.done() && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *parser) consume(ch byte) bool {
	if !p.done() && p.input[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *parser) readKey() (string, error) {
	p.skipSpace()
	start := p.pos
	for !p.done() {
		c := p.input[p.pos]
		if c == '_' || c == '.' || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)) {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("%w: expected option key at position %d", ErrInvalidOption, p.pos)
	}
	return p.input[start:p.pos], nil
}

// readSeparator accepts either `=` or `=>`; the two spellings are
// interchangeable everywhere options appear.
func (p *parser) readSeparator() error {
	p.skipSpace()
	if !p.consume('=') {
		return fmt.Errorf("%w: expected '=' or '=>' at position %d", ErrInvalidOption, p.pos)
	}
	p.consume('>')
	return nil
}

func (p *parser) readValue() (value.Value, error) {
	p.skipSpace()
	if p.done() {
		return value.Null(), fmt.Errorf("%w: expected option value at position %d", ErrInvalidOption, p.pos)
	}
	switch c := p.input[p.pos]; {
	case c == '\'':
		s, err := p.readQuoted()
		if err != nil {
			return value.Null(), err
		}
		return value.String(s), nil
	case c == '[':
		return p.readList()
	default:
		return p.readBare()
	}
}

func (p *parser) readQuoted() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for !p.done() {
		c := p.input[p.pos]
		if c == '\'' {
			// '' escapes a literal quote
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == '\'' {
				sb.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("%w: unterminated string literal", ErrInvalidOption)
}

func (p *parser) readList() (value.Value, error) {
	p.pos++ // opening bracket
	var items []value.Value
	p.skipSpace()
	if p.consume(']') {
		return value.List(items), nil
	}
	for {
		item, err := p.readValue()
		if err != nil {
			return value.Null(), err
		}
		items = append(items, item)
		p.skipSpace()
		if p.consume(']') {
			return value.List(items), nil
		}
		if !p.consume(',') {
			return value.Null(), fmt.Errorf("%w: expected ',' or ']' at position %d", ErrInvalidOption, p.pos)
		}
		p.skipSpace()
	}
}

func (p *parser) readBare() (value.Value, error) {
	start := p.pos
	for !p.done() {
		c := p.input[p.pos]
		if c == ',' || c == ']' || unicode.IsSpace(rune(c)) {
			break
		}
		p.pos++
	}
	raw := p.input[start:p.pos]
	if raw == "" {
		return value.Null(), fmt.Errorf("%w: expected option value at position %d", ErrInvalidOption, p.pos)
	}
	switch strings.ToLower(raw) {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	case "null":
		return value.Null(), nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.Int64(i), nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.Float64(f), nil
	}
	return value.String(raw), nil
}
