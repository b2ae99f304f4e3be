// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package sandbox

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// pythonToFlow translates a value literal in Python notation into a YAML flow
// document with only double-quoted strings and canonical numbers, so the YAML
// decoder never gets to guess.
func pythonToFlow(literal string) (string, error) {
	l := &notationLexer{src: literal}
	return l.translate()
}

// What a group expects to see next.
const (
	expectItem  = iota // after the opening bracket or a comma
	expectColon        // after a dict key
	expectValue        // after the colon of a dict item
	expectSep          // after a complete item
)

type notationGroup struct {
	open   byte // '{', '[', or '('
	state  int
	items  int
	commas int
}

type notationLexer struct {
	src    string
	pos    int
	tokens []string
	groups []*notationGroup
	values int // top-level values seen
}

func (l *notationLexer) translate() (string, error) {
	for l.pos < len(l.src) {
		var err error
		switch ch := l.src[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.pos++
		case ch == '{' || ch == '[' || ch == '(':
			err = l.open(ch)
		case ch == '}' || ch == ']' || ch == ')':
			err = l.close(ch)
		case ch == ',':
			err = l.comma()
		case ch == ':':
			err = l.colon()
		case ch == '\'' || ch == '"':
			err = l.str()
		case isDigit(ch) || ch == '.' || ch == '-' || ch == '+':
			err = l.number()
		case isLetter(ch) || ch == '_':
			err = l.name()
		default:
			r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
			err = fmt.Errorf("character %q not allowed", r)
		}
		if err != nil {
			return "", err
		}
	}
	if len(l.groups) > 0 {
		return "", fmt.Errorf("unclosed %q", l.groups[len(l.groups)-1].open)
	}
	if len(l.tokens) == 0 {
		return "", errors.New("empty value literal")
	}
	return strings.Join(l.tokens, " "), nil
}

func (l *notationLexer) group() *notationGroup {
	if len(l.groups) == 0 {
		return nil
	}
	return l.groups[len(l.groups)-1]
}

func (l *notationLexer) emit(token string) {
	l.tokens = append(l.tokens, token)
}

// value accounts for the start of a value.
func (l *notationLexer) value() error {
	g := l.group()
	if g == nil {
		if l.values > 0 {
			return fmt.Errorf("unexpected value at offset %d", l.pos)
		}
		l.values++
		return nil
	}
	switch g.state {
	case expectItem:
		g.items++
		if g.open == '{' {
			g.state = expectColon
		} else {
			g.state = expectSep
		}
	case expectValue:
		g.state = expectSep
	default:
		return fmt.Errorf("missing ',' at offset %d", l.pos)
	}
	return nil
}

func (l *notationLexer) open(ch byte) error {
	if err := l.value(); err != nil {
		return err
	}
	l.groups = append(l.groups, &notationGroup{open: ch, state: expectItem})
	if ch == '{' {
		l.emit("{")
	} else {
		l.emit("[")
	}
	l.pos++
	return nil
}

func (l *notationLexer) close(ch byte) error {
	g := l.group()
	if g == nil || g.open != map[byte]byte{'}': '{', ']': '[', ')': '('}[ch] {
		return fmt.Errorf("unbalanced %q at offset %d", ch, l.pos)
	}
	switch g.state {
	case expectColon:
		return errors.New("sets not supported")
	case expectValue:
		return fmt.Errorf("missing value at offset %d", l.pos)
	}
	if g.open == '(' && g.items == 1 && g.commas == 0 {
		return errors.New("parenthesized expressions not supported")
	}
	last := len(l.tokens) - 1
	l.tokens[last] = strings.TrimSuffix(l.tokens[last], ",")
	if ch == '}' {
		l.emit("}")
	} else {
		l.emit("]")
	}
	l.groups = l.groups[:len(l.groups)-1]
	l.pos++
	return nil
}

func (l *notationLexer) comma() error {
	g := l.group()
	switch {
	case g == nil:
		return errors.New("tuples need parentheses")
	case g.state == expectColon:
		return errors.New("sets not supported")
	case g.state != expectSep:
		return fmt.Errorf("unexpected ',' at offset %d", l.pos)
	}
	g.state = expectItem
	g.commas++
	l.tokens[len(l.tokens)-1] += ","
	l.pos++
	return nil
}

func (l *notationLexer) colon() error {
	g := l.group()
	if g == nil || g.state != expectColon {
		return fmt.Errorf("unexpected ':' at offset %d", l.pos)
	}
	g.state = expectValue
	l.tokens[len(l.tokens)-1] += ":"
	l.pos++
	return nil
}

// name handles True, False, None and their lower case YAML siblings, as well
// as string prefixes.
func (l *notationLexer) name() error {
	start := l.pos
	for l.pos < len(l.src) && (isLetter(l.src[l.pos]) || isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
	name := l.src[start:l.pos]
	if l.pos < len(l.src) && (l.src[l.pos] == '\'' || l.src[l.pos] == '"') {
		if name == "u" || name == "U" {
			return l.str()
		}
		return fmt.Errorf("string prefix %q not supported", name)
	}
	switch name {
	case "True", "False", "None", "true", "false", "null":
		if err := l.value(); err != nil {
			return err
		}
		l.emit(name)
		return nil
	}
	return fmt.Errorf("name %q not allowed", name)
}

func (l *notationLexer) str() error {
	if err := l.value(); err != nil {
		return err
	}
	start := l.pos
	delim := l.src[l.pos : l.pos+1]
	if triple := strings.Repeat(delim, 3); strings.HasPrefix(l.src[l.pos:], triple) {
		delim = triple
	}
	l.pos += len(delim)
	var b strings.Builder
	for {
		if l.pos >= len(l.src) {
			return fmt.Errorf("unterminated string at offset %d", start)
		}
		if strings.HasPrefix(l.src[l.pos:], delim) {
			l.pos += len(delim)
			break
		}
		switch ch := l.src[l.pos]; {
		case ch == '\\':
			if err := l.escape(&b); err != nil {
				return err
			}
		case ch == '\n' && len(delim) == 1:
			return fmt.Errorf("unterminated string at offset %d", start)
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	l.emit(strconv.Quote(b.String()))
	return nil
}

// escape decodes the backslash escape sequence at the current position.
// Unknown escapes are kept as they are.
func (l *notationLexer) escape(b *strings.Builder) error {
	l.pos++
	if l.pos >= len(l.src) {
		return errors.New("unterminated escape sequence")
	}
	ch := l.src[l.pos]
	l.pos++
	switch ch {
	case '\n':
	case '\\', '\'', '"':
		b.WriteByte(ch)
	case 'a':
		b.WriteByte('\a')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'v':
		b.WriteByte('\v')
	case '0', '1', '2', '3', '4', '5', '6', '7':
		r := rune(ch - '0')
		for n := 0; n < 2 && l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '7'; n++ {
			r = r*8 + rune(l.src[l.pos]-'0')
			l.pos++
		}
		b.WriteRune(r)
	case 'x':
		return l.hexEscape(b, 2)
	case 'u':
		return l.hexEscape(b, 4)
	case 'U':
		return l.hexEscape(b, 8)
	case 'N':
		return errors.New("named unicode escapes not supported")
	default:
		b.WriteByte('\\')
		b.WriteByte(ch)
	}
	return nil
}

func (l *notationLexer) hexEscape(b *strings.Builder, digits int) error {
	if l.pos+digits > len(l.src) {
		return fmt.Errorf("truncated escape sequence at offset %d", l.pos)
	}
	code, err := strconv.ParseUint(l.src[l.pos:l.pos+digits], 16, 32)
	if err != nil || code > utf8.MaxRune {
		return fmt.Errorf("invalid escape sequence at offset %d", l.pos)
	}
	l.pos += digits
	b.WriteRune(rune(code))
	return nil
}

func (l *notationLexer) number() error {
	if err := l.value(); err != nil {
		return err
	}
	start := l.pos
	negative := false
	if ch := l.src[l.pos]; ch == '-' || ch == '+' {
		negative = ch == '-'
		l.pos++
		for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t') {
			l.pos++
		}
	}
	numstart := l.pos
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if isLetter(ch) || isDigit(ch) || ch == '_' || ch == '.' {
			l.pos++
			continue
		}
		// exponent sign, but not in hex integers such as 0xe+1
		if (ch == '-' || ch == '+') && l.pos > numstart &&
			(l.src[l.pos-1] == 'e' || l.src[l.pos-1] == 'E') &&
			!strings.HasPrefix(strings.ToLower(l.src[numstart:]), "0x") {
			l.pos++
			continue
		}
		break
	}
	num := l.src[numstart:l.pos]
	if num == "" || !(isDigit(num[0]) || num[0] == '.' && len(num) > 1 && isDigit(num[1])) {
		return fmt.Errorf("invalid number %q", l.src[start:l.pos])
	}
	if strings.ContainsAny(num, "jJ") {
		return errors.New("complex numbers not supported")
	}
	lower := strings.ToLower(num)
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") || strings.HasPrefix(lower, "0b") ||
		!strings.ContainsAny(lower, ".e") {
		if len(num) > 1 && num[0] == '0' && isDigit(num[1]) && strings.Trim(num, "0_") != "" {
			return fmt.Errorf("invalid integer %q with leading zeros", num)
		}
		if negative {
			num = "-" + num
		}
		n, err := strconv.ParseInt(num, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", num)
		}
		l.emit(strconv.FormatInt(n, 10))
		return nil
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return fmt.Errorf("invalid float %q", num)
	}
	if negative {
		f = -f
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	l.emit(s)
	return nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isLetter(ch byte) bool { return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' }
