package pdftext

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokName
	tokArrayStart
	tokArrayEnd
	tokDictStart
	tokDictEnd
	tokOperator
)

type token struct {
	kind  tokenKind
	text  string
	str   []byte
	num   float64
	elems []token
}

// lexer splits a decoded content stream into operands and operators.
type lexer struct {
	data []byte
	pos  int
}

func isWhitespace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhitespace(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) next() (token, bool) {
	for {
		l.skipSpace()
		if l.pos >= len(l.data) {
			return token{}, false
		}
		c := l.data[l.pos]
		switch c {
		case '(':
			l.pos++
			return token{kind: tokString, str: l.literalString()}, true
		case '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokDictStart}, true
			}
			l.pos++
			return token{kind: tokString, str: l.hexString()}, true
		case '>':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
				return token{kind: tokDictEnd}, true
			}
			l.pos++
			continue
		case '[':
			l.pos++
			return token{kind: tokArrayStart}, true
		case ']':
			l.pos++
			return token{kind: tokArrayEnd}, true
		case '{', '}', ')':
			l.pos++
			continue
		case '/':
			l.pos++
			return token{kind: tokName, text: l.regular()}, true
		}

		word := l.regular()
		if word == "" {
			l.pos++
			continue
		}
		if looksNumeric(word) {
			if n, err := strconv.ParseFloat(word, 64); err == nil {
				return token{kind: tokNumber, num: n, text: word}, true
			}
		}
		return token{kind: tokOperator, text: word}, true
	}
}

func looksNumeric(word string) bool {
	c := word[0]
	return (c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}

func (l *lexer) regular() string {
	start := l.pos
	for l.pos < len(l.data) && !isWhitespace(l.data[l.pos]) && !isDelimiter(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

func (l *lexer) literalString() []byte {
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\r':
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			out = append(out, '\n')
		case '\\':
			if l.pos >= len(l.data) {
				return out
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && l.pos < len(l.data); i++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

func (l *lexer) hexString() []byte {
	var digits []byte
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		if c == '>' {
			break
		}
		if isHex(c) {
			digits = append(digits, c)
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexVal(digits[2*i])<<4 | hexVal(digits[2*i+1])
	}
	return out
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// skipInlineImage advances past binary inline image data up to EI.
func (l *lexer) skipInlineImage() {
	idx := bytes.Index(l.data[l.pos:], []byte("ID"))
	if idx < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += idx + 2
	for l.pos < len(l.data) {
		idx := bytes.Index(l.data[l.pos:], []byte("EI"))
		if idx < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + idx
		l.pos = at + 2
		before := at == 0 || isWhitespace(l.data[at-1])
		after := l.pos >= len(l.data) || isWhitespace(l.data[l.pos])
		if before && after {
			return
		}
	}
}

// Separation thresholds in text space units and thousandths of an em.
const (
	lineTolerance  = 1.0
	kerningToSpace = -250
)

// pageWriter accumulates text and decides where line and word breaks fall
// based on text positioning operators.
type pageWriter struct {
	out       strings.Builder
	line      strings.Builder
	lineY     float64
	leading   float64
	shownY    float64
	haveShown bool
	moved     bool

	fonts map[string]textDecoder
	font  textDecoder
}

func (w *pageWriter) newline() {
	if w.line.Len() == 0 {
		return
	}
	w.out.WriteString(strings.TrimRight(w.line.String(), " "))
	w.out.WriteByte('\n')
	w.line.Reset()
}

func (w *pageWriter) space() {
	if w.line.Len() == 0 || strings.HasSuffix(w.line.String(), " ") {
		return
	}
	w.line.WriteByte(' ')
}

func (w *pageWriter) nextLine() {
	w.newline()
	w.lineY -= w.leading
	w.shownY = w.lineY
	w.moved = false
}

func (w *pageWriter) selectFont(name string) {
	w.font = w.fonts[name]
}

func (w *pageWriter) show(raw []byte) {
	if w.haveShown {
		switch {
		case math.Abs(w.lineY-w.shownY) > lineTolerance:
			w.newline()
		case w.moved:
			w.space()
		}
	}
	w.haveShown = true
	w.shownY = w.lineY
	w.moved = false

	var text string
	if w.font != nil {
		text = w.font.decode(raw)
	} else {
		text = decodeString(raw)
	}
	if text == "" {
		return
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		w.line.WriteString(strings.TrimSuffix(line, "\n"))
		if strings.HasSuffix(line, "\n") {
			w.newline()
		}
	}
}

func (w *pageWriter) String() string {
	w.newline()
	return w.out.String()
}

// interpret tokenizes data and calls do for every operator with the operands
// collected since the previous one. Dictionary operands are skipped; arrays
// arrive as a single token with elems set.
func interpret(data []byte, do func(op string, operands []token)) {
	lex := &lexer{data: data}
	var (
		operands  []token
		arrays    [][]token
		dictDepth int
	)

	for {
		tok, ok := lex.next()
		if !ok {
			return
		}
		switch tok.kind {
		case tokDictStart:
			dictDepth++
			continue
		case tokDictEnd:
			if dictDepth > 0 {
				dictDepth--
			}
			continue
		}
		if dictDepth > 0 {
			continue
		}

		switch tok.kind {
		case tokArrayStart:
			arrays = append(arrays, nil)
			continue
		case tokArrayEnd:
			n := len(arrays)
			if n == 0 {
				continue
			}
			arr := token{kind: tokArrayStart, elems: arrays[n-1]}
			arrays = arrays[:n-1]
			if len(arrays) > 0 {
				arrays[len(arrays)-1] = append(arrays[len(arrays)-1], arr)
			} else {
				operands = append(operands, arr)
			}
			continue
		case tokOperator:
			if len(arrays) > 0 {
				continue
			}
			do(tok.text, operands)
			operands = operands[:0]
			if tok.text == "BI" {
				lex.skipInlineImage()
			}
			continue
		}
		if len(arrays) > 0 {
			arrays[len(arrays)-1] = append(arrays[len(arrays)-1], tok)
			continue
		}
		operands = append(operands, tok)
	}
}

// parseContent returns the text shown by a decoded page content stream.
// fonts maps resource names selected with Tf to their decoders; strings shown
// with an unknown font are decoded as PDFDocEncoding or UTF-16BE. Lines end
// with "\n"; a page without text yields "".
func parseContent(content []byte, fonts map[string]textDecoder) string {
	w := &pageWriter{fonts: fonts}
	interpret(content, func(op string, operands []token) {
		applyOperator(w, op, operands)
	})
	return w.String()
}

func applyOperator(w *pageWriter, op string, operands []token) {
	switch op {
	case "BT":
		w.lineY = 0
		w.moved = true
	case "TL":
		if n, ok := numberAt(operands, 0, 1); ok {
			w.leading = n
		}
	case "Td", "TD":
		ty, ok := numberAt(operands, 1, 2)
		if !ok {
			return
		}
		if op == "TD" {
			w.leading = -ty
		}
		w.lineY += ty
		w.moved = true
	case "Tm":
		f, ok := numberAt(operands, 5, 6)
		if !ok {
			return
		}
		w.lineY = f
		w.moved = true
	case "T*":
		w.nextLine()
	case "Tj":
		if s, ok := stringAt(operands, 0, 1); ok {
			w.show(s)
		}
	case "'":
		w.nextLine()
		if s, ok := stringAt(operands, 0, 1); ok {
			w.show(s)
		}
	case "\"":
		w.nextLine()
		if s, ok := stringAt(operands, 2, 3); ok {
			w.show(s)
		}
	case "TJ":
		if len(operands) == 0 || operands[len(operands)-1].kind != tokArrayStart {
			return
		}
		for _, elem := range operands[len(operands)-1].elems {
			switch elem.kind {
			case tokString:
				w.show(elem.str)
			case tokNumber:
				if elem.num <= kerningToSpace {
					w.moved = true
				}
			}
		}
	case "Tf":
		if len(operands) >= 2 && operands[len(operands)-2].kind == tokName {
			w.selectFont(operands[len(operands)-2].text)
		}
	}
}

// numberAt returns operand idx of an operator that takes want operands.
func numberAt(operands []token, idx, want int) (float64, bool) {
	if len(operands) < want {
		return 0, false
	}
	tok := operands[len(operands)-want+idx]
	if tok.kind != tokNumber {
		return 0, false
	}
	return tok.num, true
}

func stringAt(operands []token, idx, want int) ([]byte, bool) {
	if len(operands) < want {
		return nil, false
	}
	tok := operands[len(operands)-want+idx]
	if tok.kind != tokString {
		return nil, false
	}
	return tok.str, true
}
