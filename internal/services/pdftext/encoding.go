package pdftext

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// byteTable maps single-byte character codes to runes; zero means no text.
type byteTable [256]rune

// pdfDocHigh maps PDFDocEncoding bytes 0x80-0xA0 where they differ from Latin-1.
var pdfDocHigh = map[byte]rune{
	0x80: '•', 0x81: '†', 0x82: '‡', 0x83: '…', 0x84: '—', 0x85: '–', 0x86: 'ƒ', 0x87: '⁄',
	0x88: '‹', 0x89: '›', 0x8A: '−', 0x8B: '‰', 0x8C: '„', 0x8D: '“', 0x8E: '”', 0x8F: '‘',
	0x90: '’', 0x91: '‚', 0x92: '™', 0x93: 'ﬁ', 0x94: 'ﬂ', 0x95: 'Ł', 0x96: 'Œ', 0x97: 'Š',
	0x98: 'Ÿ', 0x99: 'Ž', 0x9A: 'ı', 0x9B: 'ł', 0x9C: 'œ', 0x9D: 'š', 0x9E: 'ž', 0xA0: '€',
}

var (
	pdfDocTable   = newPDFDocTable()
	winAnsiTable  = newCharmapTable(charmap.Windows1252)
	macRomanTable = newCharmapTable(charmap.Macintosh)
)

func newPDFDocTable() *byteTable {
	var t byteTable
	for i := 0; i < 256; i++ {
		c := byte(i)
		switch {
		case c == '\t' || c == '\n':
			t[i] = rune(c)
		case c == '\r':
			t[i] = '\n'
		case c < 0x20 || c == 0x7F:
		case c < 0x80 || c > 0xA0:
			t[i] = rune(c)
		default:
			t[i] = pdfDocHigh[c]
		}
	}
	return &t
}

func newCharmapTable(cm *charmap.Charmap) *byteTable {
	var t byteTable
	for i := 0; i < 256; i++ {
		r := cm.DecodeByte(byte(i))
		if r == utf8.RuneError || (r < 0x20 && r != '\t' && r != '\n') || (r >= 0x7F && r < 0xA0) {
			continue
		}
		t[i] = r
	}
	return &t
}

// baseTable returns the table for a named simple-font encoding. Standard and
// unknown encodings fall back to PDFDocEncoding, which agrees with them on
// the printable ASCII range.
func baseTable(name string) *byteTable {
	switch name {
	case "WinAnsiEncoding":
		return winAnsiTable
	case "MacRomanEncoding":
		return macRomanTable
	default:
		return pdfDocTable
	}
}

func (t *byteTable) decode(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if r := t[c]; r != 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeString converts a PDF string operand shown without a known font to
// UTF-8.
func decodeString(raw []byte) string {
	switch {
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		return decodeUTF16BE(raw[2:])
	case len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF:
		if utf8.Valid(raw[3:]) {
			return string(raw[3:])
		}
	}
	return pdfDocTable.decode(raw)
}

func decodeUTF16BE(raw []byte) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}

var glyphNames = map[string]rune{
	"space": ' ', "exclam": '!', "quotedbl": '"', "numbersign": '#', "dollar": '$',
	"percent": '%', "ampersand": '&', "quotesingle": '\'', "parenleft": '(', "parenright": ')',
	"asterisk": '*', "plus": '+', "comma": ',', "hyphen": '-', "period": '.', "slash": '/',
	"zero": '0', "one": '1', "two": '2', "three": '3', "four": '4',
	"five": '5', "six": '6', "seven": '7', "eight": '8', "nine": '9',
	"colon": ':', "semicolon": ';', "less": '<', "equal": '=', "greater": '>', "question": '?',
	"at": '@', "bracketleft": '[', "backslash": '\\', "bracketright": ']', "asciicircum": '^',
	"underscore": '_', "grave": '`', "braceleft": '{', "bar": '|', "braceright": '}',
	"asciitilde": '~', "quoteleft": '‘', "quoteright": '’', "quotedblleft": '“',
	"quotedblright": '”', "quotesinglbase": '‚', "quotedblbase": '„', "endash": '–',
	"emdash": '—', "bullet": '•', "ellipsis": '…', "section": '§', "degree": '°',
	"guillemotleft": '«', "guillemotright": '»', "nbspace": '\u00a0', "nonbreakingspace": '\u00a0',
	"Euro": '€', "numero": '№', "afii61352": '№', "minus": '−', "periodcentered": '·',
}

func init() {
	upper := []rune("АБВГДЕЁЖЗИЙКЛМНОПРСТУФХЦЧШЩЪЫЬЭЮЯ")
	lower := []rune("абвгдеёжзийклмнопрстуфхцчшщъыьэюя")
	for i := range upper {
		glyphNames["afii"+strconv.Itoa(10017+i)] = upper[i]
		glyphNames["afii"+strconv.Itoa(10065+i)] = lower[i]
	}
}

// glyphRune resolves a glyph name from an encoding's Differences array.
func glyphRune(name string) (rune, bool) {
	if dot := strings.IndexByte(name, '.'); dot > 0 {
		name = name[:dot]
	}
	if r, ok := glyphNames[name]; ok {
		return r, true
	}
	if len(name) == 1 && name[0] < utf8.RuneSelf {
		return rune(name[0]), true
	}
	switch {
	case strings.HasPrefix(name, "uni") && len(name) >= 7:
		if v, err := strconv.ParseUint(name[3:7], 16, 32); err == nil {
			return rune(v), true
		}
	case strings.HasPrefix(name, "u") && len(name) >= 5 && len(name) <= 7:
		if v, err := strconv.ParseUint(name[1:], 16, 32); err == nil && utf8.ValidRune(rune(v)) {
			return rune(v), true
		}
	}
	return 0, false
}
