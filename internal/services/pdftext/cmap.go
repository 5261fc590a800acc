package pdftext

type codespace struct {
	lo, hi []byte
}

func (c codespace) contains(code []byte) bool {
	if len(code) != len(c.lo) {
		return false
	}
	for i, b := range code {
		if b < c.lo[i] || b > c.hi[i] {
			return false
		}
	}
	return true
}

type cmapRange struct {
	width  int
	lo, hi uint32
	dst    []byte
	dsts   [][]byte
}

// cmap is a parsed ToUnicode CMap.
type cmap struct {
	spaces []codespace
	chars  map[string][]byte
	ranges []cmapRange
}

// parseCMap reads the codespace, bfchar and bfrange sections of a ToUnicode
// CMap. It returns nil when the stream defines no mappings.
func parseCMap(data []byte) *cmap {
	m := &cmap{chars: make(map[string][]byte)}
	interpret(data, func(op string, operands []token) {
		switch op {
		case "endcodespacerange":
			for i := 0; i+1 < len(operands); i += 2 {
				lo, hi := operands[i], operands[i+1]
				if lo.kind != tokString || hi.kind != tokString || len(lo.str) == 0 || len(lo.str) != len(hi.str) {
					continue
				}
				m.spaces = append(m.spaces, codespace{lo: lo.str, hi: hi.str})
			}
		case "endbfchar":
			for i := 0; i+1 < len(operands); i += 2 {
				src, dst := operands[i], operands[i+1]
				if src.kind != tokString || dst.kind != tokString {
					continue
				}
				m.chars[string(src.str)] = dst.str
			}
		case "endbfrange":
			for i := 0; i+2 < len(operands); i += 3 {
				m.addRange(operands[i], operands[i+1], operands[i+2])
			}
		}
	})
	if len(m.chars) == 0 && len(m.ranges) == 0 {
		return nil
	}
	return m
}

func (m *cmap) addRange(lo, hi, dst token) {
	if lo.kind != tokString || hi.kind != tokString || len(lo.str) == 0 || len(lo.str) != len(hi.str) || len(lo.str) > 4 {
		return
	}
	r := cmapRange{width: len(lo.str), lo: codeValue(lo.str), hi: codeValue(hi.str)}
	if r.hi < r.lo {
		return
	}
	switch dst.kind {
	case tokString:
		r.dst = dst.str
	case tokArrayStart:
		for _, elem := range dst.elems {
			if elem.kind != tokString {
				r.dsts = append(r.dsts, nil)
				continue
			}
			r.dsts = append(r.dsts, elem.str)
		}
	default:
		return
	}
	m.ranges = append(m.ranges, r)
}

func codeValue(code []byte) uint32 {
	var v uint32
	for _, b := range code {
		v = v<<8 | uint32(b)
	}
	return v
}

// codeLength returns how many leading bytes of raw form one character code.
func (m *cmap) codeLength(raw []byte, fallback int) int {
	if len(m.spaces) == 0 {
		return min(fallback, len(raw))
	}
	for n := 1; n <= 4 && n <= len(raw); n++ {
		for _, space := range m.spaces {
			if space.contains(raw[:n]) {
				return n
			}
		}
	}
	return 1
}

// lookup maps one character code to text.
func (m *cmap) lookup(code []byte) (string, bool) {
	if dst, ok := m.chars[string(code)]; ok {
		return decodeUTF16BE(dst), true
	}
	v := codeValue(code)
	for _, r := range m.ranges {
		if r.width != len(code) || v < r.lo || v > r.hi {
			continue
		}
		offset := v - r.lo
		if r.dsts != nil {
			if int(offset) >= len(r.dsts) || r.dsts[offset] == nil {
				return "", false
			}
			return decodeUTF16BE(r.dsts[offset]), true
		}
		return decodeUTF16BE(addOffset(r.dst, offset)), true
	}
	return "", false
}

// addOffset adds offset to dst read as a big-endian integer.
func addOffset(dst []byte, offset uint32) []byte {
	out := append([]byte(nil), dst...)
	carry := uint64(offset)
	for i := len(out) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(out[i]) + carry&0xFF
		out[i] = byte(sum)
		carry = carry>>8 + sum>>8
	}
	return out
}

// decode maps raw through the CMap. Codes without a mapping are passed to
// fallback, which may be nil.
func (m *cmap) decode(raw []byte, width int, fallback func(code []byte) string) string {
	var out []rune
	for len(raw) > 0 {
		n := m.codeLength(raw, width)
		code := raw[:n]
		raw = raw[n:]
		if text, ok := m.lookup(code); ok {
			out = append(out, []rune(text)...)
			continue
		}
		if fallback != nil {
			out = append(out, []rune(fallback(code))...)
		}
	}
	return string(out)
}
