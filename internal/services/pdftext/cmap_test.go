package pdftext

import (
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const identityCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def
/CMapName /Adobe-Identity-UCS def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
1 beginbfrange
<0000> <FFFF> <0000>
endbfrange
endcmap
CMapName currentdict /CMap defineresource pop
end
end`

func TestCMapIdentityRangeCarriesAcrossBytes(t *testing.T) {
	m := parseCMap([]byte(identityCMap))
	if m == nil {
		t.Fatal("expected a cmap")
	}
	raw := []byte{0x04, 0x21, 0x04, 0x20, 0x04, 0x1E, 0x04, 0x27, 0x04, 0x1D, 0x04, 0x1E}
	if got := m.decode(raw, 2, nil); got != "СРОЧНО" {
		t.Fatalf("decode = %q", got)
	}
}

func TestCMapCharsAndArrayRanges(t *testing.T) {
	m := parseCMap([]byte(`1 begincodespacerange <00> <FF> endcodespacerange
2 beginbfchar
<01> <0041>
<02> <D83DDE00>
endbfchar
2 beginbfrange
<10> <12> [<0061> <0062> <0063>]
<20> <22> <0430>
endbfrange`))
	if m == nil {
		t.Fatal("expected a cmap")
	}
	got := m.decode([]byte{0x01, 0x02, 0x11, 0x22, 0x7F}, 1, func(code []byte) string { return "?" })
	if got != "A😀bв?" {
		t.Fatalf("decode = %q", got)
	}
}

func TestCMapWithoutMappingsIsNil(t *testing.T) {
	if m := parseCMap([]byte("1 begincodespacerange <00> <FF> endcodespacerange")); m != nil {
		t.Fatalf("expected nil, got %+v", m)
	}
}

func TestSimpleFontDifferences(t *testing.T) {
	table := *winAnsiTable
	applyDifferences(&table, types.Array{
		types.Integer(0xC0), types.Name("afii10049"), types.Name("afii10066"), types.Name("uni0445"),
		types.Integer(0xE0), types.Name("bogus.glyph"),
	})
	font := &simpleFont{table: &table}
	if got := font.decode([]byte{'J', 0xC0, 0xC1, 0xC2, 0xE0, 0xE9}); got != "JЯбхé" {
		t.Fatalf("decode = %q", got)
	}
}

func TestParseContentSwitchesFonts(t *testing.T) {
	cyr := &simpleFont{table: winAnsiTable, toUnicode: parseCMap([]byte(`1 beginbfchar <41> <0416> endbfchar`))}
	fonts := map[string]textDecoder{
		"F1": &simpleFont{table: winAnsiTable},
		"F2": cyr,
		"F3": &compositeFont{},
	}
	content := "BT /F1 12 Tf 0 700 Td (AB) Tj /F2 12 Tf [(AB)] TJ /F3 12 Tf (\x00\x01) Tj ET"
	if got := parseContent([]byte(content), fonts); got != "ABЖB\n" {
		t.Fatalf("parseContent = %q", got)
	}
}
