package pdftext

import (
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// textDecoder turns the bytes of a shown string into text for one font.
type textDecoder interface {
	decode(raw []byte) string
}

// simpleFont covers single-byte fonts (Type1, TrueType, Type3). Codes missing
// from the ToUnicode map fall back to the font's encoding.
type simpleFont struct {
	toUnicode *cmap
	table     *byteTable
}

func (f *simpleFont) decode(raw []byte) string {
	if f.toUnicode == nil {
		return f.table.decode(raw)
	}
	return f.toUnicode.decode(raw, 1, func(code []byte) string {
		return f.table.decode(code)
	})
}

// compositeFont covers Type0 fonts. Their codes are glyph selectors, so
// without a ToUnicode map no text can be recovered.
type compositeFont struct {
	toUnicode *cmap
}

func (f *compositeFont) decode(raw []byte) string {
	if f.toUnicode == nil {
		return ""
	}
	return f.toUnicode.decode(raw, 2, nil)
}

// fontCache shares decoders between pages that reference the same font
// object.
type fontCache map[int]textDecoder

// pageFonts resolves the fonts of a page's resource dictionary. Fonts that
// cannot be read are left out, so their strings use the generic decoding.
func pageFonts(xref *model.XRefTable, resources types.Dict, cache fontCache) map[string]textDecoder {
	if resources == nil {
		return nil
	}
	obj, ok := resources.Find("Font")
	if !ok {
		return nil
	}
	fontDict, err := xref.DereferenceDict(obj)
	if err != nil || fontDict == nil {
		return nil
	}

	fonts := make(map[string]textDecoder, len(fontDict))
	for name, ref := range fontDict {
		objNr := -1
		if indRef, ok := ref.(types.IndirectRef); ok {
			objNr = indRef.ObjectNumber.Value()
			if dec, ok := cache[objNr]; ok {
				fonts[name] = dec
				continue
			}
		}
		d, err := xref.DereferenceDict(ref)
		if err != nil || d == nil {
			continue
		}
		dec := newFontDecoder(xref, d)
		fonts[name] = dec
		if objNr >= 0 {
			cache[objNr] = dec
		}
	}
	return fonts
}

func newFontDecoder(xref *model.XRefTable, d types.Dict) textDecoder {
	toUnicode := readToUnicode(xref, d)
	if subtype := d.NameEntry("Subtype"); subtype != nil && *subtype == "Type0" {
		return &compositeFont{toUnicode: toUnicode}
	}
	return &simpleFont{toUnicode: toUnicode, table: simpleEncoding(xref, d)}
}

func readToUnicode(xref *model.XRefTable, d types.Dict) *cmap {
	obj, ok := d.Find("ToUnicode")
	if !ok {
		return nil
	}
	sd, _, err := xref.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}
	return parseCMap(sd.Content)
}

// simpleEncoding builds the code table from the font's Encoding entry: a
// predefined name, or a dictionary with BaseEncoding and Differences.
func simpleEncoding(xref *model.XRefTable, d types.Dict) *byteTable {
	obj, ok := d.Find("Encoding")
	if !ok {
		return pdfDocTable
	}
	obj, err := xref.Dereference(obj)
	if err != nil || obj == nil {
		return pdfDocTable
	}

	switch enc := obj.(type) {
	case types.Name:
		return baseTable(string(enc))
	case types.Dict:
		base := pdfDocTable
		if name := enc.NameEntry("BaseEncoding"); name != nil {
			base = baseTable(*name)
		}
		diffObj, ok := enc.Find("Differences")
		if !ok {
			return base
		}
		diffs, err := xref.DereferenceArray(diffObj)
		if err != nil {
			return base
		}
		table := *base
		applyDifferences(&table, diffs)
		return &table
	default:
		return pdfDocTable
	}
}

// applyDifferences overlays a Differences array: a code followed by the glyph
// names for consecutive codes starting there.
func applyDifferences(table *byteTable, diffs types.Array) {
	code := -1
	for _, item := range diffs {
		switch v := item.(type) {
		case types.Integer:
			code = v.Value()
		case types.Name:
			if code < 0 || code > 255 {
				continue
			}
			if r, ok := glyphRune(string(v)); ok {
				table[code] = r
			} else {
				table[code] = 0
			}
			code++
		}
	}
}
