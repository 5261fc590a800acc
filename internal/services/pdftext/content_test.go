package pdftext

import "testing"

func TestParseContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "empty",
			content: "",
			want:    "",
		},
		{
			name:    "lines via T*",
			content: "BT /F1 12 Tf 14 TL 72 720 Td (HELLO) Tj T* (WORLD) Tj ET",
			want:    "HELLO\nWORLD\n",
		},
		{
			name:    "quote operators start new lines",
			content: "BT 12 TL 0 700 Td (one) Tj (two) ' 1 2 (three) \" ET",
			want:    "one\ntwo\nthree\n",
		},
		{
			name:    "TJ kerning becomes a space",
			content: "BT 0 700 Td [(STORM) -300 (WARNING) 20 (S)] TJ ET",
			want:    "STORM WARNINGS\n",
		},
		{
			name:    "separate text objects on one baseline",
			content: "BT 72 700 Td (left) Tj ET BT 300 700 Td (right) Tj ET",
			want:    "left right\n",
		},
		{
			name:    "Tm moves to a new line",
			content: "BT 1 0 0 1 72 700 Tm (first) Tj 1 0 0 1 72 680 Tm (second) Tj ET",
			want:    "first\nsecond\n",
		},
		{
			name:    "escapes and nested parentheses",
			content: `BT 0 0 Td (a \(b\) \\ c (d) \101\102) Tj ET`,
			want:    "a (b) \\ c (d) AB\n",
		},
		{
			name:    "utf16 hex string",
			content: "BT 0 0 Td <FEFF0421 0420 041E 0427 041D 041E> Tj ET",
			want:    "СРОЧНО\n",
		},
		{
			name:    "marked content dictionaries are ignored",
			content: "/Span <</ActualText (ignored)>> BDC BT 0 0 Td (kept) Tj ET EMC",
			want:    "kept\n",
		},
		{
			name:    "inline image data is skipped",
			content: "BI /W 2 /H 2 /BPC 8 ID \x00(\xff)Tj EI BT 0 0 Td (after) Tj ET",
			want:    "after\n",
		},
		{
			name:    "comments are skipped",
			content: "% (not text) Tj\nBT 0 0 Td (text) Tj ET",
			want:    "text\n",
		},
		{
			name:    "trailing spaces are trimmed",
			content: "BT 0 0 Td (padded   ) Tj ET",
			want:    "padded\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseContent([]byte(tc.content), nil); got != tc.want {
				t.Fatalf("parseContent() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDecodeStringPDFDocEncoding(t *testing.T) {
	if got := decodeString([]byte{'A', 0x84, 'B', 0xE9}); got != "A—Bé" {
		t.Fatalf("decodeString = %q", got)
	}
	if got := decodeString([]byte{0xEF, 0xBB, 0xBF, 0xD0, 0xAF}); got != "Я" {
		t.Fatalf("utf8 bom decode = %q", got)
	}
}
