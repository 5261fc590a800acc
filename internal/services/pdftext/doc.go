// Package pdftext extracts plain text from PDF documents.
//
// pdfcpu parses and validates the file, resolves each page's resources and
// decodes its content stream; this package interprets the text-showing
// operators and maps every shown string through the selected font. ToUnicode
// CMaps take precedence; simple fonts otherwise use their named encoding and
// Differences glyph names. Composite fonts without a ToUnicode map carry only
// glyph indices and contribute no text. Text inside form XObjects is not
// followed.
package pdftext
