// Package extraction hosts the Extractor worker.
//
// The worker pops documents from the path queue, reads their text through a
// pdftext.Extractor, deletes the source file and pushes the text onto the
// text queue. A document that cannot be read stays on disk and is not
// retried; a document that cannot be deleted is still forwarded.
package extraction
