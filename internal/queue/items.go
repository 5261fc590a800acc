package queue

import "time"

// Document is a source file waiting for extraction. ID correlates every log
// line and journal row produced for the file.
type Document struct {
	ID         string
	Path       string
	DetectedAt time.Time
}

// Text is the extracted content of one document, in page order.
type Text struct {
	ID          string
	SourcePath  string
	Body        string
	Pages       int
	ExtractedAt time.Time
}

// PathQueue carries documents from the watcher to the extractor.
type PathQueue = Queue[Document]

// TextQueue carries extracted text from the extractor to the dispatcher.
type TextQueue = Queue[Text]
