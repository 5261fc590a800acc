package extraction

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"telex/internal/journal"
	"telex/internal/logging"
	"telex/internal/notifications"
	"telex/internal/queue"
	"telex/internal/services"
	"telex/internal/services/pdftext"
	"telex/internal/stage"
)

// Journal records extraction outcomes.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Option customizes a Worker.
type Option func(*Worker)

// WithJournal records every outcome in j.
func WithJournal(j Journal) Option {
	return func(w *Worker) {
		if j != nil {
			w.journal = j
		}
	}
}

// WithNotifier sends failure alerts through n.
func WithNotifier(n notifications.Service) Option {
	return func(w *Worker) {
		if n != nil {
			w.notifier = n
		}
	}
}

// WithRemover overrides file deletion.
func WithRemover(fn func(string) error) Option {
	return func(w *Worker) {
		if fn != nil {
			w.remove = fn
		}
	}
}

// Worker moves documents from the path queue to the text queue.
type Worker struct {
	in        *queue.PathQueue
	out       *queue.TextQueue
	extractor pdftext.Extractor
	remove    func(string) error
	journal   Journal
	notifier  notifications.Service
	logger    *slog.Logger
	tracker   *stage.Tracker
}

// New constructs an extraction worker.
func New(in *queue.PathQueue, out *queue.TextQueue, extractor pdftext.Extractor, logger *slog.Logger, opts ...Option) *Worker {
	w := &Worker{
		in:        in,
		out:       out,
		extractor: extractor,
		remove:    os.Remove,
		notifier:  notifications.Noop(),
		logger:    logging.NewComponentLogger(logger, "extractor"),
		tracker:   stage.NewTracker("extractor"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Tracker exposes the worker state.
func (w *Worker) Tracker() *stage.Tracker { return w.tracker }

// Run processes documents until ctx is cancelled or the path queue is closed
// and drained. An extraction in progress is not interrupted.
func (w *Worker) Run(ctx context.Context) error {
	defer w.tracker.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		doc, err := w.in.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !w.tracker.Begin() {
			return nil
		}
		ok := w.process(context.WithoutCancel(ctx), ctx.Done(), doc)
		w.tracker.Done(!ok)
	}
}

// Process handles one document and reports whether its text was forwarded.
func (w *Worker) Process(ctx context.Context, doc queue.Document) bool {
	return w.process(ctx, nil, doc)
}

// process is Process with a shutdown signal. When stop is closed by the time
// extraction returns, the source stays on disk and the text is dropped; the
// startup scan of the next run picks the document up again.
func (w *Worker) process(ctx context.Context, stop <-chan struct{}, doc queue.Document) bool {
	ctx = services.WithItemID(ctx, doc.ID)
	ctx = services.WithStage(ctx, "extract")
	ctx = services.WithSourcePath(ctx, doc.Path)
	logger := logging.WithContext(ctx, w.logger)

	logger.Debug("document dequeued",
		logging.QueueDepth(w.in.Len()),
		logging.Duration("waited", time.Since(doc.DetectedAt)),
	)

	if _, err := os.Stat(doc.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.skipMissing(ctx, logger, doc)
			return false
		}
	}

	started := time.Now()
	result, err := w.extractor.Extract(ctx, doc.Path)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			w.skipMissing(ctx, logger, doc)
			return false
		}
		if !errors.Is(err, services.ErrExtraction) {
			err = services.Wrap(services.ErrExtraction, "extract", "read document", "", err)
		}
		logging.ErrorWithContext(logger, "extraction failed; document left in place", "extraction_failed", err,
			logging.String(logging.FieldErrorHint, "inspect the file; drop it again to retry"),
		)
		w.record(ctx, logger, journal.Entry{
			ItemID:       doc.ID,
			SourcePath:   doc.Path,
			Outcome:      journal.OutcomeExtractionFailed,
			ErrorKind:    services.Kind(err),
			ErrorMessage: err.Error(),
		})
		if notifyErr := w.notifier.NotifyExtractionFailed(ctx, doc.Path, err); notifyErr != nil {
			logger.Warn("failure notification not sent", logging.Error(notifyErr))
		}
		return false
	}

	logger.Info("text extracted",
		logging.Int("pages", result.Pages),
		logging.Int("text_length", len(result.Text)),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "text_extracted"),
	)

	select {
	case <-stop:
		logging.WarnWithContext(logger, "shutdown during extraction; document left in place", "extraction_abandoned",
			logging.String(logging.FieldImpact, "document is processed again on next start"),
		)
		w.record(ctx, logger, journal.Entry{
			ItemID:     doc.ID,
			SourcePath: doc.Path,
			Outcome:    journal.OutcomeAbandoned,
		})
		return false
	default:
	}

	w.deleteSource(ctx, logger, doc)

	text := queue.Text{
		ID:          doc.ID,
		SourcePath:  doc.Path,
		Body:        result.Text,
		Pages:       result.Pages,
		ExtractedAt: time.Now(),
	}
	w.record(ctx, logger, journal.Entry{
		ItemID:     doc.ID,
		SourcePath: doc.Path,
		Outcome:    journal.OutcomeExtracted,
		TextLength: len(result.Text),
	})
	if err := w.out.Push(text); err != nil {
		logging.ErrorWithContext(logger, "text queue closed; text not forwarded", "enqueue_rejected", err,
			logging.String(logging.FieldImpact, "message will not be sent"),
		)
		return false
	}
	logger.Info("text queued",
		logging.QueueDepth(w.out.Len()),
		logging.String(logging.FieldEventType, "text_queued"),
	)
	return true
}

// deleteSource removes the document after its text was captured. Failure is
// reported but never stops the text from being forwarded.
func (w *Worker) deleteSource(ctx context.Context, logger *slog.Logger, doc queue.Document) {
	err := w.remove(doc.Path)
	if err == nil {
		logger.Debug("source document deleted")
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("source document already gone")
		return
	}
	err = services.Wrap(services.ErrDelete, "extract", "delete document", "", err)
	logging.ErrorWithContext(logger, "delete failed; forwarding text anyway", "delete_failed", err,
		logging.String(logging.FieldErrorHint, "remove the file by hand so it is not processed again on restart"),
	)
	w.record(ctx, logger, journal.Entry{
		ItemID:       doc.ID,
		SourcePath:   doc.Path,
		Outcome:      journal.OutcomeDeleteFailed,
		ErrorKind:    services.Kind(err),
		ErrorMessage: err.Error(),
	})
	if notifyErr := w.notifier.NotifyDeleteFailed(ctx, doc.Path, err); notifyErr != nil {
		logger.Warn("failure notification not sent", logging.Error(notifyErr))
	}
}

func (w *Worker) skipMissing(ctx context.Context, logger *slog.Logger, doc queue.Document) {
	logger.Warn("document vanished before extraction; skipped",
		logging.String(logging.FieldEventType, "document_missing"),
		logging.String(logging.FieldImpact, "nothing to extract"),
	)
	w.record(ctx, logger, journal.Entry{
		ItemID:     doc.ID,
		SourcePath: doc.Path,
		Outcome:    journal.OutcomeSkippedMissing,
	})
}

func (w *Worker) record(ctx context.Context, logger *slog.Logger, entry journal.Entry) {
	if w.journal == nil {
		return
	}
	if err := w.journal.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome missing from history"),
		)
	}
}
