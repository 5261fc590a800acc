package extraction_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"telex/internal/extraction"
	"telex/internal/journal"
	"telex/internal/logging"
	"telex/internal/queue"
	"telex/internal/services"
	"telex/internal/services/pdftext"
	"telex/internal/stage"
	"telex/internal/testsupport"
)

type stubExtractor struct {
	mu    sync.Mutex
	calls []string
	fn    func(path string) (pdftext.Result, error)
}

func (s *stubExtractor) Extract(_ context.Context, path string) (pdftext.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.mu.Unlock()
	return s.fn(path)
}

type recordingNotifier struct {
	mu         sync.Mutex
	extraction []string
	deletes    []string
}

func (r *recordingNotifier) NotifyExtractionFailed(_ context.Context, path string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extraction = append(r.extraction, path)
	return nil
}

func (r *recordingNotifier) NotifyDeleteFailed(_ context.Context, path string, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, path)
	return nil
}

func (r *recordingNotifier) NotifyDeliveryFailed(context.Context, string, []string, error) error {
	return nil
}

func (r *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }
func (r *recordingNotifier) TestNotification(context.Context) error           { return nil }

func newQueues() (*queue.PathQueue, *queue.TextQueue) {
	return queue.New[queue.Document](), queue.New[queue.Text]()
}

func TestProcessExtractsDeletesAndForwards(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	path := filepath.Join(cfg.Paths.StorageDir, "urgent_notice.pdf")
	testsupport.WritePDF(t, path, "...URGENT evacuation...", "second page")

	in, out := newQueues()
	w := extraction.New(in, out, pdftext.New(), logging.NewNop(), extraction.WithJournal(store))

	doc := queue.Document{ID: "doc-1", Path: path, DetectedAt: time.Now()}
	if !w.Process(context.Background(), doc) {
		t.Fatal("expected text to be forwarded")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected source to be deleted, stat err=%v", err)
	}

	text, ok := out.TryPop()
	if !ok {
		t.Fatal("expected text on the queue")
	}
	if text.ID != "doc-1" || text.SourcePath != path || text.Pages != 2 {
		t.Fatalf("unexpected text envelope %+v", text)
	}
	if text.Body != "...URGENT evacuation...\nsecond page\n" {
		t.Fatalf("unexpected body %q", text.Body)
	}

	entries, err := store.ForItem(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("ForItem failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeExtracted {
		t.Fatalf("unexpected journal entries %+v", entries)
	}
}

func TestProcessLeavesUnreadableDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	path := filepath.Join(cfg.Paths.StorageDir, "broken.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4\nnot really a pdf"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	notifier := &recordingNotifier{}
	in, out := newQueues()
	w := extraction.New(in, out, pdftext.New(), logging.NewNop(),
		extraction.WithJournal(store), extraction.WithNotifier(notifier))

	if w.Process(context.Background(), queue.Document{ID: "doc-2", Path: path}) {
		t.Fatal("expected extraction failure")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected unreadable file to remain, stat err=%v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected nothing forwarded, got %d", out.Len())
	}
	entries, err := store.ForItem(context.Background(), "doc-2")
	if err != nil {
		t.Fatalf("ForItem failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeExtractionFailed || entries[0].ErrorKind != "extraction" {
		t.Fatalf("unexpected journal entries %+v", entries)
	}
	if len(notifier.extraction) != 1 || notifier.extraction[0] != path {
		t.Fatalf("expected extraction notification, got %v", notifier.extraction)
	}
}

func TestProcessSkipsMissingDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	stub := &stubExtractor{fn: func(string) (pdftext.Result, error) {
		return pdftext.Result{Text: "unexpected"}, nil
	}}
	in, out := newQueues()
	w := extraction.New(in, out, stub, logging.NewNop(), extraction.WithJournal(store))

	path := filepath.Join(cfg.Paths.StorageDir, "gone.pdf")
	if w.Process(context.Background(), queue.Document{ID: "doc-3", Path: path}) {
		t.Fatal("expected missing document to be skipped")
	}
	if len(stub.calls) != 0 {
		t.Fatalf("extractor should not run for a missing file, got %v", stub.calls)
	}
	entries, _ := store.ForItem(context.Background(), "doc-3")
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeSkippedMissing {
		t.Fatalf("unexpected journal entries %+v", entries)
	}
}

func TestProcessForwardsWhenDeleteFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	path := filepath.Join(cfg.Paths.StorageDir, "locked.pdf")
	testsupport.WritePDF(t, path, "hello")

	notifier := &recordingNotifier{}
	in, out := newQueues()
	w := extraction.New(in, out, pdftext.New(), logging.NewNop(),
		extraction.WithJournal(store),
		extraction.WithNotifier(notifier),
		extraction.WithRemover(func(string) error { return os.ErrPermission }),
	)

	if !w.Process(context.Background(), queue.Document{ID: "doc-4", Path: path}) {
		t.Fatal("expected text to be forwarded despite delete failure")
	}
	if out.Len() != 1 {
		t.Fatalf("expected forwarded text, got %d", out.Len())
	}
	entries, _ := store.ForItem(context.Background(), "doc-4")
	if len(entries) != 2 {
		t.Fatalf("expected delete_failed and extracted entries, got %+v", entries)
	}
	if entries[0].Outcome != journal.OutcomeDeleteFailed || entries[0].ErrorKind != "delete" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Outcome != journal.OutcomeExtracted {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if len(notifier.deletes) != 1 {
		t.Fatalf("expected delete notification, got %v", notifier.deletes)
	}
}

func TestProcessEmptyDocumentForwardsEmptyText(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stub := &stubExtractor{fn: func(string) (pdftext.Result, error) { return pdftext.Result{}, nil }}
	path := filepath.Join(cfg.Paths.StorageDir, "blank.pdf")
	testsupport.WriteFile(t, path, 16)

	in, out := newQueues()
	w := extraction.New(in, out, stub, logging.NewNop())
	if !w.Process(context.Background(), queue.Document{ID: "doc-5", Path: path}) {
		t.Fatal("expected empty text to be forwarded")
	}
	text, ok := out.TryPop()
	if !ok || text.Body != "" || text.Pages != 0 {
		t.Fatalf("unexpected text %+v (ok=%v)", text, ok)
	}
}

func TestRunContinuesAfterFailureAndStopsWhenClosed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	good := filepath.Join(cfg.Paths.StorageDir, "good.pdf")
	bad := filepath.Join(cfg.Paths.StorageDir, "bad.pdf")
	testsupport.WriteFile(t, good, 8)
	testsupport.WriteFile(t, bad, 8)

	stub := &stubExtractor{fn: func(path string) (pdftext.Result, error) {
		if path == bad {
			return pdftext.Result{}, services.Wrap(services.ErrExtraction, "extract", "parse", "", errors.New("corrupt"))
		}
		return pdftext.Result{Text: "ok", Pages: 1}, nil
	}}
	in, out := newQueues()
	w := extraction.New(in, out, stub, logging.NewNop())

	_ = in.Push(queue.Document{ID: "bad", Path: bad})
	_ = in.Push(queue.Document{ID: "good", Path: good})
	in.Close()

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after queue closed")
	}

	text, ok := out.TryPop()
	if !ok || text.ID != "good" {
		t.Fatalf("expected good document forwarded, got %+v (ok=%v)", text, ok)
	}
	if _, err := os.Stat(bad); err != nil {
		t.Fatalf("expected bad document left on disk: %v", err)
	}
	if _, err := os.Stat(good); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected good document deleted, stat err=%v", err)
	}
	snap := w.Tracker().Snapshot()
	if snap.State != stage.Stopped || snap.Processed != 2 || snap.Failed != 1 {
		t.Fatalf("unexpected tracker snapshot %+v", snap)
	}
}

func TestRunReturnsWhenCancelledWhileIdle(t *testing.T) {
	in, out := newQueues()
	w := extraction.New(in, out, &stubExtractor{}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunKeepsDocumentWhenShutdownInterruptsExtraction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	path := filepath.Join(cfg.Paths.StorageDir, "late.pdf")
	testsupport.WriteFile(t, path, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := &stubExtractor{fn: func(string) (pdftext.Result, error) {
		cancel()
		return pdftext.Result{Text: "URGENT", Pages: 1}, nil
	}}
	in, out := newQueues()
	w := extraction.New(in, out, stub, logging.NewNop(), extraction.WithJournal(store))
	_ = in.Push(queue.Document{ID: "late", Path: path})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected document left for the next run: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no text forwarded, got %d", out.Len())
	}
	entries, err := store.ForItem(context.Background(), "late")
	if err != nil {
		t.Fatalf("ForItem: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeAbandoned {
		t.Fatalf("unexpected journal entries %+v", entries)
	}
}
