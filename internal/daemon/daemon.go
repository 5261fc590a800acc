package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"telex/internal/config"
	"telex/internal/dispatch"
	"telex/internal/extraction"
	"telex/internal/journal"
	"telex/internal/logging"
	"telex/internal/notifications"
	"telex/internal/preflight"
	"telex/internal/queue"
	"telex/internal/services"
	"telex/internal/services/pdftext"
	"telex/internal/services/smtp"
	"telex/internal/stage"
	"telex/internal/watcher"
)

// ErrAlreadyRunning reports that another instance holds the daemon lock.
var ErrAlreadyRunning = errors.New("another telex instance is already running")

// Option customizes the daemon.
type Option func(*Daemon)

// WithExtractor replaces the pdfcpu-backed text extractor.
func WithExtractor(e pdftext.Extractor) Option {
	return func(d *Daemon) {
		if e != nil {
			d.extractor = e
		}
	}
}

// WithSender replaces the SMTP transport.
func WithSender(s smtp.Sender) Option {
	return func(d *Daemon) {
		if s != nil {
			d.sender = s
		}
	}
}

// WithNotifier replaces the configured notification service.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithWatcherOptions forwards options to the watcher.
func WithWatcherOptions(opts ...watcher.Option) Option {
	return func(d *Daemon) {
		d.watcherOpts = append(d.watcherOpts, opts...)
	}
}

// WithPreflight runs the readiness checks at startup and logs failures.
func WithPreflight() Option {
	return func(d *Daemon) {
		d.preflight = true
	}
}

// Daemon is the pipeline supervisor.
type Daemon struct {
	cfg    *config.Config
	base   *slog.Logger
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock

	extractor   pdftext.Extractor
	sender      smtp.Sender
	notifier    notifications.Service
	watcherOpts []watcher.Option
	preflight   bool

	paths *queue.PathQueue
	texts *queue.TextQueue

	mu       sync.Mutex
	trackers []*stage.Tracker

	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workers      []stage.Snapshot
	PathDepth    int
	TextDepth    int
	LockFilePath string
	JournalPath  string
}

// New constructs a daemon. The SMTP client is built from cfg unless
// WithSender is given.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		base:     logger,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		paths:    queue.New[queue.Document](),
		texts:    queue.New[queue.Text](),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.extractor == nil {
		d.extractor = pdftext.New()
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	if d.sender == nil {
		client, err := smtp.New(cfg)
		if err != nil {
			return nil, err
		}
		d.sender = client
	}
	return d, nil
}

// Ready is closed once the watcher has registered notifications and
// finished the startup scan.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Run acquires the single-instance lock and runs the pipeline until ctx is
// cancelled. Only configuration errors and lock failures are returned;
// every per-document failure is contained in its worker. The queues are
// closed on return, so a Daemon runs once.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	if err := d.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "daemon", "prepare directories", "", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	store := d.openJournal(ctx)
	if store != nil {
		defer store.Close()
	}

	if d.preflight {
		d.runPreflight(ctx)
	}

	w := watcher.New(d.cfg, d.paths, d.base, d.watcherOpts...)
	extractorOpts := []extraction.Option{extraction.WithNotifier(d.notifier)}
	dispatchOpts := []dispatch.Option{dispatch.WithNotifier(d.notifier)}
	if store != nil {
		extractorOpts = append(extractorOpts, extraction.WithJournal(store))
		dispatchOpts = append(dispatchOpts, dispatch.WithJournal(store))
	}
	ex := extraction.New(d.paths, d.texts, d.extractor, d.base, extractorOpts...)
	dp, err := dispatch.New(d.cfg, d.texts, d.sender, d.base, dispatchOpts...)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.trackers = []*stage.Tracker{w.Tracker(), ex.Tracker(), dp.Tracker()}
	d.mu.Unlock()

	d.logger.Info("telex daemon started",
		logging.String("storage_dir", d.cfg.Paths.StorageDir),
		logging.Int("routes", len(d.cfg.Routes)),
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return w.Run(groupCtx) })
	group.Go(func() error { return ex.Run(groupCtx) })
	group.Go(func() error { return dp.Run(groupCtx) })
	go func() {
		select {
		case <-w.Ready():
			d.readyOnce.Do(func() { close(d.ready) })
		case <-groupCtx.Done():
		}
	}()

	runErr := group.Wait()
	d.paths.Close()
	d.texts.Close()
	d.logSummary()
	d.reportUnsent(store)

	if runErr != nil {
		logging.ErrorWithContext(d.logger, "telex daemon stopped on error", "daemon_failed", runErr,
			logging.String(logging.FieldImpact, "pipeline halted"),
		)
		if notifyErr := d.notifier.NotifyError(context.WithoutCancel(ctx), runErr, "daemon"); notifyErr != nil {
			d.logger.Warn("failure notification not sent", logging.Error(notifyErr))
		}
		return runErr
	}
	d.logger.Info("telex daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	return nil
}

// reportUnsent records texts still queued when the workers stopped. Their
// sources are already deleted, so this is the last trace of them.
func (d *Daemon) reportUnsent(store *journal.Store) {
	ctx := context.Background()
	for {
		text, ok := d.texts.TryPop()
		if !ok {
			return
		}
		logging.WarnWithContext(d.logger, "text not sent before shutdown", "text_abandoned",
			logging.String(logging.FieldItemID, text.ID),
			logging.String(logging.FieldPath, text.SourcePath),
			logging.Int("text_length", len(text.Body)),
			logging.String(logging.FieldImpact, "message lost"),
		)
		if store == nil {
			continue
		}
		err := store.Record(ctx, journal.Entry{
			ItemID:       text.ID,
			SourcePath:   text.SourcePath,
			Outcome:      journal.OutcomeAbandoned,
			TextLength:   len(text.Body),
			ErrorMessage: "queued for delivery at shutdown",
		})
		if err != nil {
			d.logger.Warn("journal write failed", logging.Error(err))
		}
	}
}

func (d *Daemon) openJournal(ctx context.Context) *journal.Store {
	if !d.cfg.Journal.Enabled {
		return nil
	}
	store, err := journal.Open(d.cfg)
	if err != nil {
		logging.WarnWithContext(d.logger, "journal unavailable; continuing without history", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcomes will not be recorded"),
		)
		return nil
	}
	removed, err := store.PruneRetention(ctx, d.cfg.Journal.RetentionDays, time.Now())
	if err != nil {
		logging.WarnWithContext(d.logger, "journal prune failed", "journal_error", logging.Error(err))
	} else if removed > 0 {
		d.logger.Info("journal pruned",
			logging.Int64("removed", removed),
			logging.Int("retention_days", d.cfg.Journal.RetentionDays),
		)
	}
	return store
}

func (d *Daemon) runPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}
	d.logger.Debug("preflight complete",
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))),
	)
}

func (d *Daemon) logSummary() {
	status := d.Status()
	attrs := []logging.Attr{
		logging.Int("path_queue_depth", status.PathDepth),
		logging.Int("text_queue_depth", status.TextDepth),
		logging.String(logging.FieldEventType, "pipeline_summary"),
	}
	for _, snap := range status.Workers {
		attrs = append(attrs,
			logging.String(snap.Name+"_state", snap.State.String()),
			logging.Int64(snap.Name+"_processed", snap.Processed),
			logging.Int64(snap.Name+"_failed", snap.Failed),
		)
	}
	d.logger.Info("pipeline summary", logging.Args(attrs...)...)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	trackers := append([]*stage.Tracker(nil), d.trackers...)
	d.mu.Unlock()

	workers := make([]stage.Snapshot, 0, len(trackers))
	for _, tracker := range trackers {
		workers = append(workers, tracker.Snapshot())
	}
	return Status{
		Running:      d.running.Load(),
		Workers:      workers,
		PathDepth:    d.paths.Len(),
		TextDepth:    d.texts.Len(),
		LockFilePath: d.lockPath,
		JournalPath:  d.cfg.JournalPath(),
	}
}

// Health reports the readiness of every worker.
func (s Status) Health() []stage.Health {
	health := make([]stage.Health, 0, len(s.Workers))
	for _, snap := range s.Workers {
		health = append(health, snap.Health())
	}
	return health
}
