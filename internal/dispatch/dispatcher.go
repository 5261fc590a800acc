package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"telex/internal/config"
	"telex/internal/journal"
	"telex/internal/logging"
	"telex/internal/notifications"
	"telex/internal/queue"
	"telex/internal/services"
	"telex/internal/services/smtp"
	"telex/internal/stage"
)

// Journal records delivery outcomes.
type Journal interface {
	Record(ctx context.Context, entry journal.Entry) error
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithJournal records every outcome in j.
func WithJournal(j Journal) Option {
	return func(d *Dispatcher) {
		if j != nil {
			d.journal = j
		}
	}
}

// WithNotifier sends failure alerts through n.
func WithNotifier(n notifications.Service) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.notifier = n
		}
	}
}

// Dispatcher is the worker that routes and sends extracted text.
type Dispatcher struct {
	in       *queue.TextQueue
	router   *Router
	sender   smtp.Sender
	from     string
	cooldown time.Duration
	journal  Journal
	notifier notifications.Service
	logger   *slog.Logger
	tracker  *stage.Tracker
}

// New constructs a dispatcher reading from in and delivering through sender.
func New(cfg *config.Config, in *queue.TextQueue, sender smtp.Sender, logger *slog.Logger, opts ...Option) (*Dispatcher, error) {
	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		in:       in,
		router:   router,
		sender:   sender,
		from:     cfg.Mail.From,
		cooldown: cfg.Cooldown(),
		notifier: notifications.Noop(),
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
		tracker:  stage.NewTracker("dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Tracker exposes the worker state.
func (d *Dispatcher) Tracker() *stage.Tracker { return d.tracker }

// Run processes text until ctx is cancelled or the queue is closed and
// drained. Cancellation is observed between items only; a send in progress
// runs to completion.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.tracker.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		item, err := d.in.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !d.tracker.Begin() {
			return nil
		}
		sent := d.Process(context.WithoutCancel(ctx), item)
		d.tracker.Done(!sent)
		if sent {
			d.wait(ctx)
		}
	}
}

// Process routes and sends a single text. It reports whether the message was
// accepted by the mail server.
func (d *Dispatcher) Process(ctx context.Context, item queue.Text) bool {
	ctx = services.WithItemID(ctx, item.ID)
	ctx = services.WithStage(ctx, "dispatch")
	ctx = services.WithSourcePath(ctx, item.SourcePath)
	logger := logging.WithContext(ctx, d.logger)

	logger.Debug("text dequeued", logging.QueueDepth(d.in.Len()))

	decision := d.router.Route(item.Body)
	route := decision.Route
	if !decision.Matched() {
		route = "default"
	}
	msg := BuildMessage(d.from, decision, item.Body)

	started := time.Now()
	if err := d.sender.Send(ctx, msg); err != nil {
		if !errors.Is(err, services.ErrDelivery) {
			err = services.Wrap(services.ErrDelivery, "dispatch", "send", "", err)
		}
		logging.ErrorWithContext(logger, "delivery failed; message dropped", "delivery_failed", err,
			logging.String("route", route),
			logging.String("subject", msg.Subject),
			logging.Recipients(msg.Recipients),
			logging.String(logging.FieldErrorHint, "check SMTP settings; re-drop the document to resend"),
		)
		d.record(ctx, logger, journal.Entry{
			ItemID:       item.ID,
			SourcePath:   item.SourcePath,
			Outcome:      journal.OutcomeDeliveryFailed,
			Route:        route,
			Subject:      msg.Subject,
			Recipients:   msg.Recipients,
			TextLength:   len(item.Body),
			ErrorKind:    services.Kind(err),
			ErrorMessage: err.Error(),
		})
		if notifyErr := d.notifier.NotifyDeliveryFailed(ctx, msg.Subject, msg.Recipients, err); notifyErr != nil {
			logger.Warn("failure notification not sent", logging.Error(notifyErr))
		}
		return false
	}

	logger.Info("message delivered",
		logging.String("route", route),
		logging.String("subject", msg.Subject),
		logging.Recipients(msg.Recipients),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "message_delivered"),
	)
	d.record(ctx, logger, journal.Entry{
		ItemID:     item.ID,
		SourcePath: item.SourcePath,
		Outcome:    journal.OutcomeDelivered,
		Route:      route,
		Subject:    msg.Subject,
		Recipients: msg.Recipients,
		TextLength: len(item.Body),
	})
	return true
}

func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, entry journal.Entry) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "journal write failed", "journal_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome missing from history"),
		)
	}
}

// wait applies the post-send cooldown. Cancellation ends it early.
func (d *Dispatcher) wait(ctx context.Context) {
	if d.cooldown <= 0 {
		return
	}
	d.logger.Debug("cooling down", logging.Duration("cooldown", d.cooldown))
	timer := time.NewTimer(d.cooldown)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
