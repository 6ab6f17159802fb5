// Package maintenance runs the background sweep that surfaces mastered words
// whose next maintenance probe has come due. The probe itself happens inside
// a session (the next attempt on a due word doubles as the check); the sweep
// only finds the words and hands them to a notifier so the frontend can nudge
// the reader to practise.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"go.opentelemetry.io/otel/metric"

	"github.com/kalini-labs/lexio/internal/mastery"
	"github.com/kalini-labs/lexio/internal/observe"
	"github.com/kalini-labs/lexio/pkg/wordstore"
)

// DefaultInterval is how often the sweep runs when not overridden. Due times
// move in whole days, so hourly is more than enough resolution.
const DefaultInterval = time.Hour

// sweepLimit caps one sweep's result set. A larger backlog is picked up by
// the next run.
const sweepLimit = 1000

// Notifier receives the due words found by a sweep, grouped per user and
// language. Implementations must not block for long; the sweep runs them
// inline.
type Notifier interface {
	MaintenanceDue(ctx context.Context, user, language string, words []string) error
}

// LogNotifier writes due sets to the log. The default when nothing else is
// wired up.
type LogNotifier struct {
	Log *slog.Logger
}

// MaintenanceDue implements [Notifier].
func (n *LogNotifier) MaintenanceDue(_ context.Context, user, language string, words []string) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("maintenance checks due", "user", user, "language", language, "words", words)
	return nil
}

// Sweeper periodically scans the store for mastered words whose maintenance
// checkpoint has arrived.
type Sweeper struct {
	store    wordstore.Store
	notifier Notifier
	metrics  *observe.Metrics
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	sched *gocron.Scheduler
}

// Option customises a [Sweeper].
type Option func(*Sweeper)

// WithInterval sets the sweep interval. Default: [DefaultInterval].
func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) { s.interval = d }
}

// WithNotifier sets the due-set sink. Default: a [LogNotifier].
func WithNotifier(n Notifier) Option {
	return func(s *Sweeper) { s.notifier = n }
}

// WithMetrics sets the metrics instruments. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Sweeper) { s.metrics = m }
}

// WithLogger sets the logger. Default: slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sweeper) { s.log = log }
}

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// New creates a sweeper over the given store.
func New(store wordstore.Store, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:    store,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.notifier == nil {
		s.notifier = &LogNotifier{Log: s.log}
	}
	return s
}

// Start schedules the sweep and returns immediately. Call Stop to shut the
// scheduler down.
func (s *Sweeper) Start() error {
	if s.sched != nil {
		return fmt.Errorf("maintenance: sweeper already started")
	}
	sched := gocron.NewScheduler(time.UTC)
	_, err := sched.Every(s.interval).Do(func() {
		if err := s.Sweep(context.Background()); err != nil {
			s.log.Error("maintenance sweep failed", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: schedule sweep: %w", err)
	}
	sched.StartAsync()
	s.sched = sched
	s.log.Info("maintenance sweeper started", "interval", s.interval)
	return nil
}

// Stop halts the scheduler. Safe to call before Start or more than once.
func (s *Sweeper) Stop() {
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
}

// Sweep runs one scan immediately and notifies for every (user, language)
// group with due maintenance words.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := s.now()
	recs, err := s.store.QueryDue(ctx, wordstore.DueQuery{
		States: []mastery.State{mastery.StateMastered},
		DueBy:  now,
		Limit:  sweepLimit,
	})
	if err != nil {
		s.metrics.RecordStoreError(ctx, "sweep")
		return fmt.Errorf("maintenance: query due: %w", err)
	}

	type group struct{ user, language string }
	due := make(map[group][]string)
	var order []group
	for _, rec := range recs {
		g := group{rec.User, rec.Language}
		if _, seen := due[g]; !seen {
			order = append(order, g)
		}
		due[g] = append(due[g], rec.Word)
	}

	s.metrics.DueSetSize.Record(ctx, int64(len(recs)),
		metric.WithAttributes(observe.Attr("kind", "maintenance")))

	for _, g := range order {
		if err := s.notifier.MaintenanceDue(ctx, g.user, g.language, due[g]); err != nil {
			s.log.Warn("maintenance notify failed",
				"user", g.user, "language", g.language, "err", err)
		}
	}

	s.log.Debug("maintenance sweep complete", "due_words", len(recs), "groups", len(due))
	return nil
}
